// Package logkeeper consumes request log entries from Kafka and indexes them
// in Elasticsearch.
package logkeeper

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"social/pkg/logger"
)

// MessageReader is the part of kafka.Reader the keeper needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Indexer stores a log document under id.
type Indexer interface {
	Index(ctx context.Context, id string, body []byte) error
}

type Keeper struct {
	indexer Indexer
	workers int
}

func New(indexer Indexer, workers int) *Keeper {
	if workers < 1 {
		workers = 1
	}
	return &Keeper{indexer: indexer, workers: workers}
}

// Run reads messages until ctx is cancelled and hands them to the workers.
// It returns after every worker has exited.
func (k *Keeper) Run(ctx context.Context, r MessageReader) {
	jobs := make(chan kafka.Message, k.workers*5)

	var wg sync.WaitGroup
	wg.Add(k.workers)
	for workerID := 0; workerID < k.workers; workerID++ {
		go func(id int) {
			defer wg.Done()
			k.worker(ctx, jobs, id)
		}(workerID)
	}

	log.Info("[logkeeper] accepting logs...")
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			log.Errorf("[logkeeper] failed to read message from Kafka: %v", err)
			continue
		}
		log.Debugf("[logkeeper] received message: %s", string(msg.Value))

		select {
		case jobs <- msg:
		case <-ctx.Done():
		}
	}

	close(jobs)
	wg.Wait()
}

func (k *Keeper) worker(ctx context.Context, jobs <-chan kafka.Message, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Infof("[logkeeper][workerID:%d] context cancelled, exiting worker", workerID)
			return

		case msg, ok := <-jobs:
			if !ok {
				log.Infof("[logkeeper][workerID:%d] jobs channel closed, exiting worker", workerID)
				return
			}
			k.handle(ctx, msg, workerID)
		}
	}
}

func (k *Keeper) handle(ctx context.Context, msg kafka.Message, workerID int) {
	var entry logger.Entry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		log.Errorf("[logkeeper][workerID:%d] failed to unmarshal log entry: %v", workerID, err)
		return
	}

	if err := k.indexer.Index(ctx, entry.DocumentID(), msg.Value); err != nil {
		log.Errorf("[logkeeper][workerID:%d] failed to index document: %v", workerID, err)
		return
	}
	log.Debugf("[logkeeper][workerID:%d][%s] log entry indexed", workerID, shorten(entry.RequestID))
}

func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
