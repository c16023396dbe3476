package logkeeper

import (
	"bytes"
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESIndexer writes documents into a single Elasticsearch index.
type ESIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewESIndexer(addresses []string, index string) (*ESIndexer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, err
	}
	return &ESIndexer{es: es, index: index}, nil
}

func (i *ESIndexer) Index(ctx context.Context, id string, body []byte) error {
	res, err := i.es.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Index.WithDocumentID(id),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index %s: %s", id, res.Status())
	}
	return nil
}
