package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"social/pkg/api"
	"social/pkg/blob"
	"social/pkg/censor"
	"social/pkg/social"
	"social/pkg/storage"
	"social/pkg/storage/memdb"
	"social/pkg/storage/mongo"
	"social/pkg/storage/postgres"
)

type Config struct {
	ServiceName    string `toml:"serviceName"`
	CensorConfPath string `toml:"censorConfPath"`
	Storage        string `toml:"storage"`

	HTTPAddr     string `toml:"httpAddr"`
	LogLevel     string `toml:"logLevel"`
	KafkaAddr    string `toml:"kafkaAddr"`
	KafkaTopic   string `toml:"kafkaTopic"`
	KafkaBatch   int    `toml:"kafkaBatch"`
	OTLPEndpoint string `toml:"otlpEndpoint"`
}

func main() {
	var (
		configPath     string
		censorConfPath string
		storageKind    string
		httpAddr       string
		logLevel       string
		kafkaAddr      string
		kafkaTopic     string
		kafkaBatch     int
		otlpEndpoint   string
		dev            bool
	)

	flag.StringVar(&configPath, "servconf", "cmd/server/config.toml", "Path to TOML config file")
	flag.StringVar(&censorConfPath, "censconf", "", "Path to JSON file with banned words")
	flag.StringVar(&storageKind, "db", "", "Storage backend: mongo or postgres.")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.StringVar(&kafkaAddr, "kafka", "", "Kafka server address in the form 'host:port'.")
	flag.StringVar(&kafkaTopic, "topic", "", "Kafka topic.")
	flag.IntVar(&kafkaBatch, "batch", 0, "Kafka batch size.")
	flag.StringVar(&otlpEndpoint, "otlp", "", "OTLP/HTTP trace collector address in the form 'host:port'.")
	flag.BoolVar(&dev, "dev", false, "Run the server in development mode with in-memory DB.")
	flag.Parse()

	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Fatalf("[server] failed to load config file %s: %v", configPath, err)
	}

	// Override config with flags if set
	if censorConfPath != "" {
		cfg.CensorConfPath = censorConfPath
	}
	if storageKind != "" {
		cfg.Storage = storageKind
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if kafkaAddr != "" {
		cfg.KafkaAddr = kafkaAddr
	}
	if kafkaTopic != "" {
		cfg.KafkaTopic = kafkaTopic
	}
	if kafkaBatch != 0 {
		cfg.KafkaBatch = kafkaBatch
	}
	if otlpEndpoint != "" {
		cfg.OTLPEndpoint = otlpEndpoint
	}

	if !strings.Contains(cfg.HTTPAddr, ":") {
		log.Warn("[server] use ':' before port number, e.g. ':8080'")
	}

	switch cfg.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}

	var checker social.TextChecker
	if cfg.CensorConfPath != "" {
		c := censor.New()
		if err := c.LoadFromJSON(cfg.CensorConfPath); err != nil {
			log.Fatalf("[server] failed to load censor config file %s: %v", cfg.CensorConfPath, err)
		}
		log.Infof("[server] loaded %d banned words", c.Len())
		checker = c
	}

	var (
		db      storage.Storage
		ping    func(context.Context) error
		closeDB func(context.Context) error
	)
	if dev {
		log.Info("[server] development mode, using in-memory storage")
		db = memdb.New()
	} else {
		var err error
		db, ping, closeDB, err = openStorage(cfg.Storage)
		if err != nil {
			log.Fatalf("[server] failed to initialize storage instance, DB connection not established: %v", err)
		}
	}

	opts := api.Options{Ping: ping}

	if blobConf, err := blob.NewConfig(); err == nil {
		store, err := blob.New(*blobConf)
		if err != nil {
			log.Fatalf("[server] failed to create blob store client: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.EnsureBucket(ctx)
		cancel()
		if err != nil {
			log.Fatalf("[server] failed to prepare bucket %s: %v", blobConf.Bucket, err)
		}
		opts.Uploader = store
	} else if errors.Is(err, blob.ErrConfParamMissing) {
		log.Warnf("[server] blob store was not configured, image uploads are disabled: %v", err)
	} else {
		log.Fatalf("[server] invalid blob store configuration: %v", err)
	}

	if cfg.KafkaAddr != "" && cfg.KafkaTopic != "" {
		opts.Kafka = &kafka.Writer{
			Addr:      kafka.TCP(cfg.KafkaAddr),
			Topic:     cfg.KafkaTopic,
			BatchSize: cfg.KafkaBatch,
		}
		err := createTopic(opts.Kafka.Addr.String(), opts.Kafka.Topic)
		if err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
	} else {
		log.Warnf("[server] kafka was not configured, logs will not be sent to Kafka")
	}

	shutdownTracing := func(context.Context) error { return nil }
	if cfg.OTLPEndpoint != "" {
		var err error
		shutdownTracing, err = initTracing(context.Background(), cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("[server] failed to set up tracing: %v", err)
		}
		log.Infof("[server] exporting traces to %s", cfg.OTLPEndpoint)
	}

	api := api.New(cfg.ServiceName, social.New(db, checker), opts)

	var handler http.Handler = api.Router()
	if cfg.OTLPEndpoint != "" {
		handler = otelhttp.NewHandler(handler, cfg.ServiceName)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("[server] starting on port %v", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
			return
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}

	if opts.Kafka != nil {
		if err := opts.Kafka.Close(); err != nil {
			log.Errorf("[server] failed to flush Kafka writer: %v", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Errorf("[server] failed to flush traces: %v", err)
	}
	if closeDB != nil {
		if err := closeDB(shutdownCtx); err != nil {
			log.Errorf("[server] failed to disconnect from DB: %v", err)
		} else {
			log.Info("[server] disconnected from DB")
		}
	}
}

// openStorage connects to the configured backend. Mongo is used when kind is empty.
func openStorage(kind string) (storage.Storage, func(context.Context) error, func(context.Context) error, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch kind {
	case "", "mongo":
		conf, err := mongo.NewConfig()
		if err != nil {
			return nil, nil, nil, err
		}
		db, err := mongo.New(ctx, conf)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Infof("[server] connected to %v", conf)
		return db, db.Ping, db.Close, nil

	case "postgres":
		conf := postgres.NewConfig()
		if !conf.IsValid() {
			return nil, nil, nil, fmt.Errorf("invalid Postgres configuration %v", conf)
		}
		db, err := postgres.New(ctx, conf.ConString())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close(ctx)
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close(ctx)
			return nil, nil, nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		log.Infof("[server] connected to %v", conf)
		return db, db.Ping, db.Close, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown storage backend %q", kind)
}

func createTopic(broker, topic string) error {
	conn, err := kafka.DialContext(context.Background(), "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
