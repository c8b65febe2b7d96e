package main

import (
	"context"
	"fmt"
	"time"

	"herbtrace/accounts"
	"herbtrace/batches"
	"herbtrace/collection"
	"herbtrace/ipfs"
	"herbtrace/kv"
	"herbtrace/ledger"
	"herbtrace/notify"
	"herbtrace/qr"
	"herbtrace/rating"
	"herbtrace/weather"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	cfg    Config
	log    *zap.Logger
	mongo  *mongo.Client // nil unless a backend uses it
	redis  *redis.Client // nil unless KV_BACKEND=redis
	broker *notify.Broker

	users   accounts.Store
	ledger  ledger.Ledger
	storage ipfs.Storage
	qr      qr.Service
	weather weather.Provider

	poller    *batches.Poller
	collector *collection.Submitter
	ratings   *rating.Service
}

func newApp(ctx context.Context, cfg Config, logger *zap.Logger) (*App, error) {
	app := &App{
		cfg:     cfg,
		log:     logger,
		broker:  notify.NewBroker(logger.Named("notify")),
		qr:      qr.NewGenerator(cfg.TrackingBaseURL),
		weather: weather.NewClient(cfg.WeatherURL, logger.Named("weather")),
	}

	var db *mongo.Database
	if cfg.usesMongo() {
		// nested documents decode as maps so event data reads the same as JSON
		client, err := mongo.Connect(ctx, options.Client().
			ApplyURI(cfg.MongoURI).
			SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true}))
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo ping: %w", err)
		}
		app.mongo = client
		db = client.Database(cfg.MongoDB)

		users := accounts.NewMongo(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("user indexes: %w", err)
		}
		app.users = users
	} else {
		app.users = accounts.NewMemory()
	}

	switch cfg.LedgerBackend {
	case backendMongo:
		app.ledger = ledger.NewMongo(db)
	default:
		app.ledger = ledger.NewMemory()
	}
	if err := app.ledger.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize ledger: %w", err)
	}

	var store kv.Store
	switch cfg.KVBackend {
	case backendRedis:
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		store = kv.NewRedis(app.redis, "herbtrace:")
	case backendMongo:
		store = kv.NewMongo(db)
	default:
		store = kv.NewMemory()
	}

	if cfg.IPFSAPIURL != "" {
		app.storage = ipfs.NewClient(cfg.IPFSAPIURL)
	} else {
		app.storage = ipfs.NewMemory()
	}

	var source batches.Source = batches.LedgerSource{Ledger: app.ledger}
	if cfg.BatchSource == sourceFixture {
		source = batches.FixtureSource{}
	}
	app.poller = batches.NewPoller(source, cfg.PollInterval, logger.Named("batches"))

	app.collector = collection.NewSubmitter(app.ledger, app.storage, app.qr,
		collection.WithWeather(app.weather),
		collection.WithNotifier(app.broker),
		collection.WithLogger(logger.Named("collection")),
	)
	app.ratings = rating.NewService(store,
		rating.WithDelay(cfg.RatingDelay),
		rating.WithLogger(logger.Named("rating")),
	)

	logger.Info("app ready",
		zap.String("ledger", cfg.LedgerBackend),
		zap.String("kv", cfg.KVBackend),
		zap.String("batchSource", cfg.BatchSource),
		zap.Bool("ipfs", cfg.IPFSAPIURL != ""),
	)
	return app, nil
}

func (a *App) close(ctx context.Context) {
	a.broker.Shutdown()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = a.mongo.Disconnect(ctx)
	}
}
