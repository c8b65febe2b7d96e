package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	backendMemory = "memory"
	backendMongo  = "mongo"
	backendRedis  = "redis"

	sourceFixture = "fixture"
	sourceLedger  = "ledger"
)

type Config struct {
	Port      string
	MongoURI  string
	MongoDB   string
	JWTSecret string

	LedgerBackend string // memory | mongo
	KVBackend     string // memory | redis | mongo
	RedisAddr     string

	IPFSAPIURL      string // empty keeps uploads in memory
	WeatherURL      string
	TrackingBaseURL string

	BatchSource  string // fixture | ledger
	PollInterval time.Duration
	RatingDelay  time.Duration

	LogLevel string
}

// usesMongo reports whether any backend needs the Mongo connection. Accounts
// follow it: Mongo when connected, in-process otherwise.
func (c Config) usesMongo() bool {
	return c.LedgerBackend == backendMongo || c.KVBackend == backendMongo
}

func mustConfig() Config {
	// a missing .env is fine; the process environment still applies
	_ = godotenv.Load()

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getenv("MONGO_DB", "herbtrace"),
		JWTSecret:       getenv("JWT_SECRET", "change_me"),
		LedgerBackend:   getenv("LEDGER_BACKEND", backendMongo),
		KVBackend:       getenv("KV_BACKEND", backendMongo),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		IPFSAPIURL:      getenv("IPFS_API_URL", ""),
		WeatherURL:      getenv("WEATHER_URL", "https://api.open-meteo.com"),
		TrackingBaseURL: getenv("TRACKING_BASE_URL", "http://localhost:5173"),
		BatchSource:     getenv("BATCH_SOURCE", sourceLedger),
		PollInterval:    getduration("POLL_INTERVAL", 5*time.Second),
		RatingDelay:     getduration("RATING_DELAY", time.Second),
		LogLevel:        getenv("LOG_LEVEL", "info"),
	}

	switch cfg.LedgerBackend {
	case backendMemory, backendMongo:
	default:
		log.Fatalf("LEDGER_BACKEND must be memory or mongo, got %q", cfg.LedgerBackend)
	}
	switch cfg.KVBackend {
	case backendMemory, backendMongo, backendRedis:
	default:
		log.Fatalf("KV_BACKEND must be memory, redis or mongo, got %q", cfg.KVBackend)
	}
	switch cfg.BatchSource {
	case sourceFixture, sourceLedger:
	default:
		log.Fatalf("BATCH_SOURCE must be fixture or ledger, got %q", cfg.BatchSource)
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s: %v", k, err)
	}
	return d
}
