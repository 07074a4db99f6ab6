package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the whole gateway configuration, parsed from the environment.
type Config struct {
	HTTPAddr  string `env:"GATEWAY_HTTP_ADDR" envDefault:":8080"`
	JWTSecret string `env:"GATEWAY_JWT_SECRET" envDefault:"dev-secret-change-me"`
	NodeID    int64  `env:"GATEWAY_NODE_ID" envDefault:"1"`

	// Realtime registry tuning.
	HeartbeatEvery time.Duration `env:"GATEWAY_HEARTBEAT_EVERY" envDefault:"30s"`
	SweepEvery     time.Duration `env:"GATEWAY_SWEEP_EVERY" envDefault:"15m"`
	MaxIdle        time.Duration `env:"GATEWAY_MAX_IDLE" envDefault:"1h"`
	MaxConns       int           `env:"GATEWAY_MAX_CONNS" envDefault:"0"`
	SendQueueSize  int           `env:"GATEWAY_SEND_QUEUE" envDefault:"256"`
	MaxBodyLen     int           `env:"GATEWAY_MAX_BODY_LEN" envDefault:"1000"`

	// Message store. Empty MongoURI falls back to the in-memory store.
	MongoURI      string `env:"GATEWAY_MONGO_URI"`
	MongoDatabase string `env:"GATEWAY_MONGO_DB" envDefault:"helplink"`

	// Presence. Empty RedisAddr disables presence marks.
	RedisAddr     string        `env:"GATEWAY_REDIS_ADDR"`
	RedisPassword string        `env:"GATEWAY_REDIS_PASSWORD"`
	RedisDB       int           `env:"GATEWAY_REDIS_DB" envDefault:"0"`
	PresenceTTL   time.Duration `env:"GATEWAY_PRESENCE_TTL" envDefault:"2m"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
