package storage

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config configures the presence Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
}

var (
	mu  sync.RWMutex
	rdb *redis.Client
)

// InitRedis connects the package-level client. Call once during startup;
// presence stays disabled when never called.
func InitRedis(c Config) error {
	cli := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return err
	}

	mu.Lock()
	rdb = cli
	mu.Unlock()
	return nil
}

// Enabled reports whether presence marks are being written.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return rdb != nil
}

// CloseRedis releases the client.
func CloseRedis() error {
	mu.Lock()
	defer mu.Unlock()
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb = nil
	return err
}

func client() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return rdb
}
