package config

// Redis backs sessions, rate limiting and the response cache. If it cannot
// be reached at startup the constructor returns nil and callers degrade:
// sessions fall back to MySQL, rate limiting and caching are disabled.

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//
//	REDIS_ADDR           host:port (default localhost:6379)
//	REDIS_HOST/REDIS_PORT override REDIS_ADDR when both are set
//	REDIS_PASSWORD       optional password
//	REDIS_DB             database number (default 0)
//	REDIS_TLS            enable TLS when "true" or "1"
func RedisOptions() *redis.Options {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects with RedisOptions and pings the server. It
// returns nil when REDIS_DISABLED is set or the ping fails.
func NewRedisClient(ctx context.Context) *redis.Client {
	if envBool("REDIS_DISABLED", false) {
		return nil
	}
	client := redis.NewClient(RedisOptions())
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
