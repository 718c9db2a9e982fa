package config

// Redis backs the OTP code store and the rate limiter. When it cannot be
// reached at startup the client is nil and callers fall back to in-process
// state (OTP) or skip the feature (rate limiting).

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig is read from:
//
//	REDIS_ADDR            host:port (default localhost:6379)
//	REDIS_HOST/REDIS_PORT take precedence over REDIS_ADDR when both are set
//	REDIS_PASSWORD        optional
//	REDIS_DB              database number (default 0)
//	REDIS_TLS             "true"/"1" enables TLS
//	REDIS_DISABLED        skip Redis entirely
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
	Disabled bool
}

func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
		TLS:      envBool("REDIS_TLS", false),
		Disabled: envBool("REDIS_DISABLED", false),
	}
}

// NewRedisClient connects and pings Redis. The returned client is nil when
// Redis is disabled or unreachable.
func NewRedisClient(ctx context.Context, cfg RedisConfig) *redis.Client {
	if cfg.Disabled {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
