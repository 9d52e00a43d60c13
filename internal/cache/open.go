package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"pkm/internal/config"
)

// Open builds the backend named by cfg.CacheBackend, wrapped with metrics.
// The returned func releases the backend's connection.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Cache, func(), error) {
	switch cfg.CacheBackend {
	case "memory", "":
		logger.Info("cache backend", "backend", "memory", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return NewInstrumented(NewMemory(cfg.CacheSize, cfg.CacheTTL), "memory"), func() {}, nil

	case "nats":
		nc, err := nats.Connect(cfg.NATSURL,
			nats.Name("pkm"),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATSURL, err)
		}

		kv, err := NewNATS(ctx, nc, cfg.NATSBucket, cfg.CacheTTL)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}

		logger.Info("cache backend", "backend", "nats", "url", cfg.NATSURL, "bucket", cfg.NATSBucket, "ttl", cfg.CacheTTL)
		return NewInstrumented(kv, "nats"), nc.Close, nil

	case "none":
		logger.Info("cache backend", "backend", "none")
		return Noop{}, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q (want memory, nats or none)", cfg.CacheBackend)
	}
}
