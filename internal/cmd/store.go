package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/rl1809/shop-admin/internal/adapter/storage"
	"github.com/rl1809/shop-admin/internal/config"
	"github.com/rl1809/shop-admin/internal/port"
)

// openStateStore builds the state store selected by storage.driver. The
// returned func releases its connections.
func openStateStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (port.StateStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory state store, data is lost on restart")
		return storage.NewMemoryStore(), noop, nil

	case "file":
		store, err := storage.NewFileStore(afero.NewOsFs(), cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file state store", "dir", cfg.Dir)
		return store, noop, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: 50,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
		return storage.NewRedisStore(rdb, cfg.Redis.Prefix), rdb.Close, nil

	case "mysql", "postgres":
		db, err := sql.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Driver, err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
		}

		store, err := storage.NewSQLStore(db, storage.Dialect(cfg.Driver))
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to sql state store", "driver", cfg.Driver)
		return store, db.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
