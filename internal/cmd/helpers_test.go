package cmd

import (
	"io"
	"log/slog"

	"github.com/rl1809/shop-admin/internal/config"
)

func configFor(driver string) config.StorageConfig {
	return config.StorageConfig{Driver: driver}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
