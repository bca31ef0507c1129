// Package backend picks the storage.Storage implementation named by the
// configuration. It is the one place that knows every driver.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/storage/redis"
	"github.com/aanand-mishra/student-records/internal/storage/sqlite"
)

// Open connects to the configured backend. For SQLite the parent directory
// of the database file is created if needed.
func Open(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		r, err := redis.New(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return r, nil

	case config.DriverSQLite, "":
		if dir := filepath.Dir(cfg.Storage.Path); dir != "." && cfg.Storage.Path != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("backend.Open: create %s: %w", dir, err)
			}
		}
		s, err := sqlite.New(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("backend.Open: unknown storage driver %q", cfg.Storage.Driver)
	}
}
