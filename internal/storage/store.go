package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/database"
	"github.com/muratoffalex/omnibot/internal/logger"
)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrNoDatabase     = errors.New("sqlite storage requires a database")
)

// Store is a byte oriented key-value store with optional expiry.
// A ttl <= 0 keeps the value until it is deleted.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Purger is implemented by stores that keep expired values until swept.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// New builds the store selected in the config. db may be nil unless the
// sqlite backend is selected.
func New(cfg config.StorageConfig, db database.Database, log logger.Logger) (Store, error) {
	var (
		persistent Store
		err        error
	)

	switch cfg.Backend {
	case config.StorageBackendMemory:
		return NewMemoryStore(), nil
	case config.StorageBackendSQLite, "":
		if db == nil {
			return nil, ErrNoDatabase
		}
		persistent = NewSQLStore(db)
	case config.StorageBackendBolt:
		persistent, err = NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	log.WithField("backend", cfg.Backend).Debug("Storage initialized")

	if cfg.MemoryLayer {
		return NewLayeredStore(NewMemoryStore(), persistent, log), nil
	}
	return persistent, nil
}

func expiresAt(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return time.Now().Add(ttl).UnixNano()
}

func expired(at int64, now time.Time) bool {
	return at > 0 && at <= now.UnixNano()
}
