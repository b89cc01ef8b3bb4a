package storage

import (
	"context"
	"errors"
	"time"

	"github.com/muratoffalex/omnibot/internal/logger"
)

// promoteTTL bounds how long a value read from the persistent level lives
// in memory, since its real expiry is unknown there.
const promoteTTL = time.Minute

// LayeredStore serves reads from memory and writes through to the
// persistent level.
type LayeredStore struct {
	memory     Store
	persistent Store
	logger     logger.Logger
}

func NewLayeredStore(memory, persistent Store, logger logger.Logger) *LayeredStore {
	return &LayeredStore{
		memory:     memory,
		persistent: persistent,
		logger:     logger,
	}
}

func (s *LayeredStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, found, _ := s.memory.Get(ctx, key); found {
		return data, true, nil
	}

	data, found, err := s.persistent.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	_ = s.memory.Set(ctx, key, data, promoteTTL)
	return data, true, nil
}

func (s *LayeredStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.persistent.Set(ctx, key, data, ttl); err != nil {
		return err
	}

	memoryTTL := promoteTTL
	if ttl > 0 && ttl < memoryTTL {
		memoryTTL = ttl
	}
	_ = s.memory.Set(ctx, key, data, memoryTTL)
	return nil
}

func (s *LayeredStore) Delete(ctx context.Context, key string) error {
	if err := s.memory.Delete(ctx, key); err != nil {
		s.logger.WithError(err).Error("Failed to delete from memory store")
	}

	if err := s.persistent.Delete(ctx, key); err != nil {
		s.logger.WithError(err).Error("Failed to delete from persistent store")
		return err
	}

	return nil
}

func (s *LayeredStore) Clear(ctx context.Context) error {
	if err := s.memory.Clear(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to clear memory store")
	}

	if err := s.persistent.Clear(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to clear persistent store")
		return err
	}

	return nil
}

func (s *LayeredStore) PurgeExpired(ctx context.Context) (int64, error) {
	var (
		removed int64
		errs    []error
	)
	for _, level := range []Store{s.memory, s.persistent} {
		if p, ok := level.(Purger); ok {
			n, err := p.PurgeExpired(ctx)
			removed += n
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// Close closes the persistent level when it holds resources.
func (s *LayeredStore) Close() error {
	if c, ok := s.persistent.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
