package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/muratoffalex/omnibot/internal/database"
)

// SQLStore keeps values in the kv table of the bot database.
type SQLStore struct {
	db database.Database
}

func NewSQLStore(db database.Database) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var expiresAt int64

	err := s.db.QueryRowContext(ctx, `
        SELECT data, expires_at
        FROM kv
        WHERE key = ?
    `, key).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if expired(expiresAt, time.Now()) {
		return nil, false, s.Delete(ctx, key)
	}

	return data, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	_, err := s.db.ExecWithRetry(ctx, `
        INSERT INTO kv (key, data, expires_at, updated_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET
            data = excluded.data,
            expires_at = excluded.expires_at,
            updated_at = CURRENT_TIMESTAMP
    `, key, data, expiresAt(ttl))
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecWithRetry(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecWithRetry(ctx, "DELETE FROM kv")
	return err
}

func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.db.PurgeExpiredKeys(ctx, time.Now())
}
