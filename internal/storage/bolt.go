package storage

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/boltdb/bolt"
)

var kvBucket = []byte("kv")

// BoltStore keeps values in a single bolt bucket. Each value is prefixed
// with its expiry as big endian unix nanoseconds.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(kvBucket).Get([]byte(key))
		if len(raw) < 8 {
			return nil
		}
		if expired(int64(binary.BigEndian.Uint64(raw[:8])), time.Now()) {
			return nil
		}
		data = append([]byte(nil), raw[8:]...)
		found = true
		return nil
	})

	return data, found, err
}

func (s *BoltStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	value := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(value[:8], uint64(expiresAt(ttl)))
	copy(value[8:], data)

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(kvBucket).Put([]byte(key), value)
	})
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(kvBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Clear(context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(kvBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(kvBucket)
		return err
	})
}

func (s *BoltStore) PurgeExpired(context.Context) (int64, error) {
	var removed int64
	now := time.Now()

	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(kvBucket).Cursor()
		for k, v := c.First(); k != nil; {
			if len(v) >= 8 && expired(int64(binary.BigEndian.Uint64(v[:8])), now) {
				key := append([]byte(nil), k...)
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
				k, v = c.Seek(key)
				continue
			}
			k, v = c.Next()
		}
		return nil
	})

	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
