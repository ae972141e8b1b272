// Package replay хранит отпечатки уже принятых init data payload.
// Окно повторного использования и так ограничено auth_date + maxAge,
// guard закрывает повтор внутри этого окна. Работает локально на один
// процесс; источником истины для идентичности аккаунтов остается
// unique constraint в основной БД.
package replay

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketSeen = []byte("seen_payloads")

// Guard represents a bbolt-backed replay guard
type Guard struct {
	db  *bbolt.DB
	ttl time.Duration
}

// Open opens (or creates) the replay database.
// ttl should match the init data max age: a fingerprint older than ttl
// would be rejected as expired anyway and can be forgotten.
func Open(path string, ttl time.Duration) (*Guard, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open replay db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSeen)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create replay bucket: %w", err)
	}

	return &Guard{db: db, ttl: ttl}, nil
}

// Close closes the replay database
func (g *Guard) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

// MarkSeen регистрирует отпечаток payload. Возвращает true, если
// payload уже был принят раньше и его срок еще не вышел.
func (g *Guard) MarkSeen(fingerprint string, now time.Time) (bool, error) {
	var seen bool

	err := g.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSeen)
		if bucket == nil {
			return fmt.Errorf("replay bucket not found")
		}

		key := []byte(fingerprint)

		if raw := bucket.Get(key); raw != nil {
			expiresAt := int64(binary.BigEndian.Uint64(raw))
			if now.Unix() <= expiresAt {
				seen = true
				return nil
			}
			// Просроченный отпечаток перезаписываем как новый
		}

		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(now.Add(g.ttl).Unix()))

		if err := bucket.Put(key, value); err != nil {
			return fmt.Errorf("failed to store fingerprint: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return seen, nil
}

// Prune удаляет просроченные отпечатки, возвращает число удаленных
func (g *Guard) Prune(now time.Time) (int, error) {
	pruned := 0

	err := g.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSeen)
		if bucket == nil {
			return fmt.Errorf("replay bucket not found")
		}

		cursor := bucket.Cursor()
		var stale [][]byte

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiresAt := int64(binary.BigEndian.Uint64(v))
			if now.Unix() > expiresAt {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete fingerprint: %w", err)
			}
			pruned++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return pruned, nil
}
