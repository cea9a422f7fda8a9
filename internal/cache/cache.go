// Package cache stores upstream HTTP responses on disk so that repeated requests
// for the same session do not hit the network.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// Cache is a key/value store of response bodies.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, body []byte) error
}

const (
	databaseName = "responses.db"
	bucketName   = "responses"
)

var bucket = []byte(bucketName)

type entry struct {
	Fetched time.Time `json:"fetched"`
	Body    []byte    `json:"body"`
}

// BoltCache is a Cache backed by a bbolt database. Entries older than ttl are
// treated as missing; a zero ttl keeps entries forever.
type BoltCache struct {
	db  *bbolt.DB
	ttl time.Duration

	now func() time.Time
}

func Open(dir string, ttl time.Duration) (*BoltCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "cache: could not create %s", dir)
	}

	db, err := bbolt.Open(filepath.Join(dir, databaseName), 0644, &bbolt.Options{Timeout: 5 * time.Second})

	if err != nil {
		return nil, errors.Wrap(err, "cache: could not open database")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)

		return err
	})

	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "cache: could not create bucket")
	}

	return &BoltCache{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *BoltCache) Get(key string) ([]byte, bool, error) {
	var e *entry

	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))

		if data == nil {
			return nil
		}

		// data is only valid for the life of the transaction, Unmarshal copies it
		return json.Unmarshal(data, &e)
	})

	if err != nil {
		return nil, false, errors.Wrapf(err, "cache: could not read %s", key)
	}

	if e == nil {
		return nil, false, nil
	}

	if c.ttl > 0 && c.now().Sub(e.Fetched) > c.ttl {
		return nil, false, nil
	}

	return e.Body, true, nil
}

func (c *BoltCache) Put(key string, body []byte) error {
	data, err := json.Marshal(entry{Fetched: c.now(), Body: body})

	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

// Nop is a Cache that stores nothing.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Put(string, []byte) error         { return nil }
