// Package snapshot is the client-side profile cache. It holds the last
// bundle the portal loaded so repeated views skip the network.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"karmasri/internal/metrics"
)

type Config struct {
	// Path is the badger directory; ignored when InMemory.
	Path     string
	InMemory bool
	// TTL expires entries; zero keeps them until invalidated.
	TTL time.Duration
	Log *zap.Logger
}

type Cache struct {
	db  *badger.DB
	ttl time.Duration
	log *zap.Logger
}

type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, a ...any)   { l.log.Errorf(f, a...) }
func (l badgerLogger) Warningf(f string, a ...any) { l.log.Warnf(f, a...) }
func (l badgerLogger) Infof(f string, a ...any)    { l.log.Debugf(f, a...) }
func (l badgerLogger) Debugf(f string, a ...any)   { l.log.Debugf(f, a...) }

func Open(cfg Config) (*Cache, error) {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("snapshot: path required")
		}
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("snapshot: create dir %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{log: cfg.Log.Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open badger: %w", err)
	}
	return &Cache{db: db, ttl: cfg.TTL, log: cfg.Log}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get decodes the entry at key into v. It reports false on a miss.
func (c *Cache) Get(key string, v any) (bool, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.SnapshotLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("snapshot: get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		// a corrupt entry is treated as a miss and dropped
		c.log.Warn("drop unreadable snapshot", zap.String("key", key), zap.Error(err))
		_ = c.Invalidate(key)
		metrics.SnapshotLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	metrics.SnapshotLookups.WithLabelValues("hit").Inc()
	return true, nil
}

// Put replaces the entry at key.
func (c *Cache) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", key, err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), raw)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("snapshot: put %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Invalidate(key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("snapshot: invalidate %s: %w", key, err)
	}
	return nil
}
