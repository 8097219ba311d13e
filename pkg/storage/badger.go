package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	dataPrefix = "obj:data:"
	typePrefix = "obj:type:"

	gcDiscardRatio = 0.5
)

// BadgerStore keeps objects in an embedded Badger database. Objects are
// served by this process at <baseURL>/storage/<key>.
type BadgerStore struct {
	db      *badger.DB
	baseURL string
	logger  *zap.Logger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) the store in dir. An empty dir keeps
// everything in memory, which tests use.
func NewBadgerStore(dir, baseURL string, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = badgerLogger{logger.Named("badger").Sugar()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return &BadgerStore{
		db:      db,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("storage"),
	}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataPrefix+key), data); err != nil {
			return err
		}
		return txn.Set([]byte(typePrefix+key), []byte(contentType))
	})
	if err != nil {
		return "", fmt.Errorf("failed to store object %q: %w", key, err)
	}

	s.logger.Debug("Stored object", zap.String("key", key), zap.Int("bytes", len(data)))
	return s.PublicURL(key), nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := validateKey(key); err != nil {
		return nil, "", err
	}

	var data []byte
	var contentType string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataPrefix + key))
		if err != nil {
			return err
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return err
		}

		item, err = txn.Get([]byte(typePrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			contentType = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, "", notFound(key)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return data, contentType, nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(dataPrefix + key)); err != nil {
			return err
		}
		return txn.Delete([]byte(typePrefix + key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}

	s.logger.Debug("Deleted object", zap.String("key", key))
	return nil
}

// PublicURL is where the storage handler serves key.
func (s *BadgerStore) PublicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/storage/" + strings.Join(parts, "/")
}

// RunGC collects the value log every interval until ctx is done.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.collect()
		}
	}
}

func (s *BadgerStore) collect() {
	rewrites := 0
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			rewrites++
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
			s.logger.Warn("Value log GC failed", zap.Error(err))
		}
		break
	}
	if rewrites > 0 {
		s.logger.Debug("Value log GC rewrote files", zap.Int("count", rewrites))
	}
}

// badgerLogger routes Badger's logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
