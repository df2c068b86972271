package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// StatsStore persists collected table statistics across restarts.
type StatsStore interface {
	// Get returns stored stats, (nil, nil) when absent.
	Get(ctx context.Context, catalog, table string) (*TableStats, error)
	Put(ctx context.Context, catalog, table string, stats *TableStats) error
	Delete(ctx context.Context, catalog, table string) error
	Close() error
}

// statsKeyPrefix namespaces stats entries.
// Key format: stats:{catalog}:{table}
const statsKeyPrefix = "stats:"

func statsKey(catalog, table string) []byte {
	return []byte(statsKeyPrefix + catalog + ":" + table)
}

// BadgerStatsStore stores JSON-encoded statistics in a Badger database,
// on disk or in memory.
type BadgerStatsStore struct {
	mu     sync.Mutex
	db     *badger.DB
	closed bool
}

// BadgerStoreOptions configures OpenBadgerStats.
type BadgerStoreOptions struct {
	// Dir is the on-disk location; ignored when InMemory is set.
	Dir      string
	InMemory bool
}

// OpenBadgerStats opens (creating if needed) a stats store.
func OpenBadgerStats(opts BadgerStoreOptions) (*BadgerStatsStore, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats store: %w", err)
	}
	return &BadgerStatsStore{db: db}, nil
}

func (s *BadgerStatsStore) Get(ctx context.Context, catalog, table string) (*TableStats, error) {
	var stats *TableStats
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(statsKey(catalog, table))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			stats = &TableStats{}
			return json.Unmarshal(val, stats)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read stats for %s.%s failed: %w", catalog, table, err)
	}
	return stats, nil
}

func (s *BadgerStatsStore) Put(ctx context.Context, catalog, table string, stats *TableStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats for %s.%s failed: %w", catalog, table, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(statsKey(catalog, table), data)
	})
	if err != nil {
		return fmt.Errorf("write stats for %s.%s failed: %w", catalog, table, err)
	}
	return nil
}

func (s *BadgerStatsStore) Delete(ctx context.Context, catalog, table string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(statsKey(catalog, table))
	})
	if err != nil {
		return fmt.Errorf("delete stats for %s.%s failed: %w", catalog, table, err)
	}
	return nil
}

// ListTables returns the tables with stored stats for a catalog, in key
// order.
func (s *BadgerStatsStore) ListTables(ctx context.Context, catalog string) ([]string, error) {
	prefix := []byte(statsKeyPrefix + catalog + ":")
	var tables []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			tables = append(tables, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list stats for %s failed: %w", catalog, err)
	}
	return tables, nil
}

func (s *BadgerStatsStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
