// Package storage keeps finished analyses in BadgerDB so repeated requests
// for the same position and candidates are answered without recomputing.
package storage

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmentor/internal/errors"
	"github.com/hailam/chessmentor/internal/explain"
)

// keyPrefix namespaces analysis entries inside the database.
const keyPrefix = "analysis/"

// AnalysisCache is an explain.ResultCache backed by BadgerDB. Entries
// expire after the configured TTL; a zero TTL keeps them forever.
type AnalysisCache struct {
	db  *badger.DB
	ttl time.Duration
	log zerolog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ explain.ResultCache = (*AnalysisCache)(nil)

// Option configures an AnalysisCache.
type Option func(*AnalysisCache)

// WithTTL sets how long entries live.
func WithTTL(ttl time.Duration) Option {
	return func(ac *AnalysisCache) { ac.ttl = ttl }
}

// WithLogger routes cache and badger messages to l.
func WithLogger(l zerolog.Logger) Option {
	return func(ac *AnalysisCache) { ac.log = l }
}

// Open opens (or creates) the cache database in dir.
func Open(dir string, opts ...Option) (*AnalysisCache, error) {
	return open(badger.DefaultOptions(dir), opts)
}

// OpenInMemory opens a cache that lives only as long as the process.
func OpenInMemory(opts ...Option) (*AnalysisCache, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), opts)
}

func open(bopts badger.Options, opts []Option) (*AnalysisCache, error) {
	ac := &AnalysisCache{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(ac)
	}
	bopts.Logger = badgerLogger{ac.log}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "open analysis cache %s", bopts.Dir)
	}
	ac.db = db
	return ac, nil
}

// Close closes the database.
func (ac *AnalysisCache) Close() error {
	if ac.db != nil {
		return ac.db.Close()
	}
	return nil
}

// Get returns the analysis stored under key. Expired entries are misses.
func (ac *AnalysisCache) Get(key string) (*explain.Analysis, bool, error) {
	var result *explain.Analysis

	err := ac.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			result = new(explain.Analysis)
			return json.Unmarshal(val, result)
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("analysis cache get %s: %w", key, err)
	}

	if result == nil {
		ac.misses.Add(1)
		return nil, false, nil
	}
	ac.hits.Add(1)
	return result, true, nil
}

// Put stores a under key.
func (ac *AnalysisCache) Put(key string, a *explain.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "encode analysis")
	}

	err = ac.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+key), data)
		if ac.ttl > 0 {
			e = e.WithTTL(ac.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("analysis cache put %s: %w", key, err)
	}
	ac.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("analysis cached")
	return nil
}

// Len counts the live entries.
func (ac *AnalysisCache) Len() (int, error) {
	n := 0
	err := ac.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Clear drops every cached analysis.
func (ac *AnalysisCache) Clear() error {
	return ac.db.DropPrefix([]byte(keyPrefix))
}

// Stats returns the hit and miss counts since Open.
func (ac *AnalysisCache) Stats() (hits, misses uint64) {
	return ac.hits.Load(), ac.misses.Load()
}

// badgerLogger adapts zerolog to badger.Logger. Badger's info chatter is
// demoted to debug.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(trim(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(trim(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(trim(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(trim(format), args...)
}

func trim(format string) string {
	for len(format) > 0 && format[len(format)-1] == '\n' {
		format = format[:len(format)-1]
	}
	return format
}
