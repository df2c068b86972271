// Package api is the embedding surface of the planner: a DB holds the
// registered catalogs and hands out sessions that parse, plan and explain
// queries against them.
package api

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/tesseradb/tessera/pkg/catalog"
	"github.com/tesseradb/tessera/pkg/session"
)

// DB manages catalogs and creates sessions. It is safe for concurrent use.
type DB struct {
	mu              sync.RWMutex
	catalogs        map[string]catalog.Catalog
	defaultCatalog  string
	sessionDefaults map[string]string
	planCache       *PlanCache
	logger          Logger
	closed          bool
}

// DBConfig configures a DB. The zero value is usable: info-level logging,
// no session property overrides, plan caching per DefaultPlanCacheConfig.
type DBConfig struct {
	Logger Logger
	// SessionDefaults overrides session properties for every session the
	// DB creates, e.g. {"join_distribution_type": "BROADCAST"}.
	SessionDefaults map[string]string
	PlanCache       *PlanCacheConfig
}

// NewDB creates an empty DB. Session defaults are validated here so a bad
// property name or value fails fast instead of on first use.
func NewDB(config *DBConfig) (*DB, error) {
	if config == nil {
		config = &DBConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = NewDefaultLogger(LogInfo)
	}
	if _, err := session.NewWithDefaults(config.SessionDefaults); err != nil {
		return nil, WrapError(err, ErrCodeInvalidParam, "invalid session defaults")
	}
	cacheConfig := DefaultPlanCacheConfig
	if config.PlanCache != nil {
		cacheConfig = *config.PlanCache
	}

	defaults := make(map[string]string, len(config.SessionDefaults))
	for k, v := range config.SessionDefaults {
		defaults[k] = v
	}
	return &DB{
		catalogs:        make(map[string]catalog.Catalog),
		sessionDefaults: defaults,
		planCache:       NewPlanCache(cacheConfig),
		logger:          logger,
	}, nil
}

// RegisterCatalog registers a catalog under its own name. The first
// registered catalog becomes the default.
func (db *DB) RegisterCatalog(cat catalog.Catalog) error {
	if cat == nil {
		return Errorf(ErrCodeInvalidParam, "catalog cannot be nil")
	}
	name := cat.Name()
	if name == "" {
		return Errorf(ErrCodeInvalidParam, "catalog name cannot be empty")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return Errorf(ErrCodeClosed, "db is closed")
	}
	if _, exists := db.catalogs[name]; exists {
		return Errorf(ErrCodeCatalogExists, "catalog %q already registered", name)
	}
	db.catalogs[name] = cat
	if db.defaultCatalog == "" {
		db.defaultCatalog = name
	}

	// Plans cached against earlier catalog contents may be stale now.
	db.planCache.Clear()
	db.logger.Debug("registered catalog %q", name)
	return nil
}

// Catalog returns the named catalog.
func (db *DB) Catalog(name string) (catalog.Catalog, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, Errorf(ErrCodeClosed, "db is closed")
	}
	cat, exists := db.catalogs[name]
	if !exists {
		return nil, Errorf(ErrCodeCatalogNotFound, "catalog %q not found", name)
	}
	return cat, nil
}

// DefaultCatalog returns the default catalog.
func (db *DB) DefaultCatalog() (catalog.Catalog, error) {
	db.mu.RLock()
	name := db.defaultCatalog
	db.mu.RUnlock()
	if name == "" {
		return nil, Errorf(ErrCodeCatalogNotFound, "no catalog registered")
	}
	return db.Catalog(name)
}

// SetDefaultCatalog switches the default catalog.
func (db *DB) SetDefaultCatalog(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.catalogs[name]; !exists {
		return Errorf(ErrCodeCatalogNotFound, "catalog %q not found", name)
	}
	db.defaultCatalog = name
	return nil
}

// CatalogNames lists the registered catalogs, sorted.
func (db *DB) CatalogNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.catalogs))
	for name := range db.catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Session creates a session with the DB's session defaults. The defaults
// were validated by NewDB, so creation cannot fail.
func (db *DB) Session() *Session {
	s, err := db.SessionWithProperties(nil)
	if err != nil {
		// Reachable only if a catalog mutated the defaults map, which
		// NewDB copies to prevent.
		panic(err)
	}
	return s
}

// SessionWithProperties creates a session with per-session property
// overrides applied on top of the DB's defaults.
func (db *DB) SessionWithProperties(props map[string]string) (*Session, error) {
	db.mu.RLock()
	merged := make(map[string]string, len(db.sessionDefaults)+len(props))
	for k, v := range db.sessionDefaults {
		merged[k] = v
	}
	db.mu.RUnlock()
	for k, v := range props {
		merged[k] = v
	}

	sess, err := session.NewWithDefaults(merged)
	if err != nil {
		return nil, WrapError(err, ErrCodeInvalidParam, "invalid session properties")
	}
	db.logger.Debug("created session %s", sess.ID())
	return newSession(db, sess, db.logger), nil
}

// SessionFor wraps an externally managed planner session, such as one
// held in a session.Registry keyed by client ID. Property state lives in
// sess and survives across wraps.
func (db *DB) SessionFor(sess *session.Session) *Session {
	return newSession(db, sess, db.logger)
}

// PlanCacheStats reports the explain cache counters.
func (db *DB) PlanCacheStats() PlanCacheStats {
	return db.planCache.Stats()
}

// SetLogger replaces the DB logger. Existing sessions keep theirs.
func (db *DB) SetLogger(logger Logger) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.logger = logger
}

// Close releases every catalog that holds resources. The DB rejects use
// afterwards.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	var lastErr error
	for name, cat := range db.catalogs {
		var err error
		switch c := cat.(type) {
		case interface{ Close(context.Context) error }:
			err = c.Close(context.Background())
		case io.Closer:
			err = c.Close()
		}
		if err != nil {
			lastErr = err
			db.logger.Error("closing catalog %q: %v", name, err)
		}
	}
	db.catalogs = make(map[string]catalog.Catalog)
	db.planCache.Clear()
	return lastErr
}
