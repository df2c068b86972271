package session

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Session carries per-connection planner state: an identity, the default
// catalog and the session property overrides. Safe for concurrent use.
type Session struct {
	id string

	mu      sync.RWMutex
	catalog string
	values  map[string]string
}

// New creates a session with every property at its default.
func New() *Session {
	return &Session{
		id:     uuid.NewString(),
		values: make(map[string]string),
	}
}

// NewWithDefaults creates a session and applies the given property
// overrides on top of the built-in defaults. Unknown names or invalid
// values fail.
func NewWithDefaults(overrides map[string]string) (*Session, error) {
	s := New()
	for name, value := range overrides {
		if err := s.Set(name, value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID returns the session identity.
func (s *Session) ID() string {
	return s.id
}

// Catalog returns the default catalog name, empty when unset.
func (s *Session) Catalog() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// SetCatalog switches the default catalog.
func (s *Session) SetCatalog(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = name
}

// Set validates and stores a property value.
func (s *Session) Set(name, value string) error {
	def, ok := LookupProperty(name)
	if !ok {
		return fmt.Errorf("unknown session property: %s", name)
	}
	canonical, err := def.normalize(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", def.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[def.Name] = canonical
	return nil
}

// Get returns the effective value of a property (override or default).
func (s *Session) Get(name string) (string, bool) {
	def, ok := LookupProperty(name)
	if !ok {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[def.Name]; ok {
		return v, true
	}
	return def.Default, true
}

// All returns every property with its effective value, keyed by name.
func (s *Session) All() map[string]string {
	out := make(map[string]string, len(propertyDefs))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, def := range propertyDefs {
		if v, ok := s.values[name]; ok {
			out[name] = v
		} else {
			out[name] = def.Default
		}
	}
	return out
}

// JoinDistributionType returns the effective distribution mode.
func (s *Session) JoinDistributionType() DistributionMode {
	v, _ := s.Get(PropJoinDistributionType)
	return DistributionMode(v)
}

// JoinReorderingStrategy returns the effective reordering strategy.
func (s *Session) JoinReorderingStrategy() ReorderStrategy {
	v, _ := s.Get(PropJoinReorderingStrategy)
	return ReorderStrategy(v)
}

// JoinMaxBroadcastTableSize returns the broadcast size limit in bytes.
func (s *Session) JoinMaxBroadcastTableSize() uint64 {
	v, _ := s.Get(PropJoinMaxBroadcastTableSize)
	bytes, err := humanize.ParseBytes(v)
	if err != nil {
		// Values are validated on Set, so only a broken default gets here.
		bytes, _ = humanize.ParseBytes(propertyDefs[PropJoinMaxBroadcastTableSize].Default)
	}
	return bytes
}

// JoinReorderingLimit returns the relation count bound for join order
// search.
func (s *Session) JoinReorderingLimit() int {
	v, _ := s.Get(PropJoinReorderingLimit)
	n, _ := strconv.Atoi(v)
	return n
}

// TaskCount returns the assumed worker task count.
func (s *Session) TaskCount() int {
	v, _ := s.Get(PropTaskCount)
	n, _ := strconv.Atoi(v)
	return n
}

// Debug reports whether verbose optimizer tracing is on.
func (s *Session) Debug() bool {
	v, _ := s.Get(PropDebug)
	b, _ := strconv.ParseBool(v)
	return b
}
