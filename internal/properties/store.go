// Package properties is the key/value configuration store read by the
// controllers and the autonomous program loader. Values are kept as text and
// coerced on lookup; a missing or malformed value yields the caller's
// default.
package properties

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Source is the lookup contract the control code depends on.
type Source interface {
	GetDouble(key string, def float64) float64
	GetInt(key string, def int) int
	GetString(key string, def string) string
}

// AutonomousPrefix marks the keys owned by an autonomous program file.
const AutonomousPrefix = "Autonomous"

type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// FromMap returns a store holding a copy of m.
func FromMap(m map[string]string) *Store {
	s := NewStore()
	s.Merge(m)
	return s
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Merge adds or replaces every key in m.
func (s *Store) Merge(m map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range m {
		s.values[k] = v
	}
}

// ReplacePrefix drops every key starting with prefix, then merges m.
func (s *Store) ReplacePrefix(prefix string, m map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			delete(s.values, k)
		}
	}
	for k, v := range m {
		s.values[k] = v
	}
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := lo.Keys(s.values)
	sort.Strings(keys)
	return keys
}

func (s *Store) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Assign(s.values)
}

func (s *Store) lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) GetDouble(key string, def float64) float64 {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return f
}

// GetInt accepts integer text as well as real text, which is truncated toward
// zero.
func (s *Store) GetInt(key string, def int) int {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if i, err := cast.ToIntE(v); err == nil {
		return i
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return int(f)
}

func (s *Store) GetString(key string, def string) string {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}
