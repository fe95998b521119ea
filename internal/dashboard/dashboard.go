// Package dashboard is the operator telemetry store. Control code only
// writes to it, except for live-tunable gains which are read back through
// GetNumber.
package dashboard

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Sink receives named telemetry values.
type Sink interface {
	PutNumber(key string, v float64)
	PutBoolean(key string, v bool)
	PutString(key string, v string)
}

// Entry is one published value.
type Entry struct {
	Key   string
	Value any
}

type Board struct {
	mu     sync.RWMutex
	values map[string]any
}

func New() *Board {
	return &Board{values: make(map[string]any)}
}

func (b *Board) PutNumber(key string, v float64) { b.put(key, v) }
func (b *Board) PutBoolean(key string, v bool)   { b.put(key, v) }
func (b *Board) PutString(key string, v string)  { b.put(key, v) }

func (b *Board) put(key string, v any) {
	b.mu.Lock()
	b.values[key] = v
	b.mu.Unlock()
}

// GetNumber returns the number stored under key, or def if the key is absent
// or holds another type.
func (b *Board) GetNumber(key string, def float64) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.values[key].(float64); ok {
		return v
	}
	return def
}

// Snapshot returns every entry sorted by key.
func (b *Board) Snapshot() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := lo.Keys(b.values)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) Entry {
		return Entry{Key: k, Value: b.values[k]}
	})
}

// Discard drops everything written to it.
var Discard Sink = discard{}

type discard struct{}

func (discard) PutNumber(string, float64) {}
func (discard) PutBoolean(string, bool)   {}
func (discard) PutString(string, string)  {}
