package packet

import (
	"fmt"
	"sort"

	"firestige.xyz/strix/pkg/codec"
)

// NewLayerFunc constructs an empty layer ready for DecodeHeader.
type NewLayerFunc func() Layer

// Registry maps (table, identifier) keys to layer constructors. It is meant
// to be populated once during process setup and read concurrently afterwards;
// registration must happen-before any Decode call, which is why lookups take
// no lock.
type Registry struct {
	entries map[NextProto]NewLayerFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[NextProto]NewLayerFunc)}
}

// Register binds a layer constructor to a (table, id) key. Registering the
// same key twice is a configuration error, surfaced here rather than at
// lookup time.
func (reg *Registry) Register(table string, id uint32, fn NewLayerFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil layer constructor for %s/%d", codec.ErrConfig, table, id)
	}
	key := NextProto{Table: table, ID: id}
	if _, exists := reg.entries[key]; exists {
		return fmt.Errorf("%w: %s/%d already registered", codec.ErrConfig, table, id)
	}
	reg.entries[key] = fn
	return nil
}

// MustRegister is like Register but panics on error. For use in setup code.
func (reg *Registry) MustRegister(table string, id uint32, fn NewLayerFunc) {
	if err := reg.Register(table, id, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the constructor bound to (table, id). A missing entry is not
// an error: it means the remaining bytes are opaque to this registry.
func (reg *Registry) Lookup(table string, id uint32) (NewLayerFunc, bool) {
	fn, ok := reg.entries[NextProto{Table: table, ID: id}]
	return fn, ok
}

// Len returns the number of registered entries.
func (reg *Registry) Len() int { return len(reg.entries) }

// Keys returns the registered (table, id) keys sorted by table then id.
func (reg *Registry) Keys() []NextProto {
	keys := make([]NextProto, 0, len(reg.entries))
	for key := range reg.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Table != keys[j].Table {
			return keys[i].Table < keys[j].Table
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}
