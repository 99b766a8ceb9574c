package pluggability

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps lookup keys to the derivatives of one pluggable type.
// Several keys may map to the same type; every registered type is also
// recorded under its own identity. Entries are never removed.
//
// Registry is safe for concurrent use.
type Registry struct {
	byName *xsync.Map[string, *Type]
	byType *xsync.Map[*Type, struct{}]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: xsync.NewMap[string, *Type](),
		byType: xsync.NewMap[*Type, struct{}](),
	}
}

// Add records t under its type identity.
func (r *Registry) Add(t *Type) {
	r.byType.Store(t, struct{}{})
}

// Register stores t under key, replacing any type previously stored there.
func (r *Registry) Register(key string, t *Type) {
	slog.Debug("registering derivative", "key", key, "type", t.String())
	r.byType.Store(t, struct{}{})
	r.byName.Store(key, t)
}

// Lookup returns the type stored under key. Keys are matched exactly.
func (r *Registry) Lookup(key string) (*Type, bool) {
	return r.byName.Load(key)
}

// Contains reports whether t has been registered.
func (r *Registry) Contains(t *Type) bool {
	_, ok := r.byType.Load(t)
	return ok
}

// Keys returns a snapshot of the name keys and the types they map to.
func (r *Registry) Keys() map[string]*Type {
	out := make(map[string]*Type, r.byName.Size())
	r.byName.Range(func(key string, t *Type) bool {
		out[key] = t
		return true
	})
	return out
}

// Types returns the distinct registered types in declaration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, 0, r.byType.Size())
	r.byType.Range(func(t *Type, _ struct{}) bool {
		out = append(out, t)
		return true
	})
	slices.SortFunc(out, func(a, b *Type) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

// Names returns the sorted name keys.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.Keys()))
}
