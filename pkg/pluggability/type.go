// Package pluggability resolves concrete implementations of a pluggable base
// type by a short, human-chosen name, loading the implementation on demand.
//
// A base type enables the mechanism with NewBase (or Enable). Every type
// declared from it with Derive is registered synchronously under several
// variants of its name, so that
//
//	base := pluggability.NewBase("Listener", nil)
//	foo := base.MustDerive("FooListener", newFoo)
//
// can be created with base.Create("FooListener"), base.Create("foo") or
// base.Create(foo). When a name is not registered yet, candidate paths are
// derived from it and handed to a Loader, which is expected to run code that
// declares the missing derivative.
package pluggability

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/715d/pluggability/internal/naming"
)

// Constructor builds an instance of a type from forwarded arguments.
type Constructor func(args ...any) (any, error)

// Type is a node in a hierarchy of pluggable types.
type Type struct {
	name       string
	parent     *Type
	ctor       Constructor
	seq        uint64
	pluginName string

	// desc is set once the type enables pluggability.
	desc atomic.Pointer[descriptor]
}

// descriptor holds the state of a type that enabled pluggability. Settings
// left nil are inherited from the nearest pluggable ancestor.
type descriptor struct {
	mu         sync.RWMutex
	prefixes   []string
	exclusions []Rule
	loader     Loader
	finder     Finder

	derivatives *Registry
}

var (
	typeSeq atomic.Uint64

	pluggablesMu sync.RWMutex
	pluggables   []*Type
)

// New declares a type that is not part of any pluggable hierarchy.
func New(name string, ctor Constructor) *Type {
	return newType(name, nil, ctor)
}

// NewBase declares a type and enables pluggability on it.
func NewBase(name string, ctor Constructor) *Type {
	return New(name, ctor).Enable()
}

func newType(name string, parent *Type, ctor Constructor) *Type {
	return &Type{
		name:   name,
		parent: parent,
		ctor:   ctor,
		seq:    typeSeq.Add(1),
	}
}

// Pluggables returns every type that has enabled pluggability, in the order
// they did so.
func Pluggables() []*Type {
	pluggablesMu.RLock()
	defer pluggablesMu.RUnlock()
	return slices.Clone(pluggables)
}

// Enable makes t the base of its own pluggable hierarchy. Types derived from
// t afterwards are registered with t rather than with t's own base.
// Enabling an already pluggable type is a no-op.
func (t *Type) Enable() *Type {
	d := &descriptor{derivatives: NewRegistry()}
	if !t.desc.CompareAndSwap(nil, d) {
		return t
	}
	pluggablesMu.Lock()
	pluggables = append(pluggables, t)
	pluggablesMu.Unlock()
	slog.Debug("enabled pluggability", "type", t.name)
	return t
}

// IsPluggable reports whether t itself enabled pluggability.
func (t *Type) IsPluggable() bool {
	return t.desc.Load() != nil
}

// Name returns the name t was declared with.
func (t *Type) Name() string {
	return t.name
}

// PluginName returns the canonical name t was registered under, the last
// of its name variants. It is empty for bases and anonymous derivatives.
func (t *Type) PluginName() string {
	return t.pluginName
}

// Parent returns the type t was derived from, or nil.
func (t *Type) Parent() *Type {
	return t.parent
}

// String returns the declared name, or a placeholder for anonymous types.
func (t *Type) String() string {
	if t.name == "" {
		return fmt.Sprintf("#<anonymous type %d>", t.seq)
	}
	return t.name
}

// Ancestors returns t followed by each of its ancestors, nearest first.
func (t *Type) Ancestors() []*Type {
	var out []*Type
	for cur := t; cur != nil; cur = cur.parent {
		out = append(out, cur)
	}
	return out
}

// IsDescendantOf reports whether t is other or derives from it.
func (t *Type) IsDescendantOf(other *Type) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Root returns the nearest type in t's ancestry (t included) that enabled
// pluggability.
func (t *Type) Root() (*Type, error) {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.IsPluggable() {
			return cur, nil
		}
	}
	return nil, &RootNotFoundError{Type: t.String()}
}

// Kind returns the name used to classify t's derivatives: the simple name
// of its pluggable base.
func (t *Type) Kind() (string, error) {
	root, err := t.Root()
	if err != nil {
		return "", err
	}
	return naming.SimpleName(root.name), nil
}

// Derive declares a subtype of t and registers it with t's pluggable base
// under every variant of name. An empty name declares an anonymous
// derivative that can only be resolved by identity.
func (t *Type) Derive(name string, ctor Constructor) (*Type, error) {
	root, err := t.Root()
	if err != nil {
		return nil, &RootNotFoundError{Type: name}
	}
	sub := newType(name, t, ctor)
	root.register(sub)
	return sub, nil
}

// MustDerive is like Derive but panics if t is not part of a pluggable
// hierarchy. It simplifies declaring derivatives in package-level variables.
func (t *Type) MustDerive(name string, ctor Constructor) *Type {
	sub, err := t.Derive(name, ctor)
	if err != nil {
		panic(err)
	}
	return sub
}

// register records sub in the registry of t, which must be pluggable. sub
// is fully initialized before it becomes visible to readers.
func (t *Type) register(sub *Type) {
	slog.Debug("type inherited", "base", t.String(), "type", sub.String())

	keys := naming.Variants(sub.name, naming.SimpleName(t.name))
	if len(keys) == 0 {
		slog.Debug("no name-based variants for anonymous type", "type", sub.String())
	} else {
		sub.pluginName = keys[len(keys)-1]
	}

	reg := t.desc.Load().derivatives
	reg.Add(sub)
	for _, key := range keys {
		reg.Register(key, sub)
	}
	slog.Debug("set plugin name", "type", sub.String(), "plugin_name", sub.pluginName)
}

// Derivatives returns a snapshot of the registry of t's pluggable base,
// keyed by name variant.
func (t *Type) Derivatives() (map[string]*Type, error) {
	reg, err := t.registry()
	if err != nil {
		return nil, err
	}
	return reg.Keys(), nil
}

// DerivativeTypes returns the distinct derivatives registered with t's
// pluggable base, in declaration order.
func (t *Type) DerivativeTypes() ([]*Type, error) {
	reg, err := t.registry()
	if err != nil {
		return nil, err
	}
	return reg.Types(), nil
}

// Lookup returns the derivative registered under key. Keys are matched
// exactly; name-based resolution lowercases the request first.
func (t *Type) Lookup(key string) (*Type, bool) {
	reg, err := t.registry()
	if err != nil {
		return nil, false
	}
	return reg.Lookup(key)
}

func (t *Type) registry() (*Registry, error) {
	root, err := t.Root()
	if err != nil {
		return nil, err
	}
	return root.desc.Load().derivatives, nil
}

// pluggableAncestors returns the descriptors of every pluggable type in t's
// ancestry, nearest first.
func (t *Type) pluggableAncestors() []*descriptor {
	var out []*descriptor
	for cur := t; cur != nil; cur = cur.parent {
		if d := cur.desc.Load(); d != nil {
			out = append(out, d)
		}
	}
	return out
}
