package pluggability

import (
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

// recordingLoader wraps a MapLoader and records every path it is asked for.
type recordingLoader struct {
	*MapLoader

	mu    sync.Mutex
	calls []string
}

func (l *recordingLoader) Load(path string) error {
	l.mu.Lock()
	l.calls = append(l.calls, path)
	l.mu.Unlock()
	return l.MapLoader.Load(path)
}

func (l *recordingLoader) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fixture is a pluggable base wired to an in-memory filesystem rooted at
// "lib" and a recording loader.
type fixture struct {
	base   *Type
	fsys   fstest.MapFS
	loader *recordingLoader
}

func newFixture(t *testing.T, kind string, prefixes ...string) *fixture {
	t.Helper()
	f := &fixture{
		base:   NewBase(kind, nil),
		fsys:   fstest.MapFS{},
		loader: &recordingLoader{MapLoader: NewMapLoader(nil)},
	}
	require.NoError(t, f.base.SetPrefixes(prefixes...))
	require.NoError(t, f.base.SetLoader(f.loader))
	require.NoError(t, f.base.SetFinder(&FSFinder{
		Roots:      []Root{{Dir: "lib", FS: f.fsys}},
		Extensions: []string{".so"},
	}))
	return f
}

// file adds rel to the filesystem and registers fn as its code.
func (f *fixture) file(rel string, fn func() error) {
	f.fsys[rel] = &fstest.MapFile{Data: []byte("plugin")}
	if fn != nil {
		f.loader.Add("lib/"+rel, fn)
	}
}

// declares returns code that derives name from the fixture's base.
func (f *fixture) declares(name string, ctor Constructor) func() error {
	return func() error {
		_, err := f.base.Derive(name, ctor)
		return err
	}
}

func constant(v any) Constructor {
	return func(...any) (any, error) {
		return v, nil
	}
}
