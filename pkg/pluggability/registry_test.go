package pluggability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	a := New("Alpha", nil)
	b := New("Beta", nil)

	reg.Register("alpha", a)
	reg.Register("Alpha", a)

	got, ok := reg.Lookup("alpha")
	require.True(t, ok)
	require.Same(t, a, got)

	_, ok = reg.Lookup("ALPHA")
	require.False(t, ok, "lookups are exact")

	// Later registrations win.
	reg.Register("alpha", b)
	got, ok = reg.Lookup("alpha")
	require.True(t, ok)
	require.Same(t, b, got)

	require.Equal(t, []string{"Alpha", "alpha"}, reg.Names())
}

func TestRegistry_TypesAreDistinctAndOrdered(t *testing.T) {
	reg := NewRegistry()
	first := New("First", nil)
	second := New("Second", nil)
	anon := New("", nil)

	reg.Register("second", second)
	reg.Register("first", first)
	reg.Register("1st", first)
	reg.Add(anon)

	require.Equal(t, []*Type{first, second, anon}, reg.Types())
	require.True(t, reg.Contains(anon))
	require.False(t, reg.Contains(New("Other", nil)))
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	base := NewBase("Plugin", nil)
	want := base.MustDerive("ReadPlugin", constant("read"))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				got, ok := base.Lookup("read")
				if !ok || got != want {
					t.Errorf("lookup returned %v, %v", got, ok)
					return
				}
				if _, err := base.Create("read"); err != nil {
					t.Errorf("create: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
