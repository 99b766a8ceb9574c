package pluggability

import (
	"fmt"
	"sync"
)

// MapLoader is a Loader over functions keyed by path, for hosts that compile
// derivatives in but only want them declared when first asked for. Like a
// require, a function that succeeded is not run again.
type MapLoader struct {
	mu     sync.Mutex
	funcs  map[string]func() error
	loaded map[string]bool
}

// NewMapLoader returns a loader over funcs.
func NewMapLoader(funcs map[string]func() error) *MapLoader {
	l := &MapLoader{
		funcs:  make(map[string]func() error, len(funcs)),
		loaded: make(map[string]bool),
	}
	for p, fn := range funcs {
		l.funcs[p] = fn
	}
	return l
}

// Add registers fn as the code at path.
func (l *MapLoader) Add(path string, fn func() error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.funcs[path] = fn
}

// Load implements Loader.
func (l *MapLoader) Load(path string) error {
	l.mu.Lock()
	fn, ok := l.funcs[path]
	done := l.loaded[path]
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", path, ErrModuleNotFound)
	}
	if done {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}

	l.mu.Lock()
	l.loaded[path] = true
	l.mu.Unlock()
	return nil
}

// Loaded reports whether the code at path has loaded successfully.
func (l *MapLoader) Loaded(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[path]
}
