package pluggability

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"plugin"
)

// OpenError reports a Go plugin that exists but could not be opened, for
// example because it was built against different package versions.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening plugin %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// PluginLoader loads Go plugins built with -buildmode=plugin. Opening a
// plugin runs its init functions, which declare its derivatives. It is the
// default Loader.
type PluginLoader struct{}

// Load implements Loader.
func (PluginLoader) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrModuleNotFound)
		}
		return err
	}
	if _, err := plugin.Open(path); err != nil {
		return &OpenError{Path: path, Err: err}
	}
	return nil
}
