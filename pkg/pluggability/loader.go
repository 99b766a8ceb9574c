package pluggability

import (
	"errors"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/715d/pluggability/internal/naming"
)

// Loader loads the code at a path, which is expected to declare one or more
// derivatives as a side effect. Load returns an error matching
// ErrModuleNotFound or fs.ErrNotExist when nothing exists at path; any other
// error means something was found but failed to load.
type Loader interface {
	Load(path string) error
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) error

// Load implements Loader.
func (f LoaderFunc) Load(path string) error {
	return f(path)
}

// IsNotFound reports whether err is a Loader's "nothing at this path" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrModuleNotFound) || errors.Is(err, fs.ErrNotExist)
}

// LoadDerivative searches for the module implementing the derivative named
// name and loads it, returning the path that loaded. It fails with a
// *NotRegisteredError when the module loaded but did not declare a
// derivative answering to name.
func (t *Type) LoadDerivative(name string) (string, error) {
	slog.Debug("loading derivative", "name", name)

	kind, err := t.Kind()
	if err != nil {
		return "", err
	}

	loaded, err := t.requireDerivative(naming.ModuleName(name, kind))
	if err != nil {
		return "", err
	}

	if _, ok := t.Lookup(strings.ToLower(name)); !ok {
		err := &NotRegisteredError{Path: loaded, Kind: kind, Name: strings.ToLower(name)}
		slog.Error(err.Error())
		return "", err
	}
	return loaded, nil
}

// requireDerivative tries every candidate path for moduleName in order and
// returns the first one that loads. Missing modules are skipped; when every
// candidate fails, the first error from a module that exists but failed to
// load is returned as is.
func (t *Type) requireDerivative(moduleName string) (string, error) {
	kind, err := t.Kind()
	if err != nil {
		return "", err
	}
	candidates, err := t.PathCandidates(moduleName)
	if err != nil {
		return "", err
	}

	finder := t.finderFor()
	loader := t.loaderFor()

	var fatals []error
	seen := make(map[string]struct{})
	for _, candidate := range candidates {
		paths, err := finder.Find(candidate)
		if err != nil {
			slog.Warn("searching for candidate failed", "candidate", candidate, "error", err)
			continue
		}
		for _, p := range paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}

			if t.IsExcluded(p) || !finder.IsRegularFile(p) {
				continue
			}

			slog.Debug("trying to load", "path", p)
			err := loader.Load(p)
			switch {
			case err == nil:
				return p, nil
			case IsNotFound(err):
				slog.Debug("no module at path", "path", p, "error", err)
			default:
				slog.Debug("module failed to load", "path", p, "error", err)
				fatals = append(fatals, err)
			}
		}
	}

	// A module was found but broken; report that rather than "not found".
	if len(fatals) > 0 {
		slog.Error("derivative failed to load", "module", moduleName, "error", fatals[0])
		return "", fatals[0]
	}

	err = &NotFoundError{Kind: kind, Name: moduleName, Tried: candidates}
	slog.Error(err.Error())
	return "", err
}

// loadAllPatterns returns the globs searched by LoadAll: "<prefix>/*" for
// each prefix, or the kind-suffixed name pattern when none are set.
func (t *Type) loadAllPatterns() ([]string, error) {
	kind, err := t.Kind()
	if err != nil {
		return nil, err
	}

	prefixes := t.Prefixes()
	if len(prefixes) > 0 {
		slog.Debug("using plugin prefixes to build load patterns", "prefixes", prefixes)
		patterns := make([]string, 0, len(prefixes))
		for _, prefix := range prefixes {
			patterns = append(patterns, strings.TrimSuffix(prefix, "/")+"/*")
		}
		return patterns, nil
	}

	// Every pattern but the last, which would match anything.
	slog.Debug("using plugin kind to build load patterns", "kind", kind)
	patterns := RequirePaths("*", "", kind)
	return patterns[:len(patterns)-1], nil
}

// LoadAll finds and loads every derivative module reachable through the
// configured prefixes (or the kind-derived pattern when none are set) and
// returns the derivatives registered afterwards. Failures to load are logged
// and skipped. The only error returned is a *RootNotFoundError.
func (t *Type) LoadAll() ([]*Type, error) {
	slog.Debug("loading all derivatives", "type", t.String())

	patterns, err := t.loadAllPatterns()
	if err != nil {
		return nil, err
	}

	finder := t.finderFor()
	loader := t.loaderFor()

	// Each goroutine writes only its own index; loading happens afterwards,
	// sequentially and in pattern order.
	matches := make([][]string, len(patterns))
	var g errgroup.Group
	for i, glob := range patterns {
		g.Go(func() error {
			found, err := finder.Find(glob)
			if err != nil {
				slog.Warn("finding derivatives failed", "pattern", glob, "error", err)
				return nil
			}
			slog.Debug("found matching files", "pattern", glob, "count", len(found))
			matches[i] = found
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	for _, p := range slices.Concat(matches...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		if t.IsExcluded(p) || !finder.IsRegularFile(p) {
			continue
		}
		if err := loader.Load(p); err != nil {
			slog.Warn("failed to load derivative", "path", p, "error", err)
		}
	}

	return t.DerivativeTypes()
}
