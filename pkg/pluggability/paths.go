package pluggability

import (
	"log/slog"
	"path"
	"slices"

	"github.com/715d/pluggability/internal/naming"
)

// RequirePaths returns the paths, relative to subdir, that a derivative
// module named moduleName might live at for the given kind. Called with
// "Socket", "drivers" and "DataDriver" it returns
//
//	["drivers/socket_data_driver", "drivers/socket"]
//
// so the conventional "<name>_<kind>" form is tried first.
func RequirePaths(moduleName, subdir, kind string) []string {
	mod := naming.Underscore(moduleName)
	paths := []string{mod, mod + "_" + naming.Underscore(kind)}

	if subdir != "" {
		for i, p := range paths {
			paths[i] = path.Join(subdir, p)
		}
	}

	paths = slices.Compact(paths)
	slices.Reverse(paths)
	return paths
}

// PathCandidates returns every path a derivative module named moduleName
// might map to, prefix by prefix in the configured order.
func (t *Type) PathCandidates(moduleName string) ([]string, error) {
	kind, err := t.Kind()
	if err != nil {
		return nil, err
	}

	prefixes := t.Prefixes()
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, prefix := range prefixes {
		for _, p := range RequirePaths(moduleName, prefix, kind) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	slog.Debug("path candidates", "module", moduleName, "candidates", out)
	return out, nil
}
