package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"

	yaml "gopkg.in/yaml.v3"

	"github.com/stretchr/testify/require"

	"github.com/715d/pluggability/pkg/vet"
)

// LoaderConfig configures package loading.
type LoaderConfig struct {
	// Dir is the directory to load packages from.
	Dir string

	// BuildTags are build tags to apply.
	BuildTags []string
}

// LoadPackages loads the packages under loaderCfg.Dir, test files included.
func LoadPackages(t *testing.T, loaderCfg *LoaderConfig) []*packages.Package {
	t.Helper()

	env := updateEnv(os.Environ(), "CGO_ENABLED", "0")

	t.Logf("Loading packages from %q", loaderCfg.Dir)
	pkgs, err := vet.LoadPackages(t.Context(), vet.LoaderOptions{
		Packages:  []string{"./..."},
		BuildTags: loaderCfg.BuildTags,
		Dir:       loaderCfg.Dir,
		Env:       env,
		Tests:     true,
	})
	require.NoError(t, err)
	return pkgs
}

// LoadTestCase loads a test case from a directory with a specified testdata root.
func LoadTestCase(t *testing.T, dir, root string) *TestCase {
	t.Helper()

	tc := &TestCase{}
	data, err := os.ReadFile(filepath.Join(dir, "expected.yaml"))
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, tc))

	tc.Dir = filepath.Base(dir)
	if root != "" {
		if relPath, err := filepath.Rel(root, dir); err == nil {
			tc.Dir = relPath
		}
	}
	return tc
}

// updateEnv updates or adds an environment variable
func updateEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
