package harness

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/pluggability/pkg/vet"
)

// TestAll runs all scenarios under testdata.
func TestAll(t *testing.T) {
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "get current file path")

	harnessDir := filepath.Dir(filename)
	testdataDir := filepath.Join(harnessDir, "..", "..", "testdata")

	testCases := discoverTestCases(t, testdataDir)
	require.NotEmpty(t, testCases, "no test cases found")

	if testing.Verbose() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	for _, tc := range testCases {
		t.Run(tc.Dir, func(t *testing.T) {
			t.Parallel()

			if tc.Vet != nil && testing.Short() {
				t.Skip("loading packages in short mode")
			}

			result := NewHarness(testdataDir).Run(t, tc)
			if !result.Success {
				t.Errorf("Test failed: %s", result.Message)
			}
		})
	}
}

func TestValidateFindings(t *testing.T) {
	dir := filepath.FromSlash("/src/case")
	actual := []vet.Finding{
		{Name: "ShinyPlugin"},
		{Name: "GlitterPlugin", Suppressed: true},
		{Name: "StrayPlugin", Reason: "declared in misc/stray.go"},
	}
	actual[0].Position.Filename = filepath.Join(dir, "plugins", "misc", "wrong.go")

	details := validateFindings(dir, []ExpectedFinding{
		{Name: "ShinyPlugin", File: "plugins/misc/other.go"},
		{Name: "GlitterPlugin"},
		{Name: "MissingPlugin"},
	}, actual)

	require.Equal(t, []string{
		"Should have been reported: MissingPlugin",
		"Should not have been reported: StrayPlugin (declared in misc/stray.go)",
	}, details[:2])
	require.Len(t, details, 4)
	require.Contains(t, strings.Join(details, "\n"), "File mismatch for ShinyPlugin")
	require.Contains(t, strings.Join(details, "\n"), "Suppression mismatch for GlitterPlugin")

	require.Error(t, validateExpectedFindings([]ExpectedFinding{{Name: " "}}))
}

func discoverTestCases(t *testing.T, root string) []*TestCase {
	t.Helper()

	entries, err := os.ReadDir(root)
	require.NoError(t, err)

	var testCases []*TestCase
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "expected.yaml")); err == nil {
			testCases = append(testCases, LoadTestCase(t, dir, root))
		}
	}
	return testCases
}
