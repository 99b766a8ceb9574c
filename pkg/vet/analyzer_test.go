package vet

import (
	"go/types"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

func TestAnalyzer_RejectsBadInput(t *testing.T) {
	_, err := NewAnalyzer(Options{}).Analyze(nil)
	require.ErrorContains(t, err, "no packages")

	_, err = NewAnalyzer(Options{}).Analyze([]*packages.Package{nil})
	require.ErrorContains(t, err, "nil package")
}

func TestAnalyzer_PackageWithoutTypes(t *testing.T) {
	pkg := &packages.Package{ID: "example.com/empty", PkgPath: "example.com/empty", Name: "main"}
	findings, err := NewAnalyzer(Options{Kind: "Plugin"}).Analyze([]*packages.Package{pkg})
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestObjectKey(t *testing.T) {
	pkg := types.NewPackage("example.com/base", "base")
	global := types.NewVar(0, pkg, "Plugin", nil)
	pkg.Scope().Insert(global)
	require.Equal(t, "example.com/base.Plugin", objectKey(global))

	local := types.NewVar(42, pkg, "b", nil)
	types.NewScope(pkg.Scope(), 0, 0, "func").Insert(local)
	require.Equal(t, "example.com/base.b@42", objectKey(local))
}

func TestSamePackage(t *testing.T) {
	tests := []struct {
		key      string
		pkgPath  string
		expected bool
	}{
		{"example.com/plugins/socket.Socket", "example.com/plugins/socket", true},
		{"example.com/plugins/socket.Socket", "example.com/plugins/socket_test", true},
		{"example.com/plugins/socket.b@42", "example.com/plugins/socket", true},
		{"example.com/base.Plugin", "example.com/plugins/socket", false},
		{"example.com/plugins/socketry.Socket", "example.com/plugins/socket", false},
		{"example.com/plugins/socket/sub.Socket", "example.com/plugins/socket", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"_"+tt.pkgPath, func(t *testing.T) {
			require.Equal(t, tt.expected, samePackage(tt.key, tt.pkgPath))
		})
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	if testing.Short() {
		t.Skip("loading packages in short mode")
	}

	dir, err := filepath.Abs(filepath.Join("..", "..", "testdata", "vet-plugins"))
	require.NoError(t, err)
	pkgs, err := LoadPackages(t.Context(), LoaderOptions{Dir: dir})
	require.NoError(t, err)

	t.Run("with_fallback_kind", func(t *testing.T) {
		findings, err := NewAnalyzer(Options{Kind: "Plugin"}).Analyze(pkgs)
		require.NoError(t, err)

		var names []string
		for _, f := range findings {
			names = append(names, f.Name)
		}
		// Sorted by file: dazzle, misc/suppressed.go, misc/wrong.go, untraced.
		require.Equal(t, []string{"LoudDazzlePlugin", "GlitterPlugin", "ShinyPlugin", "TwinklePlugin"}, names)

		shiny := findings[2]
		require.Equal(t, "Plugin", shiny.Kind)
		require.Equal(t, "shiny", shiny.PluginName)
		require.Equal(t, []string{"shiny_plugin", "shiny"}, shiny.Expected)
		require.Equal(t, filepath.Join(dir, "plugins", "misc", "wrong.go"), shiny.Position.Filename)
		require.Equal(t, 5, shiny.Position.Line)
		require.False(t, shiny.Suppressed)
		require.Contains(t, shiny.Reason, `a request for "shiny" only looks for shiny_plugin or shiny`)

		require.True(t, findings[1].Suppressed)
	})

	t.Run("without_fallback_kind", func(t *testing.T) {
		findings, err := NewAnalyzer(Options{}).Analyze(pkgs)
		require.NoError(t, err)
		for _, f := range findings {
			require.NotEqual(t, "TwinklePlugin", f.Name, "untraceable bases are skipped without a kind")
		}
		require.Len(t, findings, 3)
	})
}
