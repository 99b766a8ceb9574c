package pluggability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequirePaths(t *testing.T) {
	tests := []struct {
		name     string
		module   string
		subdir   string
		kind     string
		expected []string
	}{
		{
			name:     "with_subdir",
			module:   "Socket",
			subdir:   "drivers",
			kind:     "DataDriver",
			expected: []string{"drivers/socket_data_driver", "drivers/socket"},
		},
		{
			name:     "without_subdir",
			module:   "dazzle",
			kind:     "Plugin",
			expected: []string{"dazzle_plugin", "dazzle"},
		},
		{
			name:     "camel_case_module",
			module:   "BlackSheep",
			subdir:   "plugins",
			kind:     "Plugin",
			expected: []string{"plugins/black_sheep_plugin", "plugins/black_sheep"},
		},
		{
			name:     "wildcard",
			module:   "*",
			kind:     "Plugin",
			expected: []string{"*_plugin", "*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, RequirePaths(tt.module, tt.subdir, tt.kind))
		})
	}
}

func TestPathCandidates(t *testing.T) {
	base := NewBase("Plugin", nil)

	got, err := base.PathCandidates("dazzle")
	require.NoError(t, err)
	require.Equal(t, []string{"dazzle_plugin", "dazzle"}, got)

	require.NoError(t, base.SetPrefixes("plugins", "plugins/private"))
	got, err = base.PathCandidates("dazzle")
	require.NoError(t, err)
	require.Equal(t, []string{
		"plugins/dazzle_plugin",
		"plugins/dazzle",
		"plugins/private/dazzle_plugin",
		"plugins/private/dazzle",
	}, got)

	// Duplicate prefixes do not produce duplicate candidates.
	require.NoError(t, base.SetPrefixes("plugins", "plugins/"))
	got, err = base.PathCandidates("dazzle")
	require.NoError(t, err)
	require.Equal(t, []string{"plugins/dazzle_plugin", "plugins/dazzle"}, got)

	_, err = New("Plain", nil).PathCandidates("dazzle")
	require.Error(t, err)
}
