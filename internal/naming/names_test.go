package naming

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "FooService", expected: "FooService"},
		{name: "ruby_style_namespace", input: "Outer::Inner::FooService", expected: "FooService"},
		{name: "go_style_qualifier", input: "plugins.FooService", expected: "FooService"},
		{name: "trailing_garbage", input: "Foo-Service", expected: "Foo"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, SimpleName(tt.input))
		})
	}
}

func TestUncamelcase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "BlackSheep", expected: "Black_Sheep"},
		{input: "blackSheep", expected: "black_Sheep"},
		{input: "Data2Driver", expected: "Data2_Driver"},
		{input: "HTTPPlugin", expected: "HTTPPlugin"},
		{input: "already_snake", expected: "already_snake"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, Uncamelcase(tt.input))
		})
	}
}

func TestVariants(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     string
		expected []string
	}{
		{
			name:     "name_without_kind_suffix",
			input:    "BlackSheep",
			kind:     "Plugin",
			expected: []string{"BlackSheep", "blacksheep", "black_sheep"},
		},
		{
			name:     "name_with_kind_suffix",
			input:    "SubPlugin",
			kind:     "Plugin",
			expected: []string{"SubPlugin", "subplugin", "sub_plugin", "Sub", "sub"},
		},
		{
			name:     "namespaced",
			input:    "Outer::FooService",
			kind:     "Service",
			expected: []string{"FooService", "fooservice", "foo_service", "Foo", "foo"},
		},
		{
			name:     "suffix_match_ignores_case",
			input:    "DazzlePLUGIN",
			kind:     "Plugin",
			expected: []string{"DazzlePLUGIN", "dazzleplugin", "dazzle_plugin", "Dazzle", "dazzle"},
		},
		{
			name:     "multi_word_stem",
			input:    "AlreadyLoadedPlugin",
			kind:     "Plugin",
			expected: []string{"AlreadyLoadedPlugin", "alreadyloadedplugin", "already_loaded_plugin", "AlreadyLoaded", "alreadyloaded", "already_loaded"},
		},
		{
			name:     "name_is_the_kind",
			input:    "Plugin",
			kind:     "Plugin",
			expected: []string{"Plugin", "plugin"},
		},
		{
			name:     "acronym",
			input:    "HTTPPlugin",
			kind:     "Plugin",
			expected: []string{"HTTPPlugin", "httpplugin", "HTTP", "http"},
		},
		{
			name:     "anonymous",
			input:    "",
			kind:     "Plugin",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Variants(tt.input, tt.kind))
		})
	}
}

func TestVariants_LastIsCanonical(t *testing.T) {
	keys := Variants("BlackSheep", "Plugin")
	require.Equal(t, "black_sheep", keys[len(keys)-1])

	keys = Variants("TestingPlugin", "Plugin")
	require.Equal(t, "testing", keys[len(keys)-1])
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		kind      string
		expected  string
	}{
		{name: "kind_suffix", requested: "FooPlugin", kind: "Plugin", expected: "Foo"},
		{name: "namespaced_kind_suffix", requested: "My::FooPlugin", kind: "Plugin", expected: "Foo"},
		{name: "qualified_kind_suffix", requested: "my.FooPlugin", kind: "Plugin", expected: "Foo"},
		{name: "short_name", requested: "dazzle", kind: "Plugin", expected: "dazzle"},
		{name: "namespace_kept_without_suffix", requested: "Outer::dazzle", kind: "Plugin", expected: "Outer::dazzle"},
		{name: "suffix_is_case_sensitive", requested: "foo_plugin", kind: "Plugin", expected: "foo_plugin"},
		{name: "request_is_the_kind", requested: "Plugin", kind: "Plugin", expected: "Plugin"},
		{name: "no_kind", requested: "FooPlugin", kind: "", expected: "FooPlugin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ModuleName(tt.requested, tt.kind))
		})
	}
}
