package pluggability

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRule_Matches(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		path     string
		expected bool
	}{
		{name: "recursive_glob", rule: Glob("**/third.so"), path: "lib/plugins/private/third.so", expected: true},
		{name: "recursive_glob_top_level", rule: Glob("**/third.so"), path: "third.so", expected: true},
		{name: "recursive_glob_other_file", rule: Glob("**/third.so"), path: "lib/plugins/third_party.so", expected: false},
		{name: "directory_glob", rule: Glob("spec/**"), path: "spec/lib/helpers.so", expected: true},
		{name: "single_star_stays_in_segment", rule: Glob("lib/*.so"), path: "lib/plugins/x.so", expected: false},
		{name: "regexp", rule: MustRegexp(`_test\.so$`), path: "lib/plugins/dazzle_test.so", expected: true},
		{name: "regexp_no_match", rule: Regexp(regexp.MustCompile(`^spec/`)), path: "lib/spec/x.so", expected: false},
		{name: "bad_glob_never_matches", rule: Glob("lib/[x"), path: "lib/[x", expected: false},
		{name: "zero_rule_never_matches", rule: Rule{}, path: "anything", expected: false},
		{name: "nil_regexp_never_matches", rule: Regexp(nil), path: "anything", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.rule.Matches(tt.path))
		})
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		path     string
		matches  bool
	}{
		{input: "**/third.so", expected: "**/third.so", path: "a/third.so", matches: true},
		{input: "/^spec/", expected: "/^spec/", path: "spec/x.so", matches: true},
		{input: "re:private", expected: "/private/", path: "plugins/private/x.so", matches: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			rule, err := ParseRule(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, rule.String())
			require.Equal(t, tt.matches, rule.Matches(tt.path))
		})
	}

	_, err := ParseRule("re:(")
	require.Error(t, err)
}

func TestIsExcluded(t *testing.T) {
	base := NewBase("Plugin", nil)
	require.False(t, base.IsExcluded("lib/plugins/third.so"))

	require.NoError(t, base.SetExclusions(Glob("**/third.so"), MustRegexp(`/spec/`)))
	require.True(t, base.IsExcluded("lib/plugins/third.so"))
	require.True(t, base.IsExcluded("lib/spec/first.so"))
	require.False(t, base.IsExcluded("lib/plugins/first.so"))
	require.Len(t, base.Exclusions(), 2)
}
