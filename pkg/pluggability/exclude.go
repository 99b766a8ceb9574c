package pluggability

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ruleKind distinguishes the variants of Rule.
type ruleKind int

const (
	ruleUnknown ruleKind = iota
	ruleGlob
	ruleRegexp
)

// Rule excludes matching paths from being loaded. A Rule is either a glob
// pattern, where "**" matches any number of directories, or a regular
// expression. The zero Rule matches nothing.
type Rule struct {
	kind ruleKind
	glob string
	re   *regexp.Regexp
}

// Glob returns a rule matching paths against a glob pattern.
func Glob(pattern string) Rule {
	return Rule{kind: ruleGlob, glob: pattern}
}

// Regexp returns a rule matching paths against re.
func Regexp(re *regexp.Regexp) Rule {
	return Rule{kind: ruleRegexp, re: re}
}

// MustRegexp compiles expr and returns a rule matching paths against it.
func MustRegexp(expr string) Rule {
	return Regexp(regexp.MustCompile(expr))
}

// ParseRule parses the textual form of a rule: "/expr/" or "re:expr" is a
// regular expression, anything else is a glob pattern.
func ParseRule(s string) (Rule, error) {
	var expr string
	switch {
	case strings.HasPrefix(s, "re:"):
		expr = strings.TrimPrefix(s, "re:")
	case len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/"):
		expr = s[1 : len(s)-1]
	default:
		return Glob(s), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, err
	}
	return Regexp(re), nil
}

// Matches reports whether path is excluded by r.
func (r Rule) Matches(path string) bool {
	switch r.kind {
	case ruleGlob:
		ok, err := doublestar.Match(r.glob, path)
		if err != nil {
			slog.Warn("invalid exclusion pattern", "pattern", r.glob, "error", err)
			return false
		}
		return ok
	case ruleRegexp:
		if r.re == nil {
			slog.Warn("don't know how to apply exclusion", "rule", r.String())
			return false
		}
		return r.re.MatchString(path)
	default:
		slog.Warn("don't know how to apply exclusion", "rule", r.String())
		return false
	}
}

// String returns the textual form accepted by ParseRule.
func (r Rule) String() string {
	switch r.kind {
	case ruleGlob:
		return r.glob
	case ruleRegexp:
		if r.re == nil {
			return "/<nil>/"
		}
		return "/" + r.re.String() + "/"
	default:
		return "<unknown rule>"
	}
}

// excludedBy returns the first rule matching path.
func excludedBy(rules []Rule, path string) (Rule, bool) {
	for _, r := range rules {
		if r.Matches(path) {
			return r, true
		}
	}
	return Rule{}, false
}
