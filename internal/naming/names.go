// Package naming derives the lookup keys and module names used to resolve
// derivatives by a short, human-chosen name.
package naming

import (
	"regexp"
	"strings"
)

var (
	// camelBoundary matches a lowercase letter or digit followed by an uppercase letter.
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

	// leadingWord matches the first run of word characters.
	leadingWord = regexp.MustCompile(`^\w+`)

	// trailingNonWord matches any trailing non-word characters.
	trailingNonWord = regexp.MustCompile(`\W+$`)
)

// SimpleName strips any namespace qualifier from name ("Outer::FooService"
// and "outer.FooService" both become "FooService") and keeps the leading run
// of word characters.
func SimpleName(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if w := leadingWord.FindString(name); w != "" {
		return w
	}
	return name
}

// Uncamelcase inserts an underscore at every lower-to-upper word boundary.
// Casing is left untouched: "FooService" becomes "Foo_Service".
func Uncamelcase(s string) string {
	return camelBoundary.ReplaceAllString(s, "${1}_${2}")
}

// Underscore returns the lowercase, underscore-separated form of s.
func Underscore(s string) string {
	return strings.ToLower(Uncamelcase(s))
}

// Variants returns the ordered, de-duplicated lookup keys a derivative
// named name is registered under, given the kind of its root type.
// The last element is the derivative's canonical name. An empty name
// (an anonymous derivative) has no variants.
func Variants(name, kind string) []string {
	if name == "" {
		return nil
	}

	simple := SimpleName(name)
	keys := []string{simple, strings.ToLower(simple), Underscore(simple)}

	var simpler string
	if kind != "" && len(simple) >= len(kind) && strings.EqualFold(simple[len(simple)-len(kind):], kind) {
		simpler = simple[:len(simple)-len(kind)]
	} else {
		simpler = trailingNonWord.ReplaceAllString(simple, "")
	}
	if simpler != "" {
		keys = append(keys, simpler, strings.ToLower(simpler), Underscore(simpler))
	}

	return dedup(keys)
}

// ModuleName returns the unique part of a requested derivative name. When
// the request ends with the kind ("My::FooService" for "Service"), the
// namespace and the kind suffix are stripped ("Foo"); otherwise the request
// is returned unchanged.
func ModuleName(requested, kind string) string {
	if kind == "" || !strings.HasSuffix(requested, kind) {
		return requested
	}
	head := strings.TrimSuffix(requested, kind)
	if i := strings.LastIndex(head, "::"); i >= 0 {
		head = head[i+2:]
	}
	if i := strings.LastIndex(head, "."); i >= 0 {
		head = head[i+1:]
	}
	// The kind must follow at least one word character.
	if !endsWithWordChar(head) {
		return requested
	}
	return head
}

func endsWithWordChar(s string) bool {
	if s == "" {
		return false
	}
	c := s[len(s)-1]
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func dedup(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
