// Package suppress implements comment-based suppression of vet findings.
package suppress

import (
	"fmt"
	"go/ast"
	"go/token"
	"regexp"
	"strings"
)

// Linter is the name findings are suppressed under.
const Linter = "pluggability"

// Checker handles nolint and lint:ignore comment suppression. A directive
// applies to code on its own line and on the line that follows it.
type Checker struct {
	// suppressions maps file name and line to the directive found there
	suppressions map[string]map[int]*Suppression

	// fset is the file set for position calculations
	fset *token.FileSet
}

// Suppression represents a parsed suppression directive.
type Suppression struct {
	Position token.Pos
	Reason   string
	Type     SuppressionType
}

// SuppressionType represents different types of suppression comments.
type SuppressionType int

const (
	// SuppressionNolint represents //nolint:pluggability comments.
	SuppressionNolint SuppressionType = iota

	// SuppressionLintIgnore represents //lint:ignore pluggability comments.
	SuppressionLintIgnore
)

var (
	// nolintPattern matches //nolint:pluggability comments
	nolintPattern = regexp.MustCompile(`//\s*nolint:` + Linter + `(?:\s+//\s*(.+))?$`)

	// lintIgnorePattern matches //lint:ignore pluggability comments
	lintIgnorePattern = regexp.MustCompile(`//\s*lint:ignore\s+` + Linter + `(?:\s+(.+))?`)

	// genericNolintPattern matches //nolint comments without specific linter
	genericNolintPattern = regexp.MustCompile(`//\s*nolint(?:\s|$)`)

	// nolintWithMultipleRules matches nolint with comma-separated rules
	nolintWithMultipleRules = regexp.MustCompile(`//\s*nolint:([^/]+)`)
)

// NewChecker creates a new suppression checker.
func NewChecker() *Checker {
	return &Checker{
		suppressions: make(map[string]map[int]*Suppression),
	}
}

// Load parses suppression comments from AST files.
func (sc *Checker) Load(fset *token.FileSet, files []*ast.File) error {
	if fset == nil {
		return fmt.Errorf("fset cannot be nil")
	}
	if files == nil {
		return fmt.Errorf("files cannot be nil")
	}
	sc.fset = fset

	for _, file := range files {
		if file == nil {
			continue
		}
		for _, commentGroup := range file.Comments {
			for _, comment := range commentGroup.List {
				suppression := sc.parseComment(comment)
				if suppression == nil {
					continue
				}
				pos := fset.Position(comment.Pos())
				byLine := sc.suppressions[pos.Filename]
				if byLine == nil {
					byLine = make(map[int]*Suppression)
					sc.suppressions[pos.Filename] = byLine
				}
				byLine[pos.Line] = suppression
			}
		}
	}
	return nil
}

// parseComment parses a comment to check if it's a suppression directive.
func (sc *Checker) parseComment(comment *ast.Comment) *Suppression {
	text := comment.Text

	if matches := nolintPattern.FindStringSubmatch(text); matches != nil {
		return &Suppression{
			Position: comment.Pos(),
			Reason:   strings.TrimSpace(matches[1]),
			Type:     SuppressionNolint,
		}
	}

	if matches := lintIgnorePattern.FindStringSubmatch(text); matches != nil {
		return &Suppression{
			Position: comment.Pos(),
			Reason:   strings.TrimSpace(matches[1]),
			Type:     SuppressionLintIgnore,
		}
	}

	if genericNolintPattern.MatchString(text) {
		return &Suppression{Position: comment.Pos(), Type: SuppressionNolint}
	}

	if matches := nolintWithMultipleRules.FindStringSubmatch(text); len(matches) > 1 {
		for rule := range strings.SplitSeq(matches[1], ",") {
			if strings.TrimSpace(rule) != Linter {
				continue
			}
			var reason string
			if _, after, ok := strings.Cut(text[2:], "//"); ok {
				reason = strings.TrimSpace(after)
			}
			return &Suppression{Position: comment.Pos(), Reason: reason, Type: SuppressionNolint}
		}
	}

	return nil
}

// IsSuppressed checks whether a directive covers pos, either on the same
// line or on the line before it.
func (sc *Checker) IsSuppressed(pos token.Pos) (bool, string) {
	if sc.fset == nil || !pos.IsValid() {
		return false, ""
	}
	position := sc.fset.Position(pos)
	byLine := sc.suppressions[position.Filename]
	for _, line := range []int{position.Line, position.Line - 1} {
		if s, ok := byLine[line]; ok {
			if s.Reason == "" {
				return true, "suppressed"
			}
			return true, s.Reason
		}
	}
	return false, ""
}

// Clear clears all suppressions.
func (sc *Checker) Clear() {
	sc.suppressions = make(map[string]map[int]*Suppression)
}

func (sc *Checker) count() int {
	var n int
	for _, byLine := range sc.suppressions {
		n += len(byLine)
	}
	return n
}
