// Package harness runs the scenarios under testdata against the resolver and
// the vet analyzer.
package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/715d/pluggability/pkg/pluggability"
	"github.com/715d/pluggability/pkg/vet"
)

// libDir is the directory the in-memory plugin tree is mounted at.
const libDir = "lib"

// TestCase represents a single test scenario.
type TestCase struct {
	// Dir is the directory containing the test case.
	Dir string `yaml:"-"`

	// Kind is the name of the base type the scenario resolves against.
	Kind string `yaml:"kind"`

	// Prefixes are the search prefixes set on the base.
	Prefixes []string `yaml:"prefixes"`

	// Exclusions are exclusion rules in the form ParseRule accepts.
	Exclusions []string `yaml:"exclusions"`

	// Extensions are the plugin file extensions. Defaults to ".so".
	Extensions []string `yaml:"extensions"`

	// Files is the plugin tree, keyed by path relative to the search root.
	Files map[string]FileSpec `yaml:"files"`

	// Requests are resolved in order against the same base.
	Requests []Request `yaml:"requests"`

	// LoadAll lists the derivative names expected after loading every
	// plugin, or is nil when the scenario does not load all. It runs before
	// Requests.
	LoadAll []string `yaml:"load_all"`

	// Vet configures a run of the vet analyzer over the Go packages in Dir.
	Vet *VetConfig `yaml:"vet,omitempty"`
}

// FileSpec describes what loading a plugin file does.
type FileSpec struct {
	// Declares are the derivatives the file declares when loaded.
	Declares []string `yaml:"declares"`

	// Error makes loading the file fail with this message.
	Error string `yaml:"error,omitempty"`

	// Missing makes the loader report the file as not found.
	Missing bool `yaml:"missing,omitempty"`

	// Dir makes the path a directory rather than a file.
	Dir bool `yaml:"dir,omitempty"`
}

// Request is a single name resolution and its expected outcome.
type Request struct {
	// Name is the requested name.
	Name string `yaml:"name"`

	// Type is the name of the derivative expected to be created.
	Type string `yaml:"type,omitempty"`

	// Error is the expected error class: not_found, not_registered,
	// not_descendant or fatal.
	Error string `yaml:"error,omitempty"`

	// Message is a substring of the expected error message.
	Message string `yaml:"message,omitempty"`

	// Tried are the candidates a not_found error is expected to list.
	Tried []string `yaml:"tried,omitempty"`

	// Loads are the paths expected to be handed to the loader by this
	// request, in order. Nil skips the check.
	Loads []string `yaml:"loads"`
}

// VetConfig configures a vet run.
type VetConfig struct {
	// Kind is the fallback kind for derivatives of untraceable bases.
	Kind string `yaml:"kind,omitempty"`

	// BuildTags are the build tags to use when loading packages.
	BuildTags []string `yaml:"build_tags"`

	// Findings are the findings expected to be reported.
	Findings []ExpectedFinding `yaml:"findings"`
}

// ExpectedFinding represents a derivative expected to be reported.
type ExpectedFinding struct {
	// Name is the declared name of the derivative.
	Name string `yaml:"name"`

	// File is the optional file path, relative to the test case directory.
	File string `yaml:"file,omitempty"`

	// Suppressed is whether the finding is expected to be suppressed.
	Suppressed bool `yaml:"suppressed,omitempty"`
}

// TestResult represents the result of running a test case.
type TestResult struct {
	// TestCase is the test case that was run.
	TestCase *TestCase

	// Success indicates if the test passed.
	Success bool

	// Message provides a summary of the result.
	Message string

	// Details lists every mismatch.
	Details []string
}

// TestHarness manages test execution.
type TestHarness struct {
	// root is the root directory for test data
	root string
}

// NewHarness creates a new test harness.
func NewHarness(root string) *TestHarness {
	return &TestHarness{root: root}
}

// Run executes a test case.
func (h *TestHarness) Run(t *testing.T, tc *TestCase) *TestResult {
	t.Helper()
	require.True(t, tc.Kind != "" || tc.Vet != nil, "test case has neither a kind nor a vet section")

	var details []string
	if tc.Kind != "" {
		details = append(details, h.runScenario(t, tc)...)
	}
	if tc.Vet != nil {
		details = append(details, h.runVet(t, tc)...)
	}

	result := &TestResult{TestCase: tc, Success: len(details) == 0, Details: details}
	if result.Success {
		result.Message = fmt.Sprintf("All %d requests passed", len(tc.Requests))
	} else {
		result.Message = fmt.Sprintf("%d mismatches:\n  %s", len(details), strings.Join(details, "\n  "))
	}
	return result
}

// scenario is the state a resolver test case runs against.
type scenario struct {
	base  *pluggability.Type
	calls []string
}

func (h *TestHarness) runScenario(t *testing.T, tc *TestCase) []string {
	t.Helper()

	s := &scenario{base: pluggability.NewBase(tc.Kind, nil)}
	require.NoError(t, s.base.SetPrefixes(tc.Prefixes...))

	var rules []pluggability.Rule
	for _, expr := range tc.Exclusions {
		rule, err := pluggability.ParseRule(expr)
		require.NoError(t, err)
		rules = append(rules, rule)
	}
	require.NoError(t, s.base.SetExclusions(rules...))

	fsys := fstest.MapFS{}
	modules := pluggability.NewMapLoader(nil)
	for rel, spec := range tc.Files {
		if spec.Dir {
			fsys[rel+"/.keep"] = &fstest.MapFile{}
			continue
		}
		fsys[rel] = &fstest.MapFile{Data: []byte(rel)}
		if spec.Missing {
			continue
		}
		modules.Add(filepath.Join(libDir, rel), s.module(spec))
	}

	extensions := tc.Extensions
	if len(extensions) == 0 {
		extensions = []string{pluggability.DefaultExtension}
	}
	require.NoError(t, s.base.SetFinder(&pluggability.FSFinder{
		Roots:      []pluggability.Root{{Dir: libDir, FS: fsys}},
		Extensions: extensions,
	}))
	require.NoError(t, s.base.SetLoader(pluggability.LoaderFunc(func(path string) error {
		s.calls = append(s.calls, path)
		return modules.Load(path)
	})))

	// Loading everything happens first so that requests can observe it.
	var details []string
	if tc.LoadAll != nil {
		details = append(details, s.loadAll(tc.LoadAll)...)
	}
	for i, req := range tc.Requests {
		for _, d := range s.request(req) {
			details = append(details, fmt.Sprintf("request %d (%q): %s", i, req.Name, d))
		}
	}
	return details
}

// module returns the code that loading a file with spec runs.
func (s *scenario) module(spec FileSpec) func() error {
	if spec.Error != "" {
		return func() error { return errors.New(spec.Error) }
	}
	return func() error {
		for _, name := range spec.Declares {
			if _, err := s.base.Derive(name, func(...any) (any, error) { return name, nil }); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *scenario) request(req Request) []string {
	s.calls = nil
	v, err := s.base.Create(req.Name)

	var details []string
	if req.Loads != nil && !slices.Equal(req.Loads, s.calls) {
		details = append(details, fmt.Sprintf("loaded %q, expected %q", s.calls, req.Loads))
	}

	if req.Error == "" {
		if err != nil {
			return append(details, fmt.Sprintf("unexpected error: %v", err))
		}
		if v != req.Type {
			details = append(details, fmt.Sprintf("created %v, expected %s", v, req.Type))
		}
		return details
	}

	if err == nil {
		return append(details, fmt.Sprintf("created %v, expected %s error", v, req.Error))
	}
	if got := errorClass(err); got != req.Error {
		details = append(details, fmt.Sprintf("got %s error %v, expected %s", got, err, req.Error))
	}
	if req.Message != "" && !strings.Contains(err.Error(), req.Message) {
		details = append(details, fmt.Sprintf("error %q does not contain %q", err, req.Message))
	}
	if req.Tried != nil {
		var notFound *pluggability.NotFoundError
		if errors.As(err, &notFound) && !slices.Equal(req.Tried, notFound.Tried) {
			details = append(details, fmt.Sprintf("tried %q, expected %q", notFound.Tried, req.Tried))
		}
	}
	return details
}

func errorClass(err error) string {
	var (
		notFound      *pluggability.NotFoundError
		notRegistered *pluggability.NotRegisteredError
		notDescendant *pluggability.NotADescendantError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &notRegistered):
		return "not_registered"
	case errors.As(err, &notDescendant):
		return "not_descendant"
	default:
		return "fatal"
	}
}

func (s *scenario) loadAll(expected []string) []string {
	types, err := s.base.LoadAll()
	if err != nil {
		return []string{fmt.Sprintf("load all: %v", err)}
	}
	var got []string
	for _, typ := range types {
		got = append(got, typ.Name())
	}
	sort.Strings(got)
	want := slices.Sorted(slices.Values(expected))
	if !slices.Equal(got, want) {
		return []string{fmt.Sprintf("load all declared %q, expected %q", got, want)}
	}
	return nil
}

func (h *TestHarness) runVet(t *testing.T, tc *TestCase) []string {
	t.Helper()
	dir := filepath.Join(h.root, tc.Dir)
	pkgs := LoadPackages(t, &LoaderConfig{Dir: dir, BuildTags: tc.Vet.BuildTags})

	findings, err := vet.NewAnalyzer(vet.Options{Kind: tc.Vet.Kind}).Analyze(pkgs)
	require.NoError(t, err)

	if err := validateExpectedFindings(tc.Vet.Findings); err != nil {
		return []string{fmt.Sprintf("Invalid expected.yaml: %v", err)}
	}
	return validateFindings(dir, tc.Vet.Findings, findings)
}

// validateExpectedFindings validates that expected findings have required fields
func validateExpectedFindings(expected []ExpectedFinding) error {
	for i, exp := range expected {
		if strings.TrimSpace(exp.Name) == "" {
			return fmt.Errorf("expected finding at index %d has empty or missing 'name' field", i)
		}
	}
	return nil
}

func validateFindings(dir string, expected []ExpectedFinding, actual []vet.Finding) []string {
	expectedMap := make(map[string]ExpectedFinding)
	for _, e := range expected {
		expectedMap[e.Name] = e
	}
	actualMap := make(map[string]vet.Finding)
	for _, a := range actual {
		actualMap[a.Name] = a
	}

	var missing, unexpected []string
	for key := range expectedMap {
		if _, found := actualMap[key]; !found {
			missing = append(missing, key)
		}
	}
	for key := range actualMap {
		if _, found := expectedMap[key]; !found {
			unexpected = append(unexpected, key)
		}
	}
	sort.Strings(missing)
	sort.Strings(unexpected)

	var details []string
	for _, m := range missing {
		details = append(details, "Should have been reported: "+m)
	}
	for _, u := range unexpected {
		details = append(details, fmt.Sprintf("Should not have been reported: %s (%s)", u, actualMap[u].Reason))
	}

	for key, exp := range expectedMap {
		act, found := actualMap[key]
		if !found {
			continue
		}
		if exp.File != "" && relativeFile(dir, act.Position.Filename) != filepath.FromSlash(exp.File) {
			details = append(details, fmt.Sprintf("File mismatch for %s: expected %q, got %q",
				exp.Name, exp.File, act.Position.Filename))
		}
		if exp.Suppressed != act.Suppressed {
			details = append(details, fmt.Sprintf("Suppression mismatch for %s: expected %v", exp.Name, exp.Suppressed))
		}
	}
	return details
}

// relativeFile returns filename relative to dir, or its base name if it is
// not under dir.
func relativeFile(dir, filename string) string {
	rel, err := filepath.Rel(dir, filename)
	if err != nil {
		return filepath.Base(filename)
	}
	return rel
}
