package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/715d/pluggability/internal/naming"
	"github.com/715d/pluggability/pkg/pluggability"
	"github.com/715d/pluggability/pkg/vet"
)

// Path statuses reported by find.
const (
	statusLoadable = "loadable"
	statusExcluded = "excluded"
	statusNotFile  = "not a file"
)

func newCandidatesCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates NAME...",
		Short: "List the paths tried for each requested name, in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.newBase(nil)
			if err != nil {
				return errWithCode(err, exitError)
			}
			kind, _ := base.Kind()

			results := make([]candidateResult, 0, len(args))
			for _, name := range args {
				module := naming.ModuleName(name, kind)
				candidates, err := base.PathCandidates(module)
				if err != nil {
					return errWithCode(err, exitError)
				}
				results = append(results, candidateResult{Name: name, Module: module, Candidates: candidates})
			}

			if cfg.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"candidates": results})
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s:\n", r.Name)
				for _, c := range r.Candidates {
					fmt.Fprintf(out, "  %s\n", c)
				}
			}
			return nil
		},
	}
}

type candidateResult struct {
	Name       string   `json:"name"`
	Module     string   `json:"module"`
	Candidates []string `json:"candidates"`
}

func newFindCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "find NAME...",
		Short: "Show the files each requested name would load, without loading them",
		Long: `find searches the roots for every candidate of each name and reports
the files it matches in the order they would be loaded. It exits with
status 1 when a name matches no loadable file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cfg.newBase(nil)
			if err != nil {
				return errWithCode(err, exitError)
			}
			kind, _ := base.Kind()
			finder := cfg.finder()

			var (
				results []findResult
				missing []string
			)
			for _, name := range args {
				candidates, err := base.PathCandidates(naming.ModuleName(name, kind))
				if err != nil {
					return errWithCode(err, exitError)
				}
				loadable := false
				for _, candidate := range candidates {
					paths, err := finder.Find(candidate)
					if err != nil {
						return errWithCode(fmt.Errorf("searching for %s: %w", candidate, err), exitError)
					}
					for _, p := range paths {
						r := findResult{Name: name, Candidate: candidate, Path: p, Status: statusLoadable}
						switch {
						case base.IsExcluded(p):
							r.Status = statusExcluded
						case !finder.IsRegularFile(p):
							r.Status = statusNotFile
						default:
							loadable = true
						}
						results = append(results, r)
					}
				}
				if !loadable {
					missing = append(missing, name)
				}
			}

			if cfg.JSON {
				if err := writeJSON(cmd.OutOrStdout(), map[string]any{"matches": results, "missing": missing}); err != nil {
					return errWithCode(err, exitError)
				}
			} else {
				writeFindText(cmd.OutOrStdout(), results, missing, cfg.Verbose)
			}

			if len(missing) > 0 {
				return errWithCode(nil, exitFindings)
			}
			return nil
		},
	}
}

type findResult struct {
	Name      string `json:"name"`
	Candidate string `json:"candidate"`
	Path      string `json:"path"`
	Status    string `json:"status"`
}

func writeFindText(out io.Writer, results []findResult, missing []string, verbose bool) {
	for _, r := range results {
		switch {
		case r.Status == statusLoadable:
			fmt.Fprintf(out, "%s: %s\n", r.Name, r.Path)
		case verbose:
			fmt.Fprintf(out, "%s: %s (%s)\n", r.Name, r.Path, r.Status)
		}
	}
	for _, name := range missing {
		fmt.Fprintf(out, "%s: no loadable file\n", name)
	}
}

func newLoadAllCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "load-all",
		Short: "Load every plugin under the search roots and list what they declare",
		Long: `load-all opens every plugin reachable through the configured prefixes
(or named after the kind, when there are none) and lists the derivatives
each base type knows afterwards. It exits with status 1 when a plugin
fails to load.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var failures []loadFailure
			inner := cfg.loader
			if inner == nil {
				inner = pluggability.PluginLoader{}
			}
			loader := pluggability.LoaderFunc(func(path string) error {
				err := inner.Load(path)
				if err != nil {
					failures = append(failures, loadFailure{Path: path, Error: err.Error()})
				}
				return err
			})

			base, err := cfg.newBase(loader)
			if err != nil {
				return errWithCode(err, exitError)
			}

			start := time.Now()
			if _, err := base.LoadAll(); err != nil {
				return errWithCode(err, exitError)
			}
			slog.Info("loaded plugins", "dur", time.Since(start), "failures", len(failures))

			// Plugins declare derivatives of the bases they import, so
			// report every base that has any.
			var bases []baseResult
			for _, p := range pluggability.Pluggables() {
				types, err := p.DerivativeTypes()
				if err != nil || len(types) == 0 {
					continue
				}
				r := baseResult{Base: p.String()}
				for _, typ := range types {
					r.Derivatives = append(r.Derivatives, derivativeResult{Name: typ.String(), PluginName: typ.PluginName()})
				}
				bases = append(bases, r)
			}

			if cfg.JSON {
				if err := writeJSON(cmd.OutOrStdout(), map[string]any{"bases": bases, "failures": failures}); err != nil {
					return errWithCode(err, exitError)
				}
			} else {
				out := cmd.OutOrStdout()
				for _, b := range bases {
					fmt.Fprintf(out, "%s:\n", b.Base)
					for _, d := range b.Derivatives {
						fmt.Fprintf(out, "  %s (%s)\n", d.Name, d.PluginName)
					}
				}
				for _, f := range failures {
					fmt.Fprintf(out, "failed to load %s: %s\n", f.Path, f.Error)
				}
			}

			if len(failures) > 0 {
				return errWithCode(nil, exitFindings)
			}
			return nil
		},
	}
}

type baseResult struct {
	Base        string             `json:"base"`
	Derivatives []derivativeResult `json:"derivatives"`
}

type derivativeResult struct {
	Name       string `json:"name"`
	PluginName string `json:"plugin_name"`
}

type loadFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func newVetCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vet [packages...]",
		Short: "Find derivatives declared where loading by name will not look",
		Long: `vet reports every derivative declared in a plugin (main) package whose
directory and file names match none of the paths a request for it tries.
The kind of each derivative is traced back to its base; --kind is used for
derivatives whose base cannot be traced.

Suppress a finding with //nolint:pluggability on or above the declaration.`,
		Example: `  pluggability vet ./...
  pluggability vet --kind Plugin ./plugins/...`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if len(patterns) == 0 {
				patterns = []string{"./..."}
			}

			start := time.Now()
			slog.Info("loading packages", "packages", patterns)
			if len(cfg.BuildTags) > 0 {
				slog.Info("using build tags", "tags", cfg.BuildTags)
			}
			pkgs, err := vet.LoadPackages(cmd.Context(), vet.LoaderOptions{
				Packages:  patterns,
				BuildTags: cfg.BuildTags,
				Tests:     true,
			})
			if err != nil {
				return errWithCode(fmt.Errorf("loading packages: %w", err), exitError)
			}
			slog.Info("loaded packages", "num", len(pkgs))

			findings, err := vet.NewAnalyzer(vet.Options{
				Kind:          cfg.Kind,
				SkipGenerated: cfg.SkipGenerated,
			}).Analyze(pkgs)
			if err != nil {
				return errWithCode(fmt.Errorf("analyze packages: %w", err), exitError)
			}
			slog.Info("analysis completed", "dur", time.Since(start))

			if cfg.JSON {
				if err := writeJSON(cmd.OutOrStdout(), map[string]any{"findings": findings}); err != nil {
					return errWithCode(err, exitError)
				}
			} else {
				writeFindingsText(cmd.OutOrStdout(), findings, cfg.Verbose)
			}

			for _, f := range findings {
				if !f.Suppressed {
					return errWithCode(nil, exitFindings)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&cfg.BuildTags, "build-tags", []string{}, "Build tags to use during package loading")
	cmd.Flags().BoolVar(&cfg.SkipGenerated, "skip-generated", true, "Skip files with generated code markers (e.g., '// Code generated')")
	return cmd
}

func writeFindingsText(out io.Writer, findings []vet.Finding, verbose bool) {
	if len(findings) == 0 {
		slog.Info("no misplaced derivatives found")
		return
	}

	var b strings.Builder
	for _, f := range findings {
		switch {
		case !verbose && f.Suppressed:
			continue
		case !verbose:
			// Format: filename:line:column name
			fmt.Fprintf(&b, "%s:%d:%d %s\n", f.Position.Filename, f.Position.Line, f.Position.Column, f.Name)
		case f.Suppressed:
			fmt.Fprintf(&b, "  %s:%d:%d %s (suppressed: %s)\n", f.Position.Filename, f.Position.Line, f.Position.Column, f.Name, f.Reason)
		default:
			fmt.Fprintf(&b, "  %s:%d:%d %s (%s)\n", f.Position.Filename, f.Position.Line, f.Position.Column, f.Name, f.Reason)
		}
	}
	_, _ = io.WriteString(out, b.String())
}

type jOutput struct {
	Result    any    `json:"result"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(out io.Writer, result any) error {
	data, err := json.MarshalIndent(jOutput{
		Result:    result,
		Version:   version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
