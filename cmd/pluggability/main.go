// Package main implements the pluggability command, which shows how
// derivative names resolve to plugin files and checks that plugins are laid
// out where resolution will find them.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/715d/pluggability/pkg/pluggability"
)

// Config holds all command-line configuration options.
type Config struct {
	Verbose       bool     // enables detailed output
	JSON          bool     // enables JSON output format
	File          string   // configuration file
	Kind          string   // name of the base type derivatives are resolved against
	Prefixes      []string // directories searched under each root
	Exclusions    []string // rules for paths that are never loaded
	Paths         []string // search roots
	Extensions    []string // plugin file extensions
	BuildTags     []string // build tags to use during package loading
	SkipGenerated bool     // skip files with generated code markers
	Profile       bool     // enables CPU and memory profiling

	// loader replaces the Go plugin loader for load-all.
	loader pluggability.Loader
}

const (
	exitFindings = 1
	exitError    = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	cfg := &Config{}
	if err := newRootCmd(cfg).Execute(); err != nil {
		_ = teardown(cfg)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr *codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func newRootCmd(cfg *Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pluggability",
		Short: "Resolve plugin names to the files that implement them",
		Long: `pluggability shows how a base type resolves the short names of its
derivatives to plugin files, and checks that plugins are laid out where
that resolution will find them.

Settings are read from .pluggability.yaml in the working directory (or the
file named by --config) and can be overridden by flags. Search roots default
to the directories listed in $PLUGGABILITY_PATH.`,
		Example: `  pluggability --kind Plugin --prefix plugins candidates dazzle
  pluggability --kind Plugin --path ./lib find dazzle sparkle
  pluggability --kind Plugin --path ./lib --json load-all
  pluggability vet ./plugins/...`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, cfg)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return teardown(cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("pluggability version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	flags.StringVar(&cfg.File, "config", defaultConfigFile, "Configuration file")
	flags.StringVar(&cfg.Kind, "kind", "", "Name of the base type, e.g. Plugin or DataDriver")
	flags.StringSliceVar(&cfg.Prefixes, "prefix", nil, "Directory to search for derivatives under each root (repeatable)")
	flags.StringSliceVar(&cfg.Exclusions, "exclude", nil, "Glob, or /regexp/, of paths never to load (repeatable)")
	flags.StringSliceVar(&cfg.Paths, "path", nil, "Root directory to search (repeatable; default $"+pluggability.PathEnv+")")
	flags.StringSliceVar(&cfg.Extensions, "ext", nil, "Plugin file extension (repeatable; default "+pluggability.DefaultExtension+")")
	flags.BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")

	rootCmd.AddCommand(
		newCandidatesCmd(cfg),
		newFindCmd(cfg),
		newLoadAllCmd(cfg),
		newVetCmd(cfg),
	)
	return rootCmd
}

var cpuProfile *os.File

func setup(cmd *cobra.Command, cfg *Config) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
	}

	if err := cfg.loadFile(cmd); err != nil {
		return errWithCode(fmt.Errorf("reading configuration: %w", err), exitError)
	}

	if !cfg.Profile {
		return nil
	}

	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		cpuProfile = nil
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(cfg *Config) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	cpuProfile = nil
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return &codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e *codedError) Unwrap() error {
	return e.err
}
