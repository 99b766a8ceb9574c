package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/715d/pluggability/pkg/pluggability"
)

// defaultConfigFile is read from the working directory when present.
const defaultConfigFile = ".pluggability.yaml"

// fileConfig is the on-disk form of Config. Flags given on the command line
// take precedence over it.
type fileConfig struct {
	Kind       string   `yaml:"kind"`
	Prefixes   []string `yaml:"prefixes"`
	Exclusions []string `yaml:"exclusions"`
	Path       []string `yaml:"path"`
	Ext        []string `yaml:"ext"`
}

func readConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &fc, nil
}

// loadFile merges the configuration file into c for every setting not given
// as a flag. A missing file is only an error when --config named it.
func (c *Config) loadFile(cmd *cobra.Command) error {
	flags := cmd.Flags()
	fc, err := readConfigFile(c.File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !flags.Changed("config") {
			return nil
		}
		return err
	}
	slog.Debug("loaded configuration file", "file", c.File)

	if !flags.Changed("kind") && fc.Kind != "" {
		c.Kind = fc.Kind
	}
	if !flags.Changed("prefix") && fc.Prefixes != nil {
		c.Prefixes = fc.Prefixes
	}
	if !flags.Changed("exclude") && fc.Exclusions != nil {
		c.Exclusions = fc.Exclusions
	}
	if !flags.Changed("path") && fc.Path != nil {
		c.Paths = fc.Path
	}
	if !flags.Changed("ext") && fc.Ext != nil {
		c.Extensions = fc.Ext
	}
	return nil
}

// finder returns the finder over the configured roots, or over the roots in
// PLUGGABILITY_PATH when none are configured.
func (c *Config) finder() *pluggability.FSFinder {
	exts := c.Extensions
	if len(exts) == 0 {
		exts = []string{pluggability.DefaultExtension}
	}
	if len(c.Paths) == 0 {
		f := pluggability.DefaultFinder()
		f.Extensions = exts
		return f
	}
	return pluggability.NewFSFinder(exts, c.Paths...)
}

// newBase builds the base type described by c. A nil loader keeps the
// default, which opens Go plugins.
func (c *Config) newBase(loader pluggability.Loader) (*pluggability.Type, error) {
	if c.Kind == "" {
		return nil, fmt.Errorf("no kind configured: pass --kind or set kind in %s", defaultConfigFile)
	}

	rules := make([]pluggability.Rule, 0, len(c.Exclusions))
	for _, expr := range c.Exclusions {
		rule, err := pluggability.ParseRule(expr)
		if err != nil {
			return nil, fmt.Errorf("exclusion %q: %w", expr, err)
		}
		rules = append(rules, rule)
	}

	base := pluggability.NewBase(c.Kind, nil)
	if err := base.SetPrefixes(c.Prefixes...); err != nil {
		return nil, err
	}
	if err := base.SetExclusions(rules...); err != nil {
		return nil, err
	}
	if err := base.SetFinder(c.finder()); err != nil {
		return nil, err
	}
	if loader != nil {
		if err := base.SetLoader(loader); err != nil {
			return nil, err
		}
	}
	return base, nil
}
