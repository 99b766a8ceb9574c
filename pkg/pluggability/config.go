package pluggability

import (
	"log/slog"
	"slices"
)

// SetPrefixes replaces the directories searched for derivatives of t's
// pluggable base. With no prefixes, candidates are searched for unqualified.
func (t *Type) SetPrefixes(prefixes ...string) error {
	root, err := t.Root()
	if err != nil {
		return err
	}
	d := root.desc.Load()
	d.mu.Lock()
	d.prefixes = append([]string{}, prefixes...)
	d.mu.Unlock()
	return nil
}

// Prefixes returns the search prefixes in effect for t: those of its
// nearest pluggable ancestor that set any.
func (t *Type) Prefixes() []string {
	for _, d := range t.pluggableAncestors() {
		d.mu.RLock()
		p := d.prefixes
		d.mu.RUnlock()
		if p != nil {
			return slices.Clone(p)
		}
	}
	return nil
}

// SetExclusions replaces the rules that keep matching paths from being
// loaded, typically used to skip test directories:
//
//	base.SetExclusions(pluggability.Glob("spec/**"))
func (t *Type) SetExclusions(rules ...Rule) error {
	root, err := t.Root()
	if err != nil {
		return err
	}
	d := root.desc.Load()
	d.mu.Lock()
	d.exclusions = append([]Rule{}, rules...)
	d.mu.Unlock()
	return nil
}

// Exclusions returns the exclusion rules in effect for t.
func (t *Type) Exclusions() []Rule {
	for _, d := range t.pluggableAncestors() {
		d.mu.RLock()
		r := d.exclusions
		d.mu.RUnlock()
		if r != nil {
			return slices.Clone(r)
		}
	}
	return nil
}

// IsExcluded reports whether any exclusion rule in effect for t matches path.
func (t *Type) IsExcluded(path string) bool {
	rule, ok := excludedBy(t.Exclusions(), path)
	if ok {
		slog.Debug("load path is excluded", "path", path, "rule", rule.String())
	}
	return ok
}

// SetLoader sets the primitive used to load candidate paths for t's
// pluggable base.
func (t *Type) SetLoader(l Loader) error {
	root, err := t.Root()
	if err != nil {
		return err
	}
	d := root.desc.Load()
	d.mu.Lock()
	d.loader = l
	d.mu.Unlock()
	return nil
}

// SetFinder sets the primitive used to turn candidate patterns into paths
// for t's pluggable base.
func (t *Type) SetFinder(f Finder) error {
	root, err := t.Root()
	if err != nil {
		return err
	}
	d := root.desc.Load()
	d.mu.Lock()
	d.finder = f
	d.mu.Unlock()
	return nil
}

// loaderFor returns the loader in effect for t, defaulting to PluginLoader.
func (t *Type) loaderFor() Loader {
	for _, d := range t.pluggableAncestors() {
		d.mu.RLock()
		l := d.loader
		d.mu.RUnlock()
		if l != nil {
			return l
		}
	}
	return PluginLoader{}
}

// finderFor returns the finder in effect for t, defaulting to DefaultFinder.
func (t *Type) finderFor() Finder {
	for _, d := range t.pluggableAncestors() {
		d.mu.RLock()
		f := d.finder
		d.mu.RUnlock()
		if f != nil {
			return f
		}
	}
	return DefaultFinder()
}
