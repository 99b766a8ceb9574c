package pluggability

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Finder turns candidate patterns into paths that a Loader can load.
type Finder interface {
	// Find returns the paths matching pattern, which may contain glob
	// metacharacters including "**". Order is significant.
	Find(pattern string) ([]string, error)

	// IsRegularFile reports whether path names a regular file, so that
	// directories matched by Find are skipped.
	IsRegularFile(path string) bool
}

// PathEnv names the environment variable holding the default search roots,
// separated by the OS path list separator.
const PathEnv = "PLUGGABILITY_PATH"

// DefaultExtension is appended to patterns by the default finder.
const DefaultExtension = ".so"

// DefaultFinder returns a finder over the roots listed in PathEnv, or the
// current directory when it is unset, looking for DefaultExtension files.
func DefaultFinder() *FSFinder {
	dirs := filepath.SplitList(os.Getenv(PathEnv))
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	return NewFSFinder([]string{DefaultExtension}, dirs...)
}

// Root is a directory searched by an FSFinder. FS defaults to os.DirFS(Dir);
// paths returned for the root are Dir joined with the match.
type Root struct {
	Dir string
	FS  fs.FS
}

func (r Root) fsys() fs.FS {
	if r.FS != nil {
		return r.FS
	}
	return os.DirFS(r.Dir)
}

// FSFinder searches an ordered list of roots, like a load path. When the
// same relative path matches in several roots, only the most recently
// modified file is returned; ties go to the earlier root.
type FSFinder struct {
	Roots []Root

	// Extensions are appended to each pattern in turn. With none, patterns
	// are used as given.
	Extensions []string
}

// NewFSFinder returns a finder over the given directories.
func NewFSFinder(exts []string, dirs ...string) *FSFinder {
	roots := make([]Root, 0, len(dirs))
	for _, d := range dirs {
		roots = append(roots, Root{Dir: d})
	}
	return &FSFinder{Roots: roots, Extensions: exts}
}

type match struct {
	path    string
	modTime time.Time
}

// Find implements Finder.
func (f *FSFinder) Find(pattern string) ([]string, error) {
	exts := f.Extensions
	if len(exts) == 0 {
		exts = []string{""}
	}

	var order []string
	latest := make(map[string]match)
	for _, ext := range exts {
		glob := strings.TrimPrefix(pattern+ext, "/")
		for _, root := range f.Roots {
			fsys := root.fsys()
			rels, err := doublestar.Glob(fsys, glob)
			if err != nil {
				return nil, err
			}
			for _, rel := range rels {
				var mod time.Time
				if info, err := fs.Stat(fsys, rel); err == nil {
					mod = info.ModTime()
				}
				m := match{path: filepath.Join(root.Dir, filepath.FromSlash(rel)), modTime: mod}
				prev, seen := latest[rel]
				if !seen {
					order = append(order, rel)
					latest[rel] = m
					continue
				}
				if m.modTime.After(prev.modTime) {
					slog.Debug("newer match shadows earlier root", "path", m.path, "shadowed", prev.path)
					latest[rel] = m
				}
			}
		}
	}

	out := make([]string, 0, len(order))
	for _, rel := range order {
		out = append(out, latest[rel].path)
	}
	return out, nil
}

// IsRegularFile implements Finder.
func (f *FSFinder) IsRegularFile(path string) bool {
	for _, root := range f.Roots {
		rel, err := filepath.Rel(root.Dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		info, err := fs.Stat(root.fsys(), filepath.ToSlash(rel))
		if err != nil {
			continue
		}
		return info.Mode().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
