package vet

import (
	"cmp"
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"log/slog"
	"maps"
	"path/filepath"
	"reflect"
	goruntime "runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"github.com/715d/pluggability/internal/naming"
	"github.com/715d/pluggability/pkg/pluggability"
	"github.com/715d/pluggability/pkg/suppress"
)

// pluggabilityPath is the import path calls are matched against.
var pluggabilityPath = reflect.TypeFor[pluggability.Type]().PkgPath()

// maxChain bounds how many derivation steps are followed back to a base.
const maxChain = 64

// Options holds configuration options for the analyzer.
type Options struct {
	// Kind classifies derivatives whose base cannot be traced to a NewBase
	// or Enable call in the loaded packages. Such derivatives are skipped
	// when Kind is empty.
	Kind string

	// SkipGenerated skips files with generated code markers.
	SkipGenerated bool
}

// Analyzer checks where derivatives are declared.
type Analyzer struct {
	suppressions *suppress.Checker
	opts         Options
}

// NewAnalyzer creates a new analyzer with the given options.
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{
		suppressions: suppress.NewChecker(),
		opts:         opts,
	}
}

// declaration is a call to Derive or MustDerive with a constant name.
type declaration struct {
	pkg      *packages.Package
	pos      token.Pos
	name     string
	receiver string // object key of the receiver, empty if not a named value
}

// facts is what a single package contributes to the analysis. Objects are
// identified by objectKey so that facts from a test variant line up with
// references from packages that import the regular variant.
type facts struct {
	bases   map[string]string // object key to kind
	derived map[string]string // object key to the key it was derived from
	decls   []declaration
}

// Analyze reports every derivative declared in a plugin package whose
// directory and file names match none of the paths that resolving it by
// name would try.
func (a *Analyzer) Analyze(pkgs []*packages.Package) ([]Finding, error) {
	if len(pkgs) == 0 {
		return nil, errors.New("no packages provided")
	}
	if slices.Contains(pkgs, nil) {
		return nil, errors.New("nil package")
	}

	if err := a.loadSuppressions(pkgs); err != nil {
		return nil, fmt.Errorf("failed to load suppressions: %w", err)
	}

	// Each goroutine writes only its own index.
	results := make([]*facts, len(pkgs))
	var wg errgroup.Group
	wg.SetLimit(goruntime.NumCPU())
	for idx, pkg := range pkgs {
		wg.Go(func() error {
			results[idx] = a.collect(pkg)
			return nil
		})
	}
	_ = wg.Wait()

	merged := &facts{bases: make(map[string]string), derived: make(map[string]string)}
	for _, f := range results {
		maps.Copy(merged.bases, f.bases)
		maps.Copy(merged.derived, f.derived)
		merged.decls = append(merged.decls, f.decls...)
	}

	var findings []Finding
	for _, decl := range merged.decls {
		if f, ok := a.check(merged, decl); ok {
			findings = append(findings, f)
		}
	}
	slices.SortFunc(findings, func(x, y Finding) int {
		return cmp.Or(
			strings.Compare(x.Position.Filename, y.Position.Filename),
			cmp.Compare(x.Position.Line, y.Position.Line),
			cmp.Compare(x.Position.Column, y.Position.Column),
		)
	})
	slog.Debug("vet completed", "declarations", len(merged.decls), "findings", len(findings))
	return findings, nil
}

func (a *Analyzer) collect(pkg *packages.Package) *facts {
	f := &facts{bases: make(map[string]string), derived: make(map[string]string)}
	if pkg.TypesInfo == nil {
		return f
	}
	info := pkg.TypesInfo

	for _, file := range pkg.Syntax {
		if file == nil || (a.opts.SkipGenerated && a.isGeneratedFile(file)) {
			continue
		}
		ast.Inspect(file, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.ValueSpec:
				if len(n.Names) == len(n.Values) {
					for i, name := range n.Names {
						f.bind(info, info.Defs[name], n.Values[i])
					}
				}
			case *ast.AssignStmt:
				if len(n.Lhs) == len(n.Rhs) {
					for i, lhs := range n.Lhs {
						if id, ok := lhs.(*ast.Ident); ok {
							obj := info.Defs[id]
							if obj == nil {
								obj = info.Uses[id]
							}
							f.bind(info, obj, n.Rhs[i])
						}
					}
				}
			case *ast.CallExpr:
				fn := calledFunc(info, n)
				if fn == nil || !isMethod(fn) || (fn.Name() != "Derive" && fn.Name() != "MustDerive") {
					return true
				}
				name, ok := constantString(info, n)
				if !ok {
					return true
				}
				f.decls = append(f.decls, declaration{
					pkg:      pkg,
					pos:      n.Pos(),
					name:     name,
					receiver: receiverKey(info, n),
				})
			}
			return true
		})
	}
	return f
}

// bind records what obj is when it is initialized from value.
func (f *facts) bind(info *types.Info, obj types.Object, value ast.Expr) {
	if obj == nil {
		return
	}
	call, ok := ast.Unparen(value).(*ast.CallExpr)
	if !ok {
		return
	}
	if kind, ok := baseKind(info, call); ok {
		f.bases[objectKey(obj)] = kind
		return
	}
	fn := calledFunc(info, call)
	if fn != nil && isMethod(fn) && (fn.Name() == "Derive" || fn.Name() == "MustDerive") {
		if recv := receiverKey(info, call); recv != "" {
			f.derived[objectKey(obj)] = recv
		}
	}
}

// baseKind reports the kind of the base call creates, for calls of the form
// NewBase("Name", ...) or X("Name", ...).Enable() where X declares a type.
func baseKind(info *types.Info, call *ast.CallExpr) (string, bool) {
	fn := calledFunc(info, call)
	if fn == nil {
		return "", false
	}
	switch {
	case fn.Name() == "NewBase" && !isMethod(fn):
		if name, ok := constantString(info, call); ok {
			return naming.SimpleName(name), true
		}
	case fn.Name() == "Enable" && isMethod(fn):
		sel, ok := ast.Unparen(call.Fun).(*ast.SelectorExpr)
		if !ok {
			return "", false
		}
		inner, ok := ast.Unparen(sel.X).(*ast.CallExpr)
		if !ok || calledFunc(info, inner) == nil {
			return "", false
		}
		if name, ok := constantString(info, inner); ok {
			return naming.SimpleName(name), true
		}
	}
	return "", false
}

func (a *Analyzer) check(all *facts, decl declaration) (Finding, bool) {
	if decl.pkg.Name != "main" || decl.name == "" {
		return Finding{}, false
	}

	kind, baseKey := a.opts.Kind, ""
	for key, i := decl.receiver, 0; key != "" && i < maxChain; i++ {
		if k, ok := all.bases[key]; ok {
			kind, baseKey = k, key
			break
		}
		key = all.derived[key]
	}
	if kind == "" {
		slog.Debug("skipping derivative of unknown kind", "name", decl.name, "package", decl.pkg.PkgPath)
		return Finding{}, false
	}
	// Derivatives declared next to their base are registered with it.
	if baseKey != "" && samePackage(baseKey, decl.pkg.PkgPath) {
		return Finding{}, false
	}

	variants := naming.Variants(decl.name, kind)
	pluginName := variants[len(variants)-1]
	expected := pluggability.RequirePaths(pluginName, "", kind)

	position := decl.pkg.Fset.Position(decl.pos)
	dir := filepath.Base(filepath.Dir(position.Filename))
	stem := strings.TrimSuffix(filepath.Base(position.Filename), ".go")
	if slices.Contains(expected, dir) || slices.Contains(expected, stem) {
		return Finding{}, false
	}

	suppressed, _ := a.suppressions.IsSuppressed(decl.pos)
	return Finding{
		Name:       decl.name,
		Kind:       kind,
		PluginName: pluginName,
		Position:   position,
		Expected:   expected,
		Reason: fmt.Sprintf("%s is declared in %s, but a request for %q only looks for %s",
			decl.name, filepath.Join(dir, stem+".go"), pluginName, strings.Join(expected, " or ")),
		Suppressed: suppressed,
		Package:    decl.pkg.PkgPath,
	}, true
}

// loadSuppressions loads suppression comments from all files in the given packages
func (a *Analyzer) loadSuppressions(pkgs []*packages.Package) error {
	a.suppressions.Clear()

	var allFiles []*ast.File
	var fset *token.FileSet
	for _, pkg := range pkgs {
		if pkg.Fset != nil {
			fset = pkg.Fset
		}
		for _, file := range pkg.Syntax {
			if file != nil {
				allFiles = append(allFiles, file)
			}
		}
	}

	if fset != nil && len(allFiles) > 0 {
		return a.suppressions.Load(fset, allFiles)
	}
	return nil
}

// isGeneratedFile checks if a file contains generated code markers.
func (a *Analyzer) isGeneratedFile(file *ast.File) bool {
	for _, commentGroup := range file.Comments {
		for _, comment := range commentGroup.List {
			text := comment.Text
			if strings.Contains(text, "Code generated") ||
				strings.Contains(text, "DO NOT EDIT") ||
				strings.Contains(text, "autogenerated") ||
				strings.Contains(text, "AUTO-GENERATED") {
				return true
			}
		}
	}
	return false
}

// calledFunc returns the function or method of the pluggability package that
// call invokes, or nil.
func calledFunc(info *types.Info, call *ast.CallExpr) *types.Func {
	var id *ast.Ident
	switch fun := ast.Unparen(call.Fun).(type) {
	case *ast.Ident:
		id = fun
	case *ast.SelectorExpr:
		id = fun.Sel
	default:
		return nil
	}
	fn, _ := info.Uses[id].(*types.Func)
	if fn == nil || fn.Pkg() == nil || fn.Pkg().Path() != pluggabilityPath {
		return nil
	}
	return fn
}

func isMethod(fn *types.Func) bool {
	return fn.Signature().Recv() != nil
}

// constantString returns the first argument of call if it is a constant
// string.
func constantString(info *types.Info, call *ast.CallExpr) (string, bool) {
	if len(call.Args) == 0 {
		return "", false
	}
	tv, ok := info.Types[call.Args[0]]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}
	return constant.StringVal(tv.Value), true
}

// receiverKey returns the object key of the value a method is called on, if
// it is a plain or package-qualified identifier.
func receiverKey(info *types.Info, call *ast.CallExpr) string {
	sel, ok := ast.Unparen(call.Fun).(*ast.SelectorExpr)
	if !ok {
		return ""
	}
	var id *ast.Ident
	switch x := ast.Unparen(sel.X).(type) {
	case *ast.Ident:
		id = x
	case *ast.SelectorExpr:
		id = x.Sel
	default:
		return ""
	}
	obj := info.Uses[id]
	if obj == nil {
		return ""
	}
	return objectKey(obj)
}

// objectKey identifies obj across the variants of its package. Objects that
// are not package-level also carry their position.
func objectKey(obj types.Object) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	key := obj.Pkg().Path() + "." + obj.Name()
	if obj.Parent() != obj.Pkg().Scope() {
		key += "@" + strconv.Itoa(int(obj.Pos()))
	}
	return key
}

// samePackage reports whether key names an object declared in pkgPath or in
// its external test package.
func samePackage(key, pkgPath string) bool {
	return strings.HasPrefix(key, strings.TrimSuffix(pkgPath, "_test")+".")
}
