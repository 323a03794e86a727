// Package run implements the main logic for the impcheck tool in a testable way.
package run

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
)

// Exported variables.
var (
	ErrBindingsFound = errors.New("early bindings found")
	ErrNoGoFiles     = errors.New("no .go files")
	ErrNoPackage     = errors.New("package not found")
)

// Binding is a package-level variable initialised from a function or func
// variable in another package. Patching that function after init does not
// change the variable.
type Binding struct {
	File string
	Line int
	Var  string
	Ref  string
}

// String formats the binding the way compilers format diagnostics.
func (b Binding) String() string {
	return fmt.Sprintf("%s:%d: %s binds %s at init; patch %s, not %s",
		b.File, b.Line, b.Var, b.Ref, b.Var, b.Ref)
}

// FileSystem interface for mocking.
type FileSystem interface {
	Glob(pattern string) ([]string, error)
	ReadFile(name string) ([]byte, error)
}

// PackageLoader loads the type information of importPath as seen from the
// source directory dir.
type PackageLoader interface {
	Load(dir, importPath string) (*types.Package, error)
}

// Run executes the impcheck tool logic. It parses args, scans each directory's
// Go files for early bindings, and writes one line per binding to stdout.
// With --strict it returns ErrBindingsFound when any binding is reported.
func Run(args []string, fileSys FileSystem, pkgLoader PackageLoader, stdout io.Writer) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}

	dirs := parsed.Dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	var found []Binding

	for _, dir := range dirs {
		bindings, err := scanDir(dir, parsed.Tests, fileSys, pkgLoader)
		if err != nil {
			return err
		}

		for _, binding := range bindings {
			if parsed.Target != "" && binding.Ref != parsed.Target {
				continue
			}

			found = append(found, binding)
		}
	}

	for _, binding := range found {
		fmt.Fprintln(stdout, binding)
	}

	if parsed.Strict && len(found) > 0 {
		return fmt.Errorf("%w: %d", ErrBindingsFound, len(found))
	}

	return nil
}

// ScanSource returns the early bindings declared in one Go source file.
// Only selectors that resolve to a function or a func-typed variable of an
// imported package are reported; constants and other variables are not.
func ScanSource(filename string, src []byte, pkgLoader PackageLoader) ([]Binding, error) {
	fset := token.NewFileSet()

	astFile, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	dec := decorator.NewDecorator(fset)

	file, err := dec.DecorateFile(astFile)
	if err != nil {
		return nil, fmt.Errorf("failed to decorate %s: %w", filename, err)
	}

	imports := newImportSet(filepath.Dir(filename), file, pkgLoader)

	var bindings []Binding

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*dst.GenDecl)
		if !ok || genDecl.Tok != token.VAR {
			continue
		}

		for _, spec := range genDecl.Specs {
			valueSpec, ok := spec.(*dst.ValueSpec)
			if !ok {
				continue
			}

			for index, name := range valueSpec.Names {
				if index >= len(valueSpec.Values) {
					break
				}

				pkgName, member, ok := qualifiedRef(valueSpec.Values[index])
				if !ok {
					continue
				}

				isFunc, err := imports.isFunc(pkgName, member)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve %s.%s in %s: %w", pkgName, member, filename, err)
				}

				if !isFunc {
					continue
				}

				bindings = append(bindings, Binding{
					File: filename,
					Line: line(fset, dec.Ast.Nodes[valueSpec]),
					Var:  name.Name,
					Ref:  pkgName + "." + member,
				})
			}
		}
	}

	return bindings, nil
}

// cliArgs defines the command-line arguments for impcheck.
type cliArgs struct {
	Dirs   []string `arg:"positional" help:"directories to scan (defaults to .)"`
	Target string   `arg:"--target"   help:"only report bindings of this function (e.g. entropy.Bytes)"`
	Strict bool     `arg:"--strict"   help:"exit non-zero when bindings are found"`
	Tests  bool     `arg:"--tests"    help:"also scan _test.go files"`
}

func line(fset *token.FileSet, node ast.Node) int {
	if node == nil {
		return 0
	}

	return fset.Position(node.Pos()).Line
}

// parseArgs parses command-line arguments into cliArgs.
func parseArgs(args []string) (cliArgs, error) {
	var parsed cliArgs

	argParser, err := arg.NewParser(arg.Config{Program: "impcheck"}, &parsed)
	if err != nil {
		return cliArgs{}, fmt.Errorf("failed to create argument parser: %w", err)
	}

	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = args[1:]
	}

	err = argParser.Parse(cmdArgs)
	if err != nil {
		return cliArgs{}, fmt.Errorf("failed to parse arguments: %w", err)
	}

	return parsed, nil
}

// importSet resolves the package names a file's selectors refer to, loading
// each imported package at most once and only when a selector needs it.
type importSet struct {
	dir       string
	pkgLoader PackageLoader
	aliased   map[string]string
	plain     []string
	loaded    map[string]*types.Package
}

func newImportSet(dir string, file *dst.File, pkgLoader PackageLoader) *importSet {
	imports := &importSet{
		dir:       dir,
		pkgLoader: pkgLoader,
		aliased:   make(map[string]string),
		loaded:    make(map[string]*types.Package),
	}

	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}

		switch {
		case spec.Name == nil:
			imports.plain = append(imports.plain, path)
		case spec.Name.Name == "_" || spec.Name.Name == ".":
		default:
			imports.aliased[spec.Name.Name] = path
		}
	}

	return imports
}

// isFunc reports whether pkgName.member names a function or a func-typed
// variable. A selector on a name that is not an import is not a binding.
func (s *importSet) isFunc(pkgName, member string) (bool, error) {
	pkg, err := s.lookup(pkgName)
	if err != nil || pkg == nil {
		return false, err
	}

	switch obj := pkg.Scope().Lookup(member).(type) {
	case *types.Func:
		return true, nil
	case *types.Var:
		_, isSignature := obj.Type().Underlying().(*types.Signature)

		return isSignature, nil
	default:
		return false, nil
	}
}

func (s *importSet) load(path string) (*types.Package, error) {
	if pkg, ok := s.loaded[path]; ok {
		return pkg, nil
	}

	pkg, err := s.pkgLoader.Load(s.dir, path)
	if err != nil {
		return nil, err
	}

	s.loaded[path] = pkg

	return pkg, nil
}

func (s *importSet) lookup(pkgName string) (*types.Package, error) {
	if path, ok := s.aliased[pkgName]; ok {
		return s.load(path)
	}

	// Import paths ending in the selector's name are the likely owners, so
	// they are tried first and unrelated imports are rarely loaded.
	candidates := slices.Clone(s.plain)
	slices.SortStableFunc(candidates, func(a, b string) int {
		return boolRank(lastElem(b) == pkgName) - boolRank(lastElem(a) == pkgName)
	})

	for _, path := range candidates {
		pkg, err := s.load(path)
		if err != nil {
			return nil, err
		}

		if pkg.Name() == pkgName {
			return pkg, nil
		}
	}

	return nil, nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}

	return 0
}

func lastElem(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// qualifiedRef splits a selector on an identifier into its two names.
func qualifiedRef(expr dst.Expr) (string, string, bool) {
	selector, ok := expr.(*dst.SelectorExpr)
	if !ok {
		return "", "", false
	}

	pkg, ok := selector.X.(*dst.Ident)
	if !ok {
		return "", "", false
	}

	return pkg.Name, selector.Sel.Name, true
}

func scanDir(dir string, tests bool, fileSys FileSystem, pkgLoader PackageLoader) ([]Binding, error) {
	files, err := fileSys.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files = slices.DeleteFunc(files, func(name string) bool {
		return !tests && strings.HasSuffix(name, "_test.go")
	})

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoGoFiles, dir)
	}

	slices.Sort(files)

	var bindings []Binding

	for _, name := range files {
		src, err := fileSys.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		found, err := ScanSource(name, src, pkgLoader)
		if err != nil {
			return nil, err
		}

		bindings = append(bindings, found...)
	}

	return bindings, nil
}
