// impcheck reports package-level variables that copy a function from another
// package when the package is initialised. Patching the original afterwards
// does not reach such a copy, so tests must patch the copy instead.
//
//	go run github.com/toejough/impatch/impcheck --target entropy.Bytes ./fots
package main

import (
	"fmt"
	"go/types"
	"os"
	"path/filepath"

	"golang.org/x/tools/go/packages"

	"github.com/toejough/impatch/impcheck/run"
)

// main is the entry point of the impcheck tool.
func main() {
	err := run.Run(os.Args, &realFileSystem{}, &realPackageLoader{}, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// realFileSystem implements FileSystem using os package.
type realFileSystem struct{}

// Glob returns the names of all files matching pattern.
func (fs *realFileSystem) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob failed for pattern %s: %w", pattern, err)
	}

	return matches, nil
}

// ReadFile reads the file named by name and returns the contents.
func (fs *realFileSystem) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}

	return data, nil
}

// realPackageLoader implements PackageLoader using go/packages.
type realPackageLoader struct{}

// Load type-checks importPath as resolved from the module containing dir.
func (pl *realPackageLoader) Load(dir, importPath string) (*types.Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load package: %w", err)
	}

	if len(pkgs) == 0 || pkgs[0].Types == nil {
		return nil, fmt.Errorf("%w: %q", run.ErrNoPackage, importPath)
	}

	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("%w: %q: %v", run.ErrNoPackage, importPath, pkgs[0].Errors[0])
	}

	return pkgs[0].Types, nil
}
