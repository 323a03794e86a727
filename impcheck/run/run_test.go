package run_test

import (
	"bytes"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"io/fs"
	"path/filepath"
	"slices"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/toejough/impatch/impcheck/run"
)

// mapFileSystem serves files from memory.
type mapFileSystem map[string]string

func (m mapFileSystem) Glob(pattern string) ([]string, error) {
	var matches []string

	for name := range m {
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}

		if ok {
			matches = append(matches, name)
		}
	}

	slices.Sort(matches)

	return matches, nil
}

func (m mapFileSystem) ReadFile(name string) ([]byte, error) {
	src, ok := m[name]
	if !ok {
		return nil, fs.ErrNotExist
	}

	return []byte(src), nil
}

// mapPackageLoader serves hand-built packages by import path.
type mapPackageLoader map[string]*types.Package

func (m mapPackageLoader) Load(_, importPath string) (*types.Package, error) {
	pkg, ok := m[importPath]
	if !ok {
		return nil, fmt.Errorf("%w: %q", run.ErrNoPackage, importPath)
	}

	return pkg, nil
}

func newPackage(path, name string, members func(pkg *types.Package) []types.Object) *types.Package {
	pkg := types.NewPackage(path, name)
	for _, obj := range members(pkg) {
		pkg.Scope().Insert(obj)
	}

	pkg.MarkComplete()

	return pkg
}

func fakePackages() mapPackageLoader {
	signature := types.NewSignatureType(nil, nil, nil, nil, nil, false)

	return mapPackageLoader{
		"github.com/toejough/impatch/entropy": newPackage("github.com/toejough/impatch/entropy", "entropy",
			func(pkg *types.Package) []types.Object {
				return []types.Object{types.NewVar(token.NoPos, pkg, "Bytes", signature)}
			}),
		"github.com/toejough/impatch/fots": newPackage("github.com/toejough/impatch/fots", "fots",
			func(pkg *types.Package) []types.Object {
				return []types.Object{types.NewFunc(token.NoPos, pkg, "ABCURandom", signature)}
			}),
		"io": newPackage("io", "io", func(pkg *types.Package) []types.Object {
			return []types.Object{types.NewFunc(token.NoPos, pkg, "ReadAll", signature)}
		}),
		"os": newPackage("os", "os", func(pkg *types.Package) []types.Object {
			return []types.Object{types.NewVar(token.NoPos, pkg, "Stdout", types.NewPointer(types.Typ[types.Int]))}
		}),
		"math": newPackage("math", "math", func(pkg *types.Package) []types.Object {
			return []types.Object{
				types.NewConst(token.NoPos, pkg, "Pi", types.Typ[types.UntypedFloat], constant.MakeFloat64(3.14)),
			}
		}),
		"example.com/rand/v2": newPackage("example.com/rand/v2", "rand", func(pkg *types.Package) []types.Object {
			return []types.Object{types.NewFunc(token.NoPos, pkg, "Int", signature)}
		}),
	}
}

const fotsSource = `package fots

import (
	"github.com/toejough/impatch/entropy"
	stdio "io"
	"math"
	"os"
)

var URandom = entropy.Bytes

var (
	local   = helper
	counter = 0
	reader, writer = stdio.ReadAll, os.Stdout
	pi = math.Pi
)

func helper() {}
`

const fotsTestSource = `package fots_test

import "github.com/toejough/impatch/fots"

var wrapped = fots.ABCURandom
`

func fixture() mapFileSystem {
	return mapFileSystem{
		filepath.Join("fots", "fots.go"):      fotsSource,
		filepath.Join("fots", "fots_test.go"): fotsTestSource,
		filepath.Join("empty", "doc.txt"):     "not go",
	}
}

func TestScanSource(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bindings, err := run.ScanSource("fots.go", []byte(fotsSource), fakePackages())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(bindings).To(Equal([]run.Binding{
		{File: "fots.go", Line: 10, Var: "URandom", Ref: "entropy.Bytes"},
		{File: "fots.go", Line: 15, Var: "reader", Ref: "stdio.ReadAll"},
	}))
}

func TestScanSource_SkipsNonFunctionValues(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := `package demo

import (
	"math"
	"os"
)

var out = os.Stdout
var pi = math.Pi
`

	bindings, err := run.ScanSource("demo.go", []byte(src), fakePackages())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(bindings).To(BeEmpty())
}

func TestScanSource_PackageNameDiffersFromPath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := `package demo

import (
	"example.com/rand/v2"
	"os"
)

var roll = rand.Int
var out = os.Stdout
`

	bindings, err := run.ScanSource("demo.go", []byte(src), fakePackages())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(bindings).To(Equal([]run.Binding{
		{File: "demo.go", Line: 8, Var: "roll", Ref: "rand.Int"},
	}))
}

func TestScanSource_SelectorOnNonImport(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := `package demo

type config struct{ Name string }

var defaults = config{}

var name = defaults.Name
`

	bindings, err := run.ScanSource("demo.go", []byte(src), mapPackageLoader{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(bindings).To(BeEmpty())
}

func TestScanSource_LoadError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := `package demo

import "example.com/missing"

var f = missing.F
`

	_, err := run.ScanSource("demo.go", []byte(src), mapPackageLoader{})
	g.Expect(err).To(MatchError(run.ErrNoPackage))
	g.Expect(err).To(MatchError(ContainSubstring("missing.F")))
}

func TestScanSource_ParseError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	for _, src := range []string{"package", "package demo\n\nvar x = ", "not go at all"} {
		bindings, err := run.ScanSource("broken.go", []byte(src), fakePackages())
		g.Expect(err).To(MatchError(ContainSubstring("failed to parse broken.go")), "source %q", src)
		g.Expect(bindings).To(BeNil())
	}
}

// A directory holding one unparseable file reports an error instead of
// crashing the scan.
func TestRun_ParseError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fileSys := mapFileSystem{filepath.Join("bad", "bad.go"): "package bad\n\nfunc {"}

	err := run.Run([]string{"impcheck", "bad"}, fileSys, fakePackages(), &bytes.Buffer{})
	g.Expect(err).To(MatchError(ContainSubstring("failed to parse")))
}

func TestBinding_String(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	binding := run.Binding{File: "fots/fots.go", Line: 7, Var: "URandom", Ref: "entropy.Bytes"}
	g.Expect(binding.String()).To(Equal(
		"fots/fots.go:7: URandom binds entropy.Bytes at init; patch URandom, not entropy.Bytes"))
}

func TestRun(t *testing.T) {
	t.Parallel()

	fotsFile := filepath.Join("fots", "fots.go")
	fotsTestFile := filepath.Join("fots", "fots_test.go")

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr error
	}{
		{
			name: "all bindings",
			args: []string{"impcheck", "fots"},
			want: []string{fotsFile + ":10:", fotsFile + ":15:"},
		},
		{
			name: "target filter",
			args: []string{"impcheck", "--target", "entropy.Bytes", "fots"},
			want: []string{fotsFile + ":10: URandom binds entropy.Bytes"},
		},
		{
			name: "tests included",
			args: []string{"impcheck", "--tests", "--target", "fots.ABCURandom", "fots"},
			want: []string{fotsTestFile + ":5: wrapped binds fots.ABCURandom"},
		},
		{
			name:    "strict with findings",
			args:    []string{"impcheck", "--strict", "--target", "entropy.Bytes", "fots"},
			want:    []string{"URandom"},
			wantErr: run.ErrBindingsFound,
		},
		{
			name: "strict without findings",
			args: []string{"impcheck", "--strict", "--target", "entropy.Nothing", "fots"},
		},
		{
			name:    "directory without go files",
			args:    []string{"impcheck", "empty"},
			wantErr: run.ErrNoGoFiles,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			var stdout bytes.Buffer

			err := run.Run(testCase.args, fixture(), fakePackages(), &stdout)
			if testCase.wantErr != nil {
				g.Expect(err).To(MatchError(testCase.wantErr))
			} else {
				g.Expect(err).NotTo(HaveOccurred())
			}

			lines := slices.DeleteFunc(bytes.Split(stdout.Bytes(), []byte("\n")), func(line []byte) bool {
				return len(line) == 0
			})
			g.Expect(lines).To(HaveLen(len(testCase.want)))

			for index, prefix := range testCase.want {
				g.Expect(string(lines[index])).To(ContainSubstring(prefix))
			}
		})
	}
}

func TestRun_BadFlag(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := run.Run([]string{"impcheck", "--nope"}, fixture(), fakePackages(), &bytes.Buffer{})
	g.Expect(err).To(MatchError(ContainSubstring("failed to parse arguments")))
}

func TestRun_ReadError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := run.Run([]string{"impcheck", "broken"}, brokenFileSystem{}, fakePackages(), &bytes.Buffer{})
	g.Expect(err).To(MatchError(fs.ErrPermission))
}

// brokenFileSystem lists a file it cannot read.
type brokenFileSystem struct{}

func (brokenFileSystem) Glob(string) ([]string, error) {
	return []string{filepath.Join("broken", "a.go")}, nil
}

func (brokenFileSystem) ReadFile(string) ([]byte, error) {
	return nil, fs.ErrPermission
}
