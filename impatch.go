// Package impatch replaces package-level function variables for the duration
// of a test and records every call made to the replacement.
//
// A seam is an exported or test-visible variable of func type:
//
//	var URandom = entropy.Bytes
//
// A test patches it for its whole body with Func, or for a delimited block
// with With. Either way the original value is restored when the scope ends.
//
//	patch := impatch.Func(t, &fots.URandom).ReturnValue([]byte("pumpkins"), nil)
//	out, _ := fots.ABCURandom(5) // "abcpumpkins"
//	patch.AssertCallCount(1)
//
// Code that copied the function value before the patch was installed keeps
// calling the copy. Patch the variable the caller actually reads.
package impatch

import (
	"github.com/toejough/impatch/internal/core"
)

// Call is a single recorded invocation of a patched function.
type Call = core.Call

// Matcher defines the interface for flexible argument matching.
// Gomega matchers satisfy it.
type Matcher = core.Matcher

// TestReporter is the minimal interface impatch needs from test frameworks.
type TestReporter = core.TestReporter

// MatchValue checks if actual matches expected.
func MatchValue(actual, expected any) (bool, string) {
	return core.MatchValue(actual, expected)
}

// MustRegister is like Register but panics on error. It is meant for init
// functions in test files.
func MustRegister[F any](name string, target *F) {
	err := Register(name, target)
	if err != nil {
		panic(err)
	}
}

// Names returns every registered target name, sorted.
func Names() []string {
	return core.Names()
}

// Patched reports whether target currently has an active patch.
func Patched[F any](target *F) bool {
	return core.Depth(target) > 0
}

// Register makes target patchable by name with Named. Registering the same
// target under the same name twice is a no-op.
func Register[F any](name string, target *F) error {
	return core.Register(name, target)
}
