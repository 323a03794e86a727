package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/akedrou/textdiff"
)

// Exported variables.
var (
	ErrArgCount    = errors.New("wrong number of arguments")
	ErrArgMismatch = errors.New("argument mismatch")
)

// Matcher defines the interface for flexible value matching. Gomega matchers
// satisfy it.
type Matcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
}

// DescribeMismatch renders expected and actual arguments as a unified diff,
// one argument per line.
func DescribeMismatch(expected, actual []any) string {
	return textdiff.Unified("expected", "actual", formatArgs(expected), formatArgs(actual))
}

// MatchArgs checks each actual argument against the expected value or
// Matcher at the same position.
func MatchArgs(actual, expected []any) error {
	if len(actual) != len(expected) {
		return fmt.Errorf("%w: expected %d, got %d", ErrArgCount, len(expected), len(actual))
	}

	for index, want := range expected {
		ok, msg := MatchValue(actual[index], want)
		if !ok {
			return fmt.Errorf("%w: arg %d: %s", ErrArgMismatch, index, msg)
		}
	}

	return nil
}

// MatchValue checks if actual matches expected.
// If expected implements the Matcher interface, uses its Match method.
// Otherwise, uses reflect.DeepEqual for comparison.
// Returns (success, errorMessage). If success is true, errorMessage is empty.
func MatchValue(actual, expected any) (bool, string) {
	if matcher, ok := expected.(Matcher); ok {
		success, err := matcher.Match(actual)
		if err != nil {
			return false, err.Error()
		}

		if !success {
			return false, matcher.FailureMessage(actual)
		}

		return true, ""
	}

	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %#v, got %#v", expected, actual)
}

func formatArgs(args []any) string {
	var builder strings.Builder

	for index, arg := range args {
		if _, ok := arg.(Matcher); ok {
			fmt.Fprintf(&builder, "%d: matcher %T\n", index, arg)

			continue
		}

		fmt.Fprintf(&builder, "%d: %#v\n", index, arg)
	}

	return builder.String()
}
