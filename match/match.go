// Package match provides matchers for use with impatch's AssertCalledWith and
// AssertCallAt. Gomega matchers work there too; gomega also exports a
// Satisfy, so import this package by name when dot-importing gomega:
//
//	patch.AssertCalledWith(BeNumerically(">", 0))
//	patch.AssertCallAt(0, match.BeAny)
package match

import (
	"errors"
	"fmt"
)

// errTypeMismatch is a sentinel error for type assertion failures.
var errTypeMismatch = errors.New("type mismatch")

// Matcher defines the interface for flexible value matching.
// Compatible with gomega.GomegaMatcher via duck typing - any type
// implementing Match and FailureMessage will work.
type Matcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
}

// BeAny is a matcher that matches any value.
// Useful when you don't care about a particular argument.
//
//nolint:gochecknoglobals // Intentional exported constant-like value
var BeAny Matcher = anyMatcher{}

// Capture returns a matcher that matches any value of type T and stores it in
// dest, so an argument can be inspected after the assertion.
func Capture[T any](dest *T) Matcher {
	return &captureMatcher[T]{dest: dest}
}

// Satisfy returns a matcher that uses a predicate function to check for a match.
// The predicate should return nil if the value matches, or an error describing
// the mismatch if it does not.
//
// Example:
//
//	patch.AssertCalledWith(Satisfy(func(n int) error {
//	    if n < 0 { return fmt.Errorf("expected non-negative length, got %d", n) }
//	    return nil
//	}))
func Satisfy[T any](predicate func(T) error) Matcher {
	return &satisfyMatcher[T]{predicate: predicate}
}

// anyMatcher is the implementation of the BeAny matcher.
type anyMatcher struct{}

// FailureMessage returns an empty string since BeAny always matches.
func (anyMatcher) FailureMessage(any) string {
	return ""
}

// Match always returns true - matches any value.
func (anyMatcher) Match(any) (bool, error) {
	return true, nil
}

type captureMatcher[T any] struct {
	dest *T
}

func (m *captureMatcher[T]) FailureMessage(actual any) string {
	return fmt.Sprintf("cannot capture %T as %T", actual, *new(T))
}

func (m *captureMatcher[T]) Match(actual any) (bool, error) {
	val, ok := actual.(T)
	if !ok {
		return false, nil
	}

	*m.dest = val

	return true, nil
}

type satisfyMatcher[T any] struct {
	predicate func(T) error
	lastErr   error
}

func (m *satisfyMatcher[T]) FailureMessage(actual any) string {
	if m.lastErr != nil {
		return fmt.Sprintf("value %v does not satisfy predicate: %v", actual, m.lastErr)
	}

	return fmt.Sprintf("value %v does not satisfy predicate", actual)
}

func (m *satisfyMatcher[T]) Match(actual any) (bool, error) {
	val, ok := actual.(T)

	if !ok {
		return false, fmt.Errorf("%w: expected %T, got %T", errTypeMismatch, *new(T), actual)
	}

	m.lastErr = m.predicate(val)

	return m.lastErr == nil, nil
}
