// Package fots builds prefixed random tokens on top of entropy.
package fots

import (
	"fmt"

	"github.com/toejough/impatch/entropy"
)

// Prefix starts every token.
const Prefix = "abc"

// URandom is this package's binding of the random source. It copies
// entropy.Bytes when the package is initialised, so patching entropy.Bytes
// afterwards does not change what ABCURandom calls.
//
//nolint:gochecknoglobals // seam for tests
var URandom = entropy.Bytes

// ABCURandom returns Prefix followed by n bytes from URandom.
func ABCURandom(n int) ([]byte, error) {
	random, err := URandom(n)
	if err != nil {
		return nil, fmt.Errorf("abc urandom: %w", err)
	}

	return append([]byte(Prefix), random...), nil
}
