// Package entropy is the process's source of random bytes.
package entropy

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrNegativeLength is returned when a negative number of bytes is requested.
var ErrNegativeLength = errors.New("negative length")

// Bytes returns n random bytes. It is a variable so tests can replace it.
//
//nolint:gochecknoglobals // seam for tests
var Bytes = read

func read(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeLength, n)
	}

	buf := make([]byte, n)

	_, err := rand.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading %d random bytes: %w", n, err)
	}

	return buf, nil
}
