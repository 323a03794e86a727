package match_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/toejough/impatch/match"
)

func TestBeAny(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	for _, value := range []any{nil, 0, "x", []byte("y")} {
		ok, err := match.BeAny.Match(value)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(ok).To(BeTrue())
	}

	g.Expect(match.BeAny.FailureMessage(1)).To(BeEmpty())
}

func TestCapture(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var length int

	matcher := match.Capture(&length)

	ok, err := matcher.Match(32)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ok).To(BeTrue())
	g.Expect(length).To(Equal(32))

	ok, err = matcher.Match("thirty-two")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ok).To(BeFalse())
	g.Expect(length).To(Equal(32))
	g.Expect(matcher.FailureMessage("thirty-two")).To(Equal("cannot capture string as int"))
}

func TestSatisfy(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	errNegative := errors.New("negative")
	nonNegative := match.Satisfy(func(n int) error {
		if n < 0 {
			return errNegative
		}

		return nil
	})

	ok, err := nonNegative.Match(5)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ok).To(BeTrue())

	ok, err = nonNegative.Match(-1)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ok).To(BeFalse())
	g.Expect(nonNegative.FailureMessage(-1)).To(Equal("value -1 does not satisfy predicate: negative"))

	ok, err = nonNegative.Match("5")
	g.Expect(err).To(MatchError(ContainSubstring("type mismatch")))
	g.Expect(ok).To(BeFalse())
}

func TestSatisfy_FailureMessageBeforeMatch(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	matcher := match.Satisfy(func(int) error { return nil })
	g.Expect(matcher.FailureMessage(3)).To(Equal("value 3 does not satisfy predicate"))
}
