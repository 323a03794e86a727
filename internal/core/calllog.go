package core

import (
	"fmt"
	"strings"
	"sync"
)

// Call is a single recorded invocation of an intercepted function.
type Call struct {
	Args []any
}

// Arg returns the argument at index, or nil if there is no such argument.
func (c Call) Arg(index int) any {
	if index < 0 || index >= len(c.Args) {
		return nil
	}

	return c.Args[index]
}

// String formats the call the way it would appear in source, e.g. "(5, \"x\")".
func (c Call) String() string {
	parts := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		parts = append(parts, fmt.Sprintf("%#v", arg))
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// CallLog is an ordered record of calls. The zero value is ready to use.
type CallLog struct {
	mu    sync.Mutex
	calls []Call
}

// At returns the call at the zero-based index and whether it exists.
func (l *CallLog) At(index int) (Call, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.calls) {
		return Call{}, false
	}

	return l.calls[index], true
}

// Called reports whether any call has been recorded since the last reset.
func (l *CallLog) Called() bool {
	return l.Count() > 0
}

// Calls returns a copy of every recorded call, oldest first.
func (l *CallLog) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()

	calls := make([]Call, len(l.calls))
	copy(calls, l.calls)

	return calls
}

// Count returns the number of recorded calls.
func (l *CallLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.calls)
}

// Last returns the most recent call and whether there is one.
func (l *CallLog) Last() (Call, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.calls) == 0 {
		return Call{}, false
	}

	return l.calls[len(l.calls)-1], true
}

// Record appends a call with the given arguments and returns its index.
func (l *CallLog) Record(args []any) int {
	recorded := make([]any, len(args))
	copy(recorded, args)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, Call{Args: recorded})

	return len(l.calls) - 1
}

// Reset forgets every recorded call.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = nil
}
