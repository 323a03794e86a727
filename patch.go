package impatch

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/toejough/impatch/internal/core"
)

// Patch is an installed replacement of a function variable of type F.
// By default the replacement returns the zero value of every result.
type Patch[F any] struct {
	t        TestReporter
	target   *F
	original F
	mock     F
	fnType   reflect.Type
	layer    *core.Layer
	log      core.CallLog

	mu       sync.Mutex
	respond  core.Responder
	restored bool
}

// Func patches target until the test ends. The patch is restored through
// t's Cleanup, so t must provide one (as *testing.T does).
// It panics if target is not a non-nil pointer to a func variable.
func Func[F any](t TestReporter, target *F) *Patch[F] {
	t.Helper()

	registrar, ok := t.(core.CleanupRegistrar)
	if !ok {
		t.Fatalf("impatch.Func: %T has no Cleanup method, use impatch.With", t)

		return nil
	}

	patch := install(t, target)
	registrar.Cleanup(patch.Restore)

	return patch
}

// Named patches the target registered under name until the test ends.
func Named[F any](t TestReporter, name string) *Patch[F] {
	t.Helper()

	target, err := core.Lookup(name)
	if err != nil {
		t.Fatalf("impatch.Named: %v", err)

		return nil
	}

	typed, ok := target.(*F)
	if !ok {
		t.Fatalf("impatch.Named: %q is %T, not %T", name, target, (*F)(nil))

		return nil
	}

	return Func(t, typed)
}

// With patches target, runs body with the patch, and restores target when
// body exits, including by panic or t.FailNow.
func With[F any](t TestReporter, target *F, body func(patch *Patch[F])) {
	t.Helper()

	patch := install(t, target)
	defer patch.Restore()

	body(patch)
}

// Active reports whether the patch is still installed.
func (p *Patch[F]) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return !p.restored
}

// AssertCallAt fails the test unless the call at the zero-based index was
// made with arguments matching expected. Expected values may be Matchers.
func (p *Patch[F]) AssertCallAt(index int, expected ...any) {
	p.t.Helper()

	call, ok := p.log.At(index)
	if !ok {
		p.t.Fatalf("impatch: expected call %d of %s, but it was called %d time(s)",
			index, p.fnType, p.log.Count())

		return
	}

	p.assertArgs(fmt.Sprintf("call %d", index), call, expected)
}

// AssertCallCount fails the test unless the patch was called exactly n times.
func (p *Patch[F]) AssertCallCount(n int) {
	p.t.Helper()

	if count := p.log.Count(); count != n {
		p.t.Fatalf("impatch: expected %s to be called %d time(s), got %d", p.fnType, n, count)
	}
}

// AssertCalled fails the test if the patch was never called.
func (p *Patch[F]) AssertCalled() {
	p.t.Helper()

	if !p.log.Called() {
		p.t.Fatalf("impatch: expected %s to be called", p.fnType)
	}
}

// AssertCalledWith fails the test unless the most recent call was made with
// arguments matching expected. Expected values may be Matchers.
func (p *Patch[F]) AssertCalledWith(expected ...any) {
	p.t.Helper()

	call, ok := p.log.Last()
	if !ok {
		p.t.Fatalf("impatch: expected %s to be called with %v, but it was not called",
			p.fnType, Call{Args: expected})

		return
	}

	p.assertArgs("last call", call, expected)
}

// AssertNotCalled fails the test if the patch was called.
func (p *Patch[F]) AssertNotCalled() {
	p.t.Helper()

	if count := p.log.Count(); count != 0 {
		p.t.Fatalf("impatch: expected %s not to be called, got %d call(s)", p.fnType, count)
	}
}

// CallAt returns the call at the zero-based index and whether it exists.
func (p *Patch[F]) CallAt(index int) (Call, bool) {
	return p.log.At(index)
}

// CallCount returns the number of calls since the last reset.
func (p *Patch[F]) CallCount() int {
	return p.log.Count()
}

// Called reports whether the patch was called since the last reset.
func (p *Patch[F]) Called() bool {
	return p.log.Called()
}

// Calls returns every call since the last reset, oldest first.
func (p *Patch[F]) Calls() []Call {
	return p.log.Calls()
}

// LastCall returns the most recent call and whether there is one.
func (p *Patch[F]) LastCall() (Call, bool) {
	return p.log.Last()
}

// Mock returns the replacement function installed in the target.
func (p *Patch[F]) Mock() F {
	return p.mock
}

// Original returns the value the target held when the patch was installed.
func (p *Patch[F]) Original() F {
	return p.original
}

// Panic makes every call panic with value.
func (p *Patch[F]) Panic(value any) *Patch[F] {
	p.setResponder(func(int, []reflect.Value) []reflect.Value {
		panic(value)
	})

	return p
}

// Passthrough makes every call delegate to the function beneath the patch
// while still being recorded. That is Original until an enclosing patch on
// the same target is restored, after which it is whatever that patch had
// replaced.
func (p *Patch[F]) Passthrough() *Patch[F] {
	p.t.Helper()

	if reflect.ValueOf(p.original).IsNil() {
		p.t.Fatalf("impatch: Passthrough: original %s is nil", p.fnType)

		return p
	}

	p.setResponder(func(_ int, in []reflect.Value) []reflect.Value {
		below := reflect.ValueOf(p.layer.Below())
		if !below.IsValid() || below.IsNil() {
			p.t.Fatalf("impatch: Passthrough: nothing beneath the patch of %s", p.fnType)

			return core.ZeroResults(p.fnType)
		}

		return core.CallThrough(below, in)
	})

	return p
}

// ResetCalls forgets every recorded call. The patch stays installed and its
// behaviour is unchanged.
func (p *Patch[F]) ResetCalls() {
	p.log.Reset()
}

// Restore puts the original value back. It is safe to call more than once.
// Nested patches on the same target may be restored in any order.
func (p *Patch[F]) Restore() {
	p.mu.Lock()

	if p.restored {
		p.mu.Unlock()

		return
	}

	p.restored = true
	p.mu.Unlock()

	previous, top := core.Pop(p.target, p.layer)
	if top {
		*p.target, _ = previous.(F)
	}
}

// ReturnValue makes every call return values, whatever its arguments.
// values holds one entry per result of F; nil stands for a nil result.
// Every call returns the same values, so a slice, map or pointer result is
// shared between callers and a caller's mutation is seen by later calls.
// Use SideEffect to build a fresh result per call.
// Compare ReturnValues, which takes one set of results per call.
func (p *Patch[F]) ReturnValue(values ...any) *Patch[F] {
	p.t.Helper()

	out, err := core.ConvertResults(p.fnType, values)
	if err != nil {
		p.t.Fatalf("impatch: ReturnValue: %v", err)

		return p
	}

	p.setResponder(func(int, []reflect.Value) []reflect.Value {
		return out
	})

	return p
}

// ReturnValues makes successive calls return successive result sets. A call
// past the end of the sequence fails the test and returns zero values.
// Compare ReturnValue, which returns the same results for every call.
func (p *Patch[F]) ReturnValues(perCall ...[]any) *Patch[F] {
	p.t.Helper()

	sequence := make([][]reflect.Value, 0, len(perCall))

	for index, values := range perCall {
		out, err := core.ConvertResults(p.fnType, values)
		if err != nil {
			p.t.Fatalf("impatch: ReturnValues: call %d: %v", index, err)

			return p
		}

		sequence = append(sequence, out)
	}

	var (
		mu   sync.Mutex
		next int
	)

	p.setResponder(func(int, []reflect.Value) []reflect.Value {
		mu.Lock()
		current := next
		next++
		mu.Unlock()

		if current >= len(sequence) {
			p.t.Fatalf("impatch: ReturnValues: %s called %d time(s), only %d result set(s) configured",
				p.fnType, current+1, len(sequence))

			return core.ZeroResults(p.fnType)
		}

		return sequence[current]
	})

	return p
}

// SideEffect makes every call delegate to replacement, so results may depend
// on the arguments.
func (p *Patch[F]) SideEffect(replacement F) *Patch[F] {
	p.t.Helper()

	value := reflect.ValueOf(replacement)
	if value.IsNil() {
		p.t.Fatalf("impatch: SideEffect: replacement %s is nil", p.fnType)

		return p
	}

	p.setResponder(func(_ int, in []reflect.Value) []reflect.Value {
		return core.CallThrough(value, in)
	})

	return p
}

func (p *Patch[F]) assertArgs(which string, call Call, expected []any) {
	p.t.Helper()

	err := core.MatchArgs(call.Args, expected)
	if err != nil {
		p.t.Fatalf("impatch: %s of %s: %v\n%s", which, p.fnType, err,
			core.DescribeMismatch(expected, call.Args))
	}
}

func (p *Patch[F]) dispatch(index int, in []reflect.Value) []reflect.Value {
	p.mu.Lock()
	respond := p.respond
	p.mu.Unlock()

	return respond(index, in)
}

func (p *Patch[F]) setResponder(respond core.Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.respond = respond
}

func install[F any](t TestReporter, target *F) *Patch[F] {
	t.Helper()

	err := core.CheckFuncPointer(target)
	if err != nil {
		panic(fmt.Sprintf("impatch: %v", err))
	}

	fnType := reflect.TypeOf(target).Elem()
	patch := &Patch[F]{
		t:        t,
		target:   target,
		original: *target,
		fnType:   fnType,
	}
	patch.respond = func(int, []reflect.Value) []reflect.Value {
		return core.ZeroResults(fnType)
	}

	patch.mock, _ = core.Intercept(fnType, &patch.log, patch.dispatch).Interface().(F)
	patch.layer = core.Push(target, *target)
	*target = patch.mock

	return patch
}
