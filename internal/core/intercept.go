package core

import (
	"errors"
	"fmt"
	"reflect"
)

// Exported variables.
var (
	ErrNotFunc     = errors.New("target is not a function")
	ErrResultCount = errors.New("wrong number of result values")
	ErrResultType  = errors.New("result value not assignable")
)

// Responder produces the results of an intercepted call. index is the
// zero-based position of the call in its CallLog.
type Responder func(index int, in []reflect.Value) []reflect.Value

// CallThrough invokes fn with in, spreading a trailing variadic slice.
func CallThrough(fn reflect.Value, in []reflect.Value) []reflect.Value {
	if fn.Type().IsVariadic() {
		return fn.CallSlice(in)
	}

	return fn.Call(in)
}

// ConvertResults turns loosely typed values into results for fnType. Untyped
// nil becomes the zero value of a nillable result type.
func ConvertResults(fnType reflect.Type, values []any) ([]reflect.Value, error) {
	if fnType.NumOut() != len(values) {
		return nil, fmt.Errorf("%w: %s returns %d, got %d",
			ErrResultCount, fnType, fnType.NumOut(), len(values))
	}

	out := make([]reflect.Value, len(values))

	for i, value := range values {
		want := fnType.Out(i)

		if value == nil {
			if !nillable(want) {
				return nil, fmt.Errorf("%w: result %d of %s is %s, got nil", ErrResultType, i, fnType, want)
			}

			out[i] = reflect.Zero(want)

			continue
		}

		got := reflect.ValueOf(value)
		if !got.Type().AssignableTo(want) {
			return nil, fmt.Errorf("%w: result %d of %s is %s, got %s", ErrResultType, i, fnType, want, got.Type())
		}

		converted := reflect.New(want).Elem()
		converted.Set(got)
		out[i] = converted
	}

	return out, nil
}

// Intercept returns a function of type fnType that records each call in log
// and answers with respond. It panics if fnType is not a func type.
func Intercept(fnType reflect.Type, log *CallLog, respond Responder) reflect.Value {
	if fnType.Kind() != reflect.Func {
		panic(fmt.Sprintf("%v: %s", ErrNotFunc, fnType))
	}

	return reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, arg := range in {
			args[i] = arg.Interface()
		}

		return respond(log.Record(args), in)
	})
}

// ZeroResults returns the zero value of each of fnType's results.
func ZeroResults(fnType reflect.Type) []reflect.Value {
	out := make([]reflect.Value, fnType.NumOut())
	for i := range out {
		out[i] = reflect.Zero(fnType.Out(i))
	}

	return out
}

func nillable(t reflect.Type) bool {
	switch t.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	default:
		return false
	}
}
