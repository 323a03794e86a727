package core

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Exported variables.
var (
	ErrDuplicateName  = errors.New("name already registered")
	ErrNotFuncPointer = errors.New("target must be a non-nil pointer to a func variable")
	ErrUnknownName    = errors.New("no target registered under name")
)

// Layer is one active patch on a target. Previous is the value the target
// held before the layer was installed; it is rewritten by Pop when a lower
// layer is removed first, so read it through Below while layers are live.
type Layer struct {
	Previous any
}

// Below returns the value the layer currently sits on.
func (l *Layer) Below() any {
	layersMu.Lock()
	defer layersMu.Unlock()

	return l.Previous
}

// CheckFuncPointer returns nil if target is a non-nil pointer to a func.
func CheckFuncPointer(target any) error {
	value := reflect.ValueOf(target)
	if !value.IsValid() || value.Kind() != reflect.Pointer || value.IsNil() ||
		value.Elem().Kind() != reflect.Func {
		return fmt.Errorf("%w: got %T", ErrNotFuncPointer, target)
	}

	return nil
}

// Lookup returns the target registered under name.
func Lookup(name string) (any, error) {
	namesMu.RLock()
	defer namesMu.RUnlock()

	target, ok := names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}

	return target, nil
}

// Names returns every registered name, sorted.
func Names() []string {
	namesMu.RLock()
	defer namesMu.RUnlock()

	registered := make([]string, 0, len(names))
	for name := range names {
		registered = append(registered, name)
	}

	slices.Sort(registered)

	return registered
}

// Pop removes layer from target's stack. If layer was the top it returns the
// value to restore and true. Otherwise the layer above inherits layer's
// Previous, so the chain still ends at the original value, and Pop returns
// false: the target must not be touched.
func Pop(target any, layer *Layer) (any, bool) {
	layersMu.Lock()
	defer layersMu.Unlock()

	stack := layers[target]

	index := slices.Index(stack, layer)
	if index < 0 {
		return nil, false
	}

	top := index == len(stack)-1
	if !top {
		stack[index+1].Previous = layer.Previous
	}

	stack = slices.Delete(stack, index, index+1)
	if len(stack) == 0 {
		delete(layers, target)
	} else {
		layers[target] = stack
	}

	if !top {
		return nil, false
	}

	return layer.Previous, true
}

// Push records a new layer on target and returns it.
func Push(target, previous any) *Layer {
	layersMu.Lock()
	defer layersMu.Unlock()

	layer := &Layer{Previous: previous}
	layers[target] = append(layers[target], layer)

	return layer
}

// Depth returns the number of active layers on target.
func Depth(target any) int {
	layersMu.Lock()
	defer layersMu.Unlock()

	return len(layers[target])
}

// Register records target under name so it can be patched by name.
func Register(name string, target any) error {
	err := CheckFuncPointer(target)
	if err != nil {
		return err
	}

	namesMu.Lock()
	defer namesMu.Unlock()

	if existing, ok := names[name]; ok {
		if existing == target {
			return nil
		}

		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	names[name] = target

	return nil
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Package-level registry is intentional for seam coordination
	layers = make(map[any][]*Layer)
	//nolint:gochecknoglobals // Mutex for layers
	layersMu sync.Mutex
	//nolint:gochecknoglobals // Package-level name registry
	names = make(map[string]any)
	//nolint:gochecknoglobals // Mutex for names
	namesMu sync.RWMutex
)
