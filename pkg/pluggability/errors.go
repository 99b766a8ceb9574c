package pluggability

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrModuleNotFound is returned by a Loader when nothing exists at the
	// path it was asked to load. Any other Loader error is fatal.
	ErrModuleNotFound = errors.New("module not found")

	// ErrNoConstructor indicates a type was resolved but cannot be instantiated.
	ErrNoConstructor = errors.New("type has no constructor")
)

// RootNotFoundError indicates a type was used as a derivative but none of
// its ancestors enabled pluggability.
type RootNotFoundError struct {
	Type string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("couldn't find plugin base for %s", e.Type)
}

// NotADescendantError indicates Get or Create was handed a type outside the
// receiving type's hierarchy.
type NotADescendantError struct {
	Type string
	Base string
}

func (e *NotADescendantError) Error() string {
	return fmt.Sprintf("%s is not a descendent of %s", e.Type, e.Base)
}

// NotFoundError indicates that no candidate path existed for a requested
// derivative name. Tried lists every candidate in the order it was tried.
type NotFoundError struct {
	Kind  string
	Name  string
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("couldn't find a %s named '%s': tried [%s]",
		e.Kind, e.Name, strings.Join(quoteAll(e.Tried), ", "))
}

// NotRegisteredError indicates that a candidate loaded cleanly but did not
// declare the derivative that was asked for. This is usually a mismatch
// between a file name and the name of the type it declares.
type NotRegisteredError struct {
	Path string
	Kind string
	Name string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("load of '%s' succeeded, but didn't load a %s named '%s' for some reason",
		e.Path, e.Kind, e.Name)
}

// ConstructionError wraps a failure raised by a derivative's constructor,
// annotated with the name it was requested by. The original error stays
// reachable through errors.Is and errors.As.
type ConstructionError struct {
	Request string
	Err     error

	// Panic holds the recovered value when the constructor panicked.
	Panic any

	// Stack is the panic stack with this package's frames removed. It is
	// empty when the constructor returned an error instead of panicking.
	Stack string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("when creating '%s': %v", e.Request, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
