package pluggability

import (
	"fmt"
	"runtime"
	"strings"
)

// Get returns the type that answers to nameOrType, loading it if needed.
// nameOrType may be a *Type, the full name of a derivative, or any of the
// name variants it was registered under:
//
//	base.Get("FooListener")
//	base.Get(fooListener)
//	base.Get("foo")
//
// Get returns t itself for t's own name or the empty string.
func (t *Type) Get(nameOrType any) (*Type, error) {
	switch v := nameOrType.(type) {
	case *Type:
		if v == nil {
			return nil, &NotADescendantError{Type: "<nil>", Base: t.String()}
		}
		if v.IsDescendantOf(t) {
			return v, nil
		}
		return nil, &NotADescendantError{Type: v.String(), Base: t.String()}
	case string:
		return t.getByName(v)
	case fmt.Stringer:
		return t.getByName(v.String())
	default:
		return t.getByName(fmt.Sprint(v))
	}
}

func (t *Type) getByName(name string) (*Type, error) {
	if name == "" || name == t.name {
		return t, nil
	}

	key := strings.ToLower(name)
	if sub, ok := t.Lookup(key); ok {
		return t.checkDescendant(sub)
	}

	if _, err := t.LoadDerivative(name); err != nil {
		return nil, err
	}
	sub, ok := t.Lookup(key)
	if !ok {
		kind, _ := t.Kind()
		return nil, &NotRegisteredError{Kind: kind, Name: key}
	}
	return t.checkDescendant(sub)
}

func (t *Type) checkDescendant(sub *Type) (*Type, error) {
	if !sub.IsDescendantOf(t) {
		return nil, &NotADescendantError{Type: sub.String(), Base: t.String()}
	}
	return sub, nil
}

// New instantiates t with args. Failures of the constructor are returned as
// a *ConstructionError.
func (t *Type) New(args ...any) (any, error) {
	return t.construct(t.String(), args)
}

// Create resolves nameOrType as Get does and instantiates the result with
// args. Only the type lookup is cached; every call constructs a new value.
func (t *Type) Create(nameOrType any, args ...any) (any, error) {
	sub, err := t.Get(nameOrType)
	if err != nil {
		return nil, err
	}
	return sub.construct(requestName(nameOrType), args)
}

// CreateAs is Create for callers that know the Go type of the values their
// derivatives construct.
func CreateAs[T any](base *Type, nameOrType any, args ...any) (T, error) {
	var zero T
	v, err := base.Create(nameOrType, args...)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("creating %s: constructed %T, not %T", requestName(nameOrType), v, zero)
	}
	return out, nil
}

func requestName(nameOrType any) string {
	if t, ok := nameOrType.(*Type); ok {
		return t.String()
	}
	return fmt.Sprint(nameOrType)
}

func (t *Type) construct(request string, args []any) (v any, err error) {
	if t.ctor == nil {
		return nil, &ConstructionError{Request: request, Err: fmt.Errorf("%s: %w", t, ErrNoConstructor)}
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		cause, ok := r.(error)
		if !ok {
			cause = fmt.Errorf("%v", r)
		}
		v = nil
		err = &ConstructionError{Request: request, Err: cause, Panic: r, Stack: callerStack()}
	}()

	v, err = t.ctor(args...)
	if err != nil {
		return nil, &ConstructionError{Request: request, Err: err}
	}
	return v, nil
}

// pkgPrefix is the qualified-name prefix of functions in this package.
var pkgPrefix = func() string {
	pc, _, _, _ := runtime.Caller(0)
	name := runtime.FuncForPC(pc).Name()
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	return name[:slash+1+dot+1]
}()

// callerStack formats the current stack, leaving out the runtime's panic
// machinery and every frame belonging to this package, so that it reads from
// the constructor's failure point straight to the caller of Create.
func callerStack() string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		if !skipFrame(frame.Function) {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return b.String()
}

func skipFrame(function string) bool {
	return strings.HasPrefix(function, "runtime.") || strings.HasPrefix(function, pkgPrefix)
}
