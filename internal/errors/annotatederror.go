// Package errors decorates errors with a stack location and structured slog attributes.
//
// It re-exports the standard library helpers so callers can import a single errors package.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
)

// annotatedError carries the message, the wrapped cause, the call site, and slog attributes.
type annotatedError struct {
	msg         string
	cause       error
	pc          uintptr
	annotations []slog.Attr
}

func (e *annotatedError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.cause
}

// callerPC returns the program counter of the function skip frames above the caller.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	// runtime.Callers, callerPC, and the exported constructor.
	runtime.Callers(skip+3, pcs[:]) //nolint:mnd // see above
	return pcs[0]
}

// NewSentinel creates an error meant to be declared at package level and compared with Is.
func NewSentinel(msg string) error {
	return stderrors.New(msg)
}

// New creates an error that records where it was created.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, cause: nil, pc: callerPC(0), annotations: attrs}
}

// Wrap annotates err with a message and optional slog attributes.
//
// The returned error records the call site of Wrap so that SlogError can report it.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, cause: err, pc: callerPC(0), annotations: attrs}
}

// DecoratePanic converts a recovered panic value into an error. It returns nil when excp is nil.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	// runtime.gopanic sits between the deferred function and the panicking frame.
	var pcs [1]uintptr
	runtime.Callers(4, pcs[:]) //nolint:mnd // deferred func, gopanic, DecoratePanic, Callers
	return &annotatedError{msg: fmt.Sprintf("panic: %v", excp), cause: nil, pc: pcs[0], annotations: nil}
}

// SlogError returns an slog attribute describing err including the annotations and the source location
// of the outermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}

	attrs := []slog.Attr{slog.String("message", err.Error())}

	var (
		annotations []slog.Attr
		source      string
	)
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		ae, ok := e.(*annotatedError) //nolint:errorlint // walking the chain manually
		if !ok {
			continue
		}
		annotations = append(annotations, ae.annotations...)
		if source == "" && ae.pc != 0 {
			frame, _ := runtime.CallersFrames([]uintptr{ae.pc}).Next()
			if frame.File != "" {
				source = frame.File + ":" + strconv.Itoa(frame.Line)
			}
		}
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	if len(annotations) > 0 {
		anyAttrs := make([]any, len(annotations))
		for i, a := range annotations {
			anyAttrs[i] = a
		}
		attrs = append(attrs, slog.Group("annotations", anyAttrs...))
	}

	anyAttrs := make([]any, len(attrs))
	for i, a := range attrs {
		anyAttrs[i] = a
	}
	return slog.Group("error", anyAttrs...)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
