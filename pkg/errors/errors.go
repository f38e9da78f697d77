package errors

import (
	"fmt"
	"io"
)

// ChainError is the interface implemented by all resolver errors.
type ChainError interface {
	error
	Kind() string // e.g., "PropertyNotFound", "NotCallable", "CycleDetected"
	// Message returns the specific error message without the kind prefix.
	Message() string
	Unwrap() error // For error wrapping support (errors.Is/As)
}

// kindError is a sentinel matched by errors.Is against any ChainError of the same kind.
type kindError string

func (k kindError) Error() string { return string(k) }

var (
	ErrPropertyNotFound error = kindError("PropertyNotFound")
	ErrNotCallable      error = kindError("NotCallable")
	ErrCycleDetected    error = kindError("CycleDetected")
	ErrRealmMismatch    error = kindError("RealmMismatch")
)

// --- Concrete Error Types ---

// PropertyNotFoundError reports an invocation of a key that no object along
// the delegate chain holds.
type PropertyNotFoundError struct {
	Key   string
	Cause error // Underlying cause, if any
}

func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("PropertyNotFound Error: %s", e.Message())
}
func (e *PropertyNotFoundError) Kind() string { return "PropertyNotFound" }
func (e *PropertyNotFoundError) Message() string {
	return fmt.Sprintf("property '%s' not found on receiver or its prototype chain", e.Key)
}
func (e *PropertyNotFoundError) Unwrap() error { return e.Cause }
func (e *PropertyNotFoundError) Is(target error) bool {
	return target == ErrPropertyNotFound
}

// NotCallableError reports an invocation of a key whose resolved value is not a function.
type NotCallableError struct {
	Key      string
	TypeName string // typeof of the resolved value
	Cause    error
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("NotCallable Error: %s", e.Message())
}
func (e *NotCallableError) Kind() string { return "NotCallable" }
func (e *NotCallableError) Message() string {
	if e.TypeName == "" {
		return fmt.Sprintf("'%s' is not a function", e.Key)
	}
	return fmt.Sprintf("'%s' is not a function (got %s)", e.Key, e.TypeName)
}
func (e *NotCallableError) Unwrap() error { return e.Cause }
func (e *NotCallableError) Is(target error) bool {
	return target == ErrNotCallable
}

// CycleDetectedError reports a rejected delegate rebinding that would make an
// object reachable from itself.
type CycleDetectedError struct {
	Object    string // display form of the object being rebound
	Prototype string // display form of the rejected prototype
	Cause     error
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("CycleDetected Error: %s", e.Message())
}
func (e *CycleDetectedError) Kind() string { return "CycleDetected" }
func (e *CycleDetectedError) Message() string {
	if e.Object == "" {
		return "cyclic __proto__ value"
	}
	return fmt.Sprintf("cyclic __proto__ value: %s cannot delegate to %s", e.Object, e.Prototype)
}
func (e *CycleDetectedError) Unwrap() error { return e.Cause }
func (e *CycleDetectedError) Is(target error) bool {
	return target == ErrCycleDetected
}

// RealmMismatchError reports an attempt to link objects owned by different realms.
type RealmMismatchError struct {
	Msg   string
	Cause error
}

func (e *RealmMismatchError) Error() string {
	return fmt.Sprintf("RealmMismatch Error: %s", e.Msg)
}
func (e *RealmMismatchError) Kind() string    { return "RealmMismatch" }
func (e *RealmMismatchError) Message() string { return e.Msg }
func (e *RealmMismatchError) Unwrap() error   { return e.Cause }
func (e *RealmMismatchError) Is(target error) bool {
	return target == ErrRealmMismatch
}

// RuntimeError represents a failure raised by a native function or a lesson.
type RuntimeError struct {
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("Runtime Error: %s", e.Msg)
}
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }
func (e *RuntimeError) Unwrap() error   { return e.Cause }
func (e *RuntimeError) CausedBy(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// NewRuntimeError formats a RuntimeError message.
func NewRuntimeError(format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// --- Error Reporting ---

// DisplayErrors prints a list of errors to w, one per line.
// ChainErrors are printed as "<Kind> Error: <Message>"; anything else verbatim.
func DisplayErrors(w io.Writer, errs []error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if ce, ok := err.(ChainError); ok {
			fmt.Fprintf(w, "%s Error: %s\n", ce.Kind(), ce.Message())
			continue
		}
		fmt.Fprintln(w, err.Error())
	}
}
