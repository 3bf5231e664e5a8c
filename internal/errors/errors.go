// Package errors distinguishes the two error shapes the compiler
// deals in: CompileError, the user-facing diagnostic a front end (or
// nanoc's own CLI-level source checks) raises over source text, and
// Fault, the internal-invariant-failure class that aborts the
// compiler itself rather than reporting a problem in the input.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorType classifies a CompileError the way a front end's own
// diagnostics would be tagged before ever reaching the back end.
type ErrorType string

const (
	SyntaxError      ErrorType = "SyntaxError"
	RuntimeError      ErrorType = "RuntimeError"
	TypeError        ErrorType = "TypeError"
	ReferenceError   ErrorType = "ReferenceError"
	ImportError      ErrorType = "ImportError"
	CompileErrorType ErrorType = "CompileError"
)

// SourceLocation pins a CompileError to a file/line/column.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// CompileError is a user-facing diagnostic with source location
// information: a plain error implementation, not a debugging aid, so
// it carries no stack trace.
type CompileError struct {
	Type     ErrorType
	Message  string
	Location SourceLocation
	Source   string // the source line where the error occurred
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Type, e.Message)
	if e.Location.File != "" {
		fmt.Fprintf(&sb, "\n  at %s:%d:%d", e.Location.File, e.Location.Line, e.Location.Column)
		if e.Source != "" {
			fmt.Fprintf(&sb, "\n  %d | %s", e.Location.Line, e.Source)
			if e.Location.Column > 0 {
				sb.WriteString("\n  " + strings.Repeat(" ", len(fmt.Sprintf("%d | ", e.Location.Line))+e.Location.Column-1) + "^")
			}
		}
	}
	return sb.String()
}

// NewSyntaxError builds a CompileError tagged SyntaxError.
func NewSyntaxError(message, file string, line, column int) *CompileError {
	return &CompileError{Type: SyntaxError, Message: message, Location: SourceLocation{File: file, Line: line, Column: column}}
}

// NewCompileError builds a CompileError of the given type, for the
// taxonomy entries a CLI-level check (rather than a front end) can
// raise directly: a source root that never got past parsing, or an
// out-of-scope construct nanoc's own loader rejects.
func NewCompileError(t ErrorType, message, file string, line, column int) *CompileError {
	return &CompileError{Type: t, Message: message, Location: SourceLocation{File: file, Line: line, Column: column}}
}

// WithSource attaches the offending source line for display.
func (e *CompileError) WithSource(source string) *CompileError {
	e.Source = source
	return e
}

// Fault is an internal invariant failure: a pop from an empty stack
// expected non-empty, an unreachable case, a nil handle where
// forbidden. Unlike CompileError it represents a bug in nanoc itself,
// so it always carries a stack trace from the point it was raised.
type Fault struct {
	Invariant string
	cause     error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("internal invariant violated: %s", f.Invariant)
}

// Unwrap exposes the stack-trace-carrying cause so errors.As/Is and
// fmt's "%+v" verb can walk to it.
func (f *Fault) Unwrap() error { return f.cause }

// NewFault raises a Fault naming the violated invariant, wrapping a
// freshly captured stack trace via github.com/pkg/errors.
func NewFault(invariant string) *Fault {
	return &Fault{Invariant: invariant, cause: pkgerrors.WithStack(fmt.Errorf("%s", invariant))}
}

// StackTrace exposes the underlying github.com/pkg/errors trace so
// callers can print it with "%+v".
func (f *Fault) StackTrace() pkgerrors.StackTrace {
	type tracer interface{ StackTrace() pkgerrors.StackTrace }
	if t, ok := f.cause.(tracer); ok {
		return t.StackTrace()
	}
	return nil
}
