// Package errkind defines the closed set of error kinds the analyzer can
// raise (spec §7) and the wrapping type jobs use to carry one back to the
// driver, the way the retrieved automaton library wraps compilation
// failures (nfa.CompileError) with an Unwrap-able cause.
package errkind

import "fmt"

// Kind is one of the error kinds spec §7 names.
type Kind string

const (
	ParseError        Kind = "ParseError"
	UnsupportedOp      Kind = "UnsupportedOp"
	ArityMismatch      Kind = "ArityMismatch"
	InputNotFound      Kind = "InputNotFound"
	ResourceExhausted  Kind = "ResourceExhausted"
	InternalInvariant  Kind = "InternalInvariant"
)

// AnalysisError wraps a failing job's cause with its Kind and the file it
// occurred in, so the driver can isolate, log, and report it without
// inspecting error strings.
type AnalysisError struct {
	Kind Kind
	File string
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// New constructs an AnalysisError, the usual entry point for analyzer code.
func New(kind Kind, file string, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, File: file, Err: err}
}

// IsFatal reports whether kind must abort the whole process rather than
// just the enclosing job (spec §7: InternalInvariant is the only one).
func IsFatal(k Kind) bool { return k == InternalInvariant }
