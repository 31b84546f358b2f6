// Package ferr defines the uniform error payload used across the semantic
// core, modeled on the CLIError pattern the rest of this codebase's lineage
// uses for reporting.
package ferr

import (
	"encoding/json"
	"fmt"
)

// Code enumerates the diagnostic kinds from the error handling design.
type Code string

const (
	ErrParse        Code = "ERR_PARSE"
	ErrSubstitution Code = "ERR_SUBSTITUTION"
	ErrConstraint   Code = "ERR_CONSTRAINT"
	ErrLayout       Code = "ERR_LAYOUT"
	ErrCycle        Code = "ERR_CYCLE"
	ErrFatal        Code = "ERR_FATAL"
)

// Location pinpoints a diagnostic to a source position. It is advisory only,
// per the seqlock-backed diagloc package.
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is the uniform error payload for every fallible operation in
// the core. It implements error, and unwraps to the inner cause if any.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Detail   string   `json:"detail,omitempty"`
	Location Location `json:"location,omitempty"`
	inner    error
}

func (d *Diagnostic) Error() string {
	if d.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", d.Message, d.Detail, d.Location)
	}
	return fmt.Sprintf("%s (%s)", d.Message, d.Location)
}

func (d *Diagnostic) Unwrap() error { return d.inner }

// JSON renders the diagnostic for machine consumption by an external driver.
func (d *Diagnostic) JSON() string {
	b, _ := json.Marshal(d)
	return string(b)
}

// New builds a Diagnostic with no wrapped cause.
func New(code Code, loc Location, msg string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(msg, args...), Location: loc}
}

// Wrap builds a Diagnostic carrying an inner error as Detail.
func Wrap(code Code, loc Location, msg string, inner error) *Diagnostic {
	d := &Diagnostic{Code: code, Message: msg, Location: loc, inner: inner}
	if inner != nil {
		d.Detail = inner.Error()
	}
	return d
}

// IsCode reports whether err is a *Diagnostic with the given code.
func IsCode(err error, code Code) bool {
	d, ok := err.(*Diagnostic)
	return ok && d.Code == code
}

// ConstraintViolation carries the extra fields the Constraint Evaluator must
// report per spec §4.H / §7: the failed requirement text and a suggestion.
type ConstraintViolation struct {
	*Diagnostic
	FailedRequirement string   `json:"failedRequirement"`
	Suggestion        string   `json:"suggestion,omitempty"`
	Arguments         []string `json:"arguments,omitempty"`
}

// NewConstraintViolation builds a ConstraintViolation diagnostic.
func NewConstraintViolation(loc Location, requirement, message, suggestion string, args []string) *ConstraintViolation {
	return &ConstraintViolation{
		Diagnostic:        New(ErrConstraint, loc, "%s", message),
		FailedRequirement: requirement,
		Suggestion:        suggestion,
		Arguments:         args,
	}
}
