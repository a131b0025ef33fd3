package templating

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("malformed template")

	// ErrMissingDefinition matches *MissingDefinitionError.
	ErrMissingDefinition = errors.New("missing definition")

	// ErrSubstitution matches *SubstitutionError.
	ErrSubstitution = errors.New("substitution failed")

	// ErrUndefined is returned by Variables.Lookup for unknown
	// names.
	ErrUndefined = errors.New("variable not defined")

	// ErrNotString is returned by Variables.Lookup when a document
	// value exists but is not a string.
	ErrNotString = errors.New("variable is not a string")

	// ErrNotObject is returned by Document when the top level
	// value is not a string-keyed object.
	ErrNotObject = errors.New("variable document is not an object")

	// ErrIndexOutOfRange is recorded when a reference points past
	// the symbol table.
	ErrIndexOutOfRange = errors.New("symbol index out of range")
)

const (
	reasonUnencapsulated = "unencapsulated variable names are not supported"
	reasonUnterminated   = "unterminated variable reference"
	reasonLiteralText    = "literal text is not valid UTF-8"
	reasonNameText       = "variable name is not valid UTF-8"
)

// ParseError describes malformed template input. Offset is the byte
// position at which the problem was detected.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(
		"parse error at byte %d: %s", e.Offset, e.Reason,
	)
}

// Is reports ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// MissingDefinitionError lists every referenced variable the source
// does not define, in first-reference order.
type MissingDefinitionError struct {
	Names []string
}

func (e *MissingDefinitionError) Error() string {
	quoted := make([]string, len(e.Names))
	for i, n := range e.Names {
		quoted[i] = strconv.Quote(n)
	}

	return fmt.Sprintf(
		"missing definition for %d variable(s): %s",
		len(e.Names), strings.Join(quoted, ", "),
	)
}

// Is reports ErrMissingDefinition.
func (e *MissingDefinitionError) Is(target error) bool {
	return target == ErrMissingDefinition
}

// SubstitutionError records a single reference that could not be
// substituted during Apply. Position is the token position in the
// template, Index the symbol index it points at.
type SubstitutionError struct {
	Position int
	Index    int
	Name     string
	Err      error
}

func (e *SubstitutionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf(
			"token %d: symbol %d: %v",
			e.Position, e.Index, e.Err,
		)
	}

	return fmt.Sprintf(
		"token %d: variable %q: %v",
		e.Position, e.Name, e.Err,
	)
}

// Is reports ErrSubstitution.
func (e *SubstitutionError) Is(target error) bool {
	return target == ErrSubstitution
}

func (e *SubstitutionError) Unwrap() error {
	return e.Err
}

// PartialError is the warning outcome of Apply: Text holds the
// output with the failed references left out, Errs the failures.
type PartialError struct {
	Text string
	Errs []error
}

func (e *PartialError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}

	return fmt.Sprintf(
		"partial output, %d substitution(s) failed: %s",
		len(e.Errs), strings.Join(msgs, "; "),
	)
}

func (e *PartialError) Unwrap() []error {
	return e.Errs
}
