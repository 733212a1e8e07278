package compiler

import (
	"errors"
	"fmt"
)

// Sentinel CompileError causes, matching the taxonomy in spec §7.
var (
	ErrUndefinedIdent      = errors.New("undefined identifier")
	ErrUnsupportedOperator = errors.New("operator not supported by the compiler")
	ErrNonLiteralObject    = errors.New("object literal fields must themselves be literals")
	ErrUnterminatedBlock   = errors.New("unterminated block")
)

// CompileError wraps a sentinel cause with the surrounding detail; returned
// from Compile, it prevents the program from running at all (spec §7).
type CompileError struct {
	Err    error
	Detail string
}

func (e *CompileError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *CompileError) Unwrap() error { return e.Err }

func newCompileError(err error, detail string) error {
	return &CompileError{Err: err, Detail: detail}
}
