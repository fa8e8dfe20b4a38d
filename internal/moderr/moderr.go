// Package moderr defines the shared error vocabulary of the modeling core.
//
// Validation errors (domain membership, arity, redefinition, unknown
// elements) are raised at declaration or expression-construction time,
// before anything is sent to the engine. Engine errors only surface after a
// bridge round-trip and are split into recoverable and fatal categories:
// an infeasible model is a status, a missing engine binary is a fatal error
// that user code must not swallow.
package moderr

import (
	"errors"
	"fmt"
)

// DomainViolationError reports an element or index reference that is not a
// member of the declared domain at the given position.
type DomainViolationError struct {
	Symbol   string
	Position int
	Detail   string
}

func (e *DomainViolationError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("domain violation: %s", e.Detail)
	}
	return fmt.Sprintf("domain violation on %q at position %d: %s", e.Symbol, e.Position, e.Detail)
}

// SymbolRedefinitionError reports a declare call that reuses a name with an
// incompatible kind or domain.
type SymbolRedefinitionError struct {
	Name   string
	Detail string
}

func (e *SymbolRedefinitionError) Error() string {
	return fmt.Sprintf("symbol %q redefined: %s", e.Name, e.Detail)
}

// DimensionalityError reports an index expression whose arity does not
// match the symbol's declared domain.
type DimensionalityError struct {
	Symbol string
	Want   int
	Got    int
}

func (e *DimensionalityError) Error() string {
	return fmt.Sprintf("symbol %q expects %d index positions, got %d", e.Symbol, e.Want, e.Got)
}

// UndefinedElementError reports a literal label that is unknown to a
// domain-checked set.
type UndefinedElementError struct {
	Set   string
	Label string
}

func (e *UndefinedElementError) Error() string {
	return fmt.Sprintf("element %q is not a member of set %q", e.Label, e.Set)
}

// AmbiguousEquationError reports a relational expression whose operand
// order cannot be trusted, such as a raw numeric literal on the left of a
// relational operator while the container runs in strict mode.
type AmbiguousEquationError struct {
	Detail string
}

func (e *AmbiguousEquationError) Error() string {
	return fmt.Sprintf("ambiguous equation definition: %s", e.Detail)
}

// EngineExecutionError reports a failed engine round-trip. Fatal marks
// errors that indicate the engine itself could not run (missing binary,
// broken license, crashed process) as opposed to a rejected submission.
type EngineExecutionError struct {
	ReturnCode int
	Fatal      bool
	Detail     string
	Err        error
}

func (e *EngineExecutionError) Error() string {
	kind := "engine execution failed"
	if e.Fatal {
		kind = "engine unavailable"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (rc=%d): %s: %v", kind, e.ReturnCode, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s (rc=%d): %s", kind, e.ReturnCode, e.Detail)
}

func (e *EngineExecutionError) Unwrap() error { return e.Err }

// IsFatalEngineError reports whether err wraps a fatal EngineExecutionError.
// Fatal engine errors must propagate; generic recovery layers are expected
// to consult this before deciding to continue.
func IsFatalEngineError(err error) bool {
	var ee *EngineExecutionError
	return errors.As(err, &ee) && ee.Fatal
}
