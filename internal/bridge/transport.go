// Package bridge synchronizes container state with the external
// optimization engine and runs solve round-trips.
//
// The core never talks to the engine process directly: a Session renders
// dirty symbols and pending statements into a batch, hands it to a
// Transport, and folds the returned records back into the container's
// stores. Two transports exist, a short-lived process invocation with
// file-based input/output and a persistent socket channel to a
// long-running engine, and the session is agnostic to which one is
// active.
package bridge

import (
	"context"

	"github.com/vk/optalg/internal/algebra"
)

// Batch is one engine submission: the rendered statements in execution
// order plus the names of symbols whose records the engine should report
// back.
type Batch struct {
	Statements []string
	Want       []string
}

// Record is one engine result record: a symbol, a domain tuple, and one
// value column for parameters or five attribute columns for variables and
// equations.
type Record struct {
	Symbol string
	Keys   []string
	Values []float64
}

// Result is the engine's response to a batch.
type Result struct {
	ReturnCode int
	Status     algebra.ModelStatus
	Objective  float64
	HasObj     bool
	Records    []Record
	Log        string
}

// Transport ships batches to an engine and returns structured results.
// Implementations own their connection lifecycle; Close releases it.
type Transport interface {
	Submit(ctx context.Context, batch Batch) (*Result, error)
	Close() error
}
