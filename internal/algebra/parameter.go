// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"github.com/vk/optalg/internal/moderr"
)

// Parameter is a named quantity mapping domain tuples to one numeric value
// each. The store is sparse: a tuple without a record reads as zero.
type Parameter struct {
	symbolBase
	records map[string]float64
}

func (p *Parameter) Kind() Kind { return KindParameter }

// SetRecords replaces the sparse store. Accepted representations:
//
//   - float64 / int for a scalar parameter
//   - map[string]float64 for a one-dimensional parameter
//   - [][]any rows of dim labels followed by one value column
//
// Every tuple is domain-checked; the symbol is marked dirty for the next
// bridge sync.
func (p *Parameter) SetRecords(data any) error {
	switch d := data.(type) {
	case float64, float32, int, int64:
		if p.Dim() != 0 {
			return &moderr.DimensionalityError{Symbol: p.name, Want: p.Dim() + 1, Got: 1}
		}
		v, _ := toFloat(d)
		p.c.mu.Lock()
		defer p.c.mu.Unlock()
		p.records = map[string]float64{"": normalizeValue(v)}
		p.c.markDirtyLocked(p.name)
		return nil
	case map[string]float64:
		rows := make([][]any, 0, len(d))
		for label, v := range d {
			rows = append(rows, []any{label, v})
		}
		return p.setRows(rows)
	case [][]any:
		return p.setRows(d)
	default:
		return &moderr.DomainViolationError{
			Symbol: p.name,
			Detail: "unsupported record representation",
		}
	}
}

func (p *Parameter) setRows(rows [][]any) error {
	tuples, values, err := rowsToTuples(p, rows, 1)
	if err != nil {
		return err
	}
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	store := make(map[string]float64, len(tuples))
	for i, labels := range tuples {
		if err := validateTuple(p, labels); err != nil {
			return err
		}
		store[tupleKey(labels)] = values[i][0]
	}
	p.records = store
	p.c.markDirtyLocked(p.name)
	return nil
}

// Value reads one record. Absent tuples read as zero, the sparse-absence
// invariant.
func (p *Parameter) Value(labels ...string) float64 {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	return p.records[tupleKey(labels)]
}

// Has reports whether the tuple has an explicit record.
func (p *Parameter) Has(labels ...string) bool {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	_, ok := p.records[tupleKey(labels)]
	return ok
}

// Records lists the explicit records in deterministic tuple order.
func (p *Parameter) Records() []ParameterRecord {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	out := make([]ParameterRecord, 0, len(p.records))
	for _, k := range sortedKeys(p.records) {
		out = append(out, ParameterRecord{Keys: splitKey(k), Value: p.records[k]})
	}
	return out
}

// mergeRecord upserts one record without replacing the store. The
// container lock must be held. Used by the bridge when reading results
// back.
func (p *Parameter) mergeRecord(labels []string, value float64) error {
	if err := validateTuple(p, labels); err != nil {
		return err
	}
	if p.records == nil {
		p.records = make(map[string]float64)
	}
	p.records[tupleKey(labels)] = normalizeValue(value)
	return nil
}

// Ref resolves an index expression against the declared domain and returns
// a reference expression scoped to it.
func (p *Parameter) Ref(indices ...any) (Expr, error) {
	ci, err := resolveIndex(p, indices)
	if err != nil {
		return Expr{}, err
	}
	id := p.c.arena.push(node{kind: NodeRef, sym: p, index: ci, a: invalidNode, b: invalidNode})
	return Expr{c: p.c, id: id}, nil
}

// At is Ref for fluent composition; index validation failures panic with
// the typed errors of moderr, matching the fail-fast contract: every
// structural mistake surfaces before an engine round-trip is paid for.
func (p *Parameter) At(indices ...any) Expr {
	e, err := p.Ref(indices...)
	if err != nil {
		panic(err)
	}
	return e
}

// Assign queues the assignment p[index] = rhs for the next bridge
// execution. The right-hand side may be any expression, including a
// relational one, which materializes as 0/1 truth values under parameter
// assignment.
func (p *Parameter) Assign(rhs Expr, indices ...any) error {
	ci, err := resolveIndex(p, indices)
	if err != nil {
		return err
	}
	p.c.enqueueAssignment(Assignment{Target: p, Index: ci, Value: rhs})
	return nil
}
