// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"github.com/vk/optalg/internal/moderr"
)

// EqType tags an equation with its class, which fixes the default bound
// semantics the engine applies.
type EqType uint8

const (
	// EqRegular takes its relational operator from the definition.
	EqRegular EqType = iota
	// EqNonbinding is recorded but never constrains the solution.
	EqNonbinding
	// EqExternal is evaluated by an external function library.
	EqExternal
	// EqBoolean holds a logic constraint.
	EqBoolean
)

// String returns the engine keyword for the equation type.
func (t EqType) String() string {
	switch t {
	case EqNonbinding:
		return "nonbinding"
	case EqExternal:
		return "external"
	case EqBoolean:
		return "boolean"
	default:
		return "regular"
	}
}

// Equation is a named constraint. Like a variable it carries a sparse
// store of 5-field attribute records, filled in by the engine after a
// solve. Its definition is a relational expression resolved against the
// declared domain.
type Equation struct {
	symbolBase
	etype   EqType
	records map[string]Attributes

	// definition state; zero until Define is called.
	defined    bool
	defIndex   CanonicalIndex
	defFilters []Expr
	defBody    Expr
}

func (q *Equation) Kind() Kind { return KindEquation }

// Type returns the equation's type tag.
func (q *Equation) Type() EqType { return q.etype }

// Define installs the equation's relational definition. indices follow the
// same rules as symbol references but every position must stay free; a
// definition ranges over its whole (optionally filtered) domain. Passing a
// FilteredIndex restricts the instances the engine generates.
//
// rel must be a relational expression (Eq/Ne/Le/Ge). Defining an equation
// twice replaces the previous definition and re-marks the symbol dirty.
func (q *Equation) Define(rel Expr, indices ...any) error {
	if !rel.Valid() {
		return &moderr.AmbiguousEquationError{Detail: "equation " + q.name + " defined with an invalid expression"}
	}
	if rel.c != q.c {
		return &moderr.DomainViolationError{Symbol: q.name, Detail: "definition expression belongs to a different container"}
	}
	if n := q.c.arena.at(rel.id); n.kind != NodeRelation {
		return &moderr.AmbiguousEquationError{
			Detail: "equation " + q.name + " must be defined by a relational expression (Eq, Ne, Le or Ge)",
		}
	}

	// Split off per-position filters before canonical resolution.
	raw := make([]any, 0, len(indices))
	filters := make([]Expr, 0)
	for _, idx := range indices {
		if f, ok := idx.(FilteredIndex); ok {
			raw = append(raw, f.set)
			filters = append(filters, f.cond)
			continue
		}
		raw = append(raw, idx)
	}
	if len(raw) == 0 && q.Dim() > 0 {
		raw = append(raw, All)
	}
	ci, err := resolveIndex(q, raw)
	if err != nil {
		return err
	}
	for pos, slot := range ci {
		if slot.Kind != SlotFree {
			return &moderr.DomainViolationError{
				Symbol:   q.name,
				Position: pos,
				Detail:   "equation definitions cannot pin index positions to literals",
			}
		}
		if slot.Offset != 0 {
			return &moderr.DomainViolationError{
				Symbol:   q.name,
				Position: pos,
				Detail:   "equation definitions cannot carry lag/lead displacements",
			}
		}
	}

	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	q.defined = true
	q.defIndex = ci
	q.defFilters = filters
	q.defBody = rel
	q.c.markDirtyLocked(q.name)
	return nil
}

// Defined reports whether the equation carries a definition.
func (q *Equation) Defined() bool {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	return q.defined
}

// Definition returns the definition index, its filters and the relational
// body. The boolean is false when Define has not run.
func (q *Equation) Definition() (CanonicalIndex, []Expr, Expr, bool) {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	return q.defIndex, q.defFilters, q.defBody, q.defined
}

// SetRecords replaces the sparse attribute store, rows of dim labels plus
// level, marginal, lower, upper, scale.
func (q *Equation) SetRecords(rows [][]any) error {
	tuples, values, err := rowsToTuples(q, rows, 5)
	if err != nil {
		return err
	}
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	store := make(map[string]Attributes, len(tuples))
	for i, labels := range tuples {
		if err := validateTuple(q, labels); err != nil {
			return err
		}
		w := values[i]
		store[tupleKey(labels)] = Attributes{Level: w[0], Marginal: w[1], Lower: w[2], Upper: w[3], Scale: w[4]}
	}
	q.records = store
	q.c.markDirtyLocked(q.name)
	return nil
}

// Record reads one tuple's attributes; absent tuples read as the zero
// record with scale 1.
func (q *Equation) Record(labels ...string) Attributes {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	if a, ok := q.records[tupleKey(labels)]; ok {
		return a
	}
	return Attributes{Scale: 1}
}

// Records lists explicit records in deterministic tuple order.
func (q *Equation) Records() []AttributeRecord {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	out := make([]AttributeRecord, 0, len(q.records))
	for _, k := range sortedKeys(q.records) {
		out = append(out, AttributeRecord{Keys: splitKey(k), Attributes: q.records[k]})
	}
	return out
}

// mergeRecord upserts one record; the container lock must be held.
func (q *Equation) mergeRecord(labels []string, a Attributes) error {
	if err := validateTuple(q, labels); err != nil {
		return err
	}
	if q.records == nil {
		q.records = make(map[string]Attributes)
	}
	q.records[tupleKey(labels)] = a
	return nil
}

func (q *Equation) attr(a Attr, indices []any) Expr {
	ci, err := resolveIndex(q, indices)
	if err != nil {
		panic(err)
	}
	id := q.c.arena.push(node{kind: NodeAttr, sym: q, index: ci, attr: a, a: invalidNode, b: invalidNode})
	return Expr{c: q.c, id: id}
}

// L references the equation's level attribute.
func (q *Equation) L(indices ...any) Expr { return q.attr(AttrLevel, indices) }

// M references the equation's marginal attribute.
func (q *Equation) M(indices ...any) Expr { return q.attr(AttrMarginal, indices) }
