// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"github.com/vk/optalg/internal/moderr"
)

// VarType tags a variable with its admissible range and the default bounds
// the engine applies when no explicit bound record exists.
type VarType uint8

const (
	VarFree VarType = iota
	VarPositive
	VarNegative
	VarBinary
	VarInteger
	VarSOS1
	VarSOS2
	VarSemiCont
	VarSemiInt
)

// String returns the engine keyword for the variable type.
func (t VarType) String() string {
	switch t {
	case VarFree:
		return "free"
	case VarPositive:
		return "positive"
	case VarNegative:
		return "negative"
	case VarBinary:
		return "binary"
	case VarInteger:
		return "integer"
	case VarSOS1:
		return "sos1"
	case VarSOS2:
		return "sos2"
	case VarSemiCont:
		return "semicont"
	case VarSemiInt:
		return "semiint"
	}
	return "free"
}

// DefaultBounds returns the type's implicit lower and upper bounds.
func (t VarType) DefaultBounds() (lo, up float64) {
	switch t {
	case VarPositive, VarSOS1, VarSOS2:
		return 0, PosInf
	case VarNegative:
		return NegInf, 0
	case VarBinary:
		return 0, 1
	case VarInteger, VarSemiInt:
		return 0, PosInf
	case VarSemiCont:
		return 1, PosInf
	default:
		return NegInf, PosInf
	}
}

// Variable is a named decision quantity. Each stored tuple maps to the
// fixed 5-field attribute record; absent tuples carry the type's default
// bounds, level 0, marginal 0 and scale 1.
type Variable struct {
	symbolBase
	vtype   VarType
	records map[string]Attributes
}

func (v *Variable) Kind() Kind { return KindVariable }

// Type returns the variable's type tag.
func (v *Variable) Type() VarType { return v.vtype }

// defaultAttributes is the implicit record for absent tuples.
func (v *Variable) defaultAttributes() Attributes {
	lo, up := v.vtype.DefaultBounds()
	return Attributes{Lower: lo, Upper: up, Scale: 1}
}

// SetRecords replaces the sparse store from [][]any rows of dim labels
// followed by the five attribute columns level, marginal, lower, upper,
// scale.
func (v *Variable) SetRecords(rows [][]any) error {
	tuples, values, err := rowsToTuples(v, rows, 5)
	if err != nil {
		return err
	}
	v.c.mu.Lock()
	defer v.c.mu.Unlock()
	store := make(map[string]Attributes, len(tuples))
	for i, labels := range tuples {
		if err := validateTuple(v, labels); err != nil {
			return err
		}
		w := values[i]
		store[tupleKey(labels)] = Attributes{Level: w[0], Marginal: w[1], Lower: w[2], Upper: w[3], Scale: w[4]}
	}
	v.records = store
	v.c.markDirtyLocked(v.name)
	return nil
}

// Record reads one tuple's attributes, falling back to the type defaults
// when the tuple has no explicit record.
func (v *Variable) Record(labels ...string) Attributes {
	v.c.mu.Lock()
	defer v.c.mu.Unlock()
	if a, ok := v.records[tupleKey(labels)]; ok {
		return a
	}
	return v.defaultAttributes()
}

// Records lists explicit records in deterministic tuple order.
func (v *Variable) Records() []AttributeRecord {
	v.c.mu.Lock()
	defer v.c.mu.Unlock()
	out := make([]AttributeRecord, 0, len(v.records))
	for _, k := range sortedKeys(v.records) {
		out = append(out, AttributeRecord{Keys: splitKey(k), Attributes: v.records[k]})
	}
	return out
}

// mergeRecord upserts one record; the container lock must be held.
func (v *Variable) mergeRecord(labels []string, a Attributes) error {
	if err := validateTuple(v, labels); err != nil {
		return err
	}
	if v.records == nil {
		v.records = make(map[string]Attributes)
	}
	v.records[tupleKey(labels)] = a
	return nil
}

// Ref resolves an index expression and returns the variable reference
// scoped to it. In an algebraic context the reference denotes the variable
// itself, not its level.
func (v *Variable) Ref(indices ...any) (Expr, error) {
	ci, err := resolveIndex(v, indices)
	if err != nil {
		return Expr{}, err
	}
	id := v.c.arena.push(node{kind: NodeRef, sym: v, index: ci, a: invalidNode, b: invalidNode})
	return Expr{c: v.c, id: id}, nil
}

// At is Ref with fail-fast panics for fluent composition.
func (v *Variable) At(indices ...any) Expr {
	e, err := v.Ref(indices...)
	if err != nil {
		panic(err)
	}
	return e
}

func (v *Variable) attr(a Attr, indices []any) Expr {
	ci, err := resolveIndex(v, indices)
	if err != nil {
		panic(err)
	}
	id := v.c.arena.push(node{kind: NodeAttr, sym: v, index: ci, attr: a, a: invalidNode, b: invalidNode})
	return Expr{c: v.c, id: id}
}

// L references the level attribute, rendered with the ".l" suffix.
func (v *Variable) L(indices ...any) Expr { return v.attr(AttrLevel, indices) }

// M references the marginal attribute.
func (v *Variable) M(indices ...any) Expr { return v.attr(AttrMarginal, indices) }

// Lo references the lower bound attribute.
func (v *Variable) Lo(indices ...any) Expr { return v.attr(AttrLower, indices) }

// Up references the upper bound attribute.
func (v *Variable) Up(indices ...any) Expr { return v.attr(AttrUpper, indices) }

// Scale references the scale attribute.
func (v *Variable) Scale(indices ...any) Expr { return v.attr(AttrScale, indices) }

// AssignAttr queues the assignment of rhs to one attribute over the given
// index, e.g. fixing bounds before a solve.
func (v *Variable) AssignAttr(a Attr, rhs Expr, indices ...any) error {
	ci, err := resolveIndex(v, indices)
	if err != nil {
		return err
	}
	if a == AttrMarginal {
		return &moderr.DomainViolationError{Symbol: v.name, Detail: "the marginal attribute is engine output and cannot be assigned"}
	}
	v.c.enqueueAssignment(Assignment{Target: v, Index: ci, Attr: a, HasAttr: true, Value: rhs})
	return nil
}
