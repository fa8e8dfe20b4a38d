// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

// Alias is a secondary name bound to an existing set. It shares the
// target's element list and ordinals by reference, which is what lets two
// independent index roles range over one underlying domain (an origin and
// a destination drawn from the same location set, say).
type Alias struct {
	symbolBase
	of *Set
}

func (a *Alias) Kind() Kind    { return KindAlias }
func (a *Alias) baseSet() *Set { return a.of }

// Target returns the aliased set.
func (a *Alias) Target() *Set { return a.of }

// Card reports the cardinality of the aliased set.
func (a *Alias) Card() int { return a.of.Card() }

// Ordinal reports the 1-based position of label in the aliased set.
func (a *Alias) Ordinal(label string) int { return a.of.Ordinal(label) }

// Contains reports membership in the aliased set.
func (a *Alias) Contains(label string) bool { return a.of.Contains(label) }

// Elements returns the aliased set's elements in ordinal order.
func (a *Alias) Elements() []string { return a.of.Elements() }

// Where restricts this alias, used as an index, to elements satisfying
// cond.
func (a *Alias) Where(cond Expr) FilteredIndex {
	return FilteredIndex{set: a, cond: a.c.lift(cond)}
}

// Lead references the element k positions ahead of the current one.
func (a *Alias) Lead(k int) IndexOffset { return IndexOffset{Set: a, Offset: k} }

// Lag references the element k positions behind the current one.
func (a *Alias) Lag(k int) IndexOffset { return IndexOffset{Set: a, Offset: -k} }

func (a *Alias) indexTerms() []aggIndexTerm {
	return []aggIndexTerm{{set: a, cond: invalidNode}}
}
