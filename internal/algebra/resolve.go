// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"github.com/vk/optalg/internal/moderr"
)

// SlotKind distinguishes iterated from pinned index positions. The
// statement generator needs the tag to decide whether a definition expands
// to a single record or a whole indexed block.
type SlotKind uint8

const (
	// SlotFree leaves the position bound to its domain set: the engine
	// iterates it.
	SlotFree SlotKind = iota
	// SlotFixed pins the position to one literal element label.
	SlotFixed
)

// IndexSlot is the canonical form of one resolved index position.
type IndexSlot struct {
	Kind SlotKind
	// Set is the index set for free slots: either the declared domain set
	// or an alias of it, exactly as the caller referenced it.
	Set SetLike
	// Label is the pinned element for fixed slots.
	Label string
	// Offset carries a lag/lead displacement on a free slot.
	Offset int
}

// CanonicalIndex is the resolved index of a symbol reference, one slot per
// declared domain position, in declaration order.
type CanonicalIndex []IndexSlot

// ellipsis is the type of the All marker.
type ellipsis struct{}

// All stands for "the full declared domain, in declared order". Indexing
// a symbol with All alone, or with All in place of a trailing run of
// positions, leaves those positions free.
var All ellipsis

// resolveIndex validates args against sym's declared domain and produces
// the canonical index. Legal argument forms per position: the domain set
// itself or an alias sharing its base (free), an IndexOffset on such a set
// (free with lag/lead), a literal label (fixed, membership-checked unless
// the position is the universe), or All expanding to the remaining
// declared positions.
func resolveIndex(sym Symbol, args []any) (CanonicalIndex, error) {
	domain := sym.Domain()

	expanded := make([]any, 0, len(domain))
	for _, a := range args {
		if _, ok := a.(ellipsis); ok {
			// All fills up to the declared arity with the declared sets,
			// consuming the positions the explicit args don't cover.
			missing := len(domain) - (len(args) - 1)
			for k := 0; k < missing; k++ {
				expanded = append(expanded, domain[len(expanded)])
			}
			continue
		}
		expanded = append(expanded, a)
	}

	if len(expanded) != len(domain) {
		return nil, &moderr.DimensionalityError{Symbol: sym.Name(), Want: len(domain), Got: len(expanded)}
	}

	ci := make(CanonicalIndex, len(domain))
	for pos, arg := range expanded {
		declared := domain[pos].baseSet()
		switch x := arg.(type) {
		case SetLike:
			if err := checkIndexSet(sym, pos, declared, x); err != nil {
				return nil, err
			}
			ci[pos] = IndexSlot{Kind: SlotFree, Set: x}
		case IndexOffset:
			if err := checkIndexSet(sym, pos, declared, x.Set); err != nil {
				return nil, err
			}
			ci[pos] = IndexSlot{Kind: SlotFree, Set: x.Set, Offset: x.Offset}
		case string:
			if !declared.universe && !declared.Contains(x) {
				return nil, &moderr.UndefinedElementError{Set: declared.Name(), Label: x}
			}
			ci[pos] = IndexSlot{Kind: SlotFixed, Label: x}
		default:
			return nil, &moderr.DomainViolationError{
				Symbol:   sym.Name(),
				Position: pos,
				Detail:   "index argument must be a set, an alias, a lag/lead reference, a literal label, or All",
			}
		}
	}
	return ci, nil
}

// checkIndexSet verifies a free index reference against the declared
// domain position. Referencing a different set, including the classic
// swapped-order mistake of writing eq(j,i) against a domain of (i,j),
// fails unless both names alias the same underlying set or the reference
// ranges over a subset of the declared domain.
func checkIndexSet(sym Symbol, pos int, declared *Set, given SetLike) error {
	if declared.universe {
		return nil
	}
	g := given.baseSet()
	if g == declared {
		return nil
	}
	// A domain-checked subset of the declared set is a legal sparse view.
	for cur := g; cur != nil; {
		var next *Set
		for _, parent := range cur.domain {
			p := parent.baseSet()
			if p == declared {
				return nil
			}
			if !p.universe {
				next = p
			}
		}
		cur = next
	}
	return &moderr.DomainViolationError{
		Symbol:   sym.Name(),
		Position: pos,
		Detail: "index " + quoteLabel(given.Name()) + " does not range over declared domain set " +
			quoteLabel(declared.Name()) + "; declare an alias if two roles share one set",
	}
}

// FreeSets returns the index sets of the free slots, in position order.
func (ci CanonicalIndex) FreeSets() []SetLike {
	var out []SetLike
	for _, s := range ci {
		if s.Kind == SlotFree {
			out = append(out, s.Set)
		}
	}
	return out
}

// Pinned reports whether every slot is fixed, i.e. the reference denotes
// exactly one record.
func (ci CanonicalIndex) Pinned() bool {
	for _, s := range ci {
		if s.Kind == SlotFree {
			return false
		}
	}
	return true
}
