// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"github.com/vk/optalg/internal/moderr"
)

// SetLike is satisfied by Set and Alias so either can appear in a domain
// or as a free index. baseSet resolves to the set that actually owns the
// element list; an alias keeps its own name but shares elements and
// ordinals by reference.
type SetLike interface {
	Name() string
	// Elements, Ordinal and Card read the shared element list.
	Elements() []string
	Ordinal(label string) int
	Card() int

	baseSet() *Set
	// indexTerms lets a bare set act as an aggregation index.
	indexTerms() []aggIndexTerm
}

// Set is an ordered collection of unique string labels. Ordinal positions
// are 1-based and stable for the life of the set; appending elements never
// renumbers existing ones.
type Set struct {
	symbolBase
	universe bool

	elements []string
	ordinals map[string]int
}

func (s *Set) Kind() Kind    { return KindSet }
func (s *Set) baseSet() *Set { return s }

// IsUniverse reports whether this is the container's wildcard domain: a
// position declared over the universe accepts any label.
func (s *Set) IsUniverse() bool { return s.universe }

// Card returns the number of elements.
func (s *Set) Card() int {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return len(s.elements)
}

// Ordinal returns the 1-based position of label, or 0 when the label is
// not a member.
func (s *Set) Ordinal(label string) int {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.ordinals[label]
}

// Contains reports membership of label.
func (s *Set) Contains(label string) bool { return s.Ordinal(label) != 0 }

// Elements returns a copy of the element list in ordinal order.
func (s *Set) Elements() []string {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	out := make([]string, len(s.elements))
	copy(out, s.elements)
	return out
}

// AddElements appends labels that are not already members. Re-inserting a
// present label is a no-op. When the set is domain-checked, every new
// label must already be a member of each parent set.
func (s *Set) AddElements(labels ...string) error {
	if s.universe {
		return &moderr.DomainViolationError{Symbol: s.name, Detail: "the universe set cannot be populated explicitly"}
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	for _, label := range labels {
		if _, ok := s.ordinals[label]; ok {
			continue
		}
		for pos, parent := range s.domain {
			p := parent.baseSet()
			if p.universe {
				continue
			}
			if _, ok := p.ordinals[label]; !ok {
				return &moderr.DomainViolationError{
					Symbol:   s.name,
					Position: pos,
					Detail:   "element " + quoteLabel(label) + " is not a member of parent set " + quoteLabel(p.name),
				}
			}
		}
		s.elements = append(s.elements, label)
		s.ordinals[label] = len(s.elements)
	}
	s.c.markDirtyLocked(s.name)
	return nil
}

// membersLocked reports membership without taking the container lock.
func (s *Set) membersLocked(label string) bool {
	if s.universe {
		return true
	}
	_, ok := s.ordinals[label]
	return ok
}

// elementsLocked returns the live element slice. Callers must hold the
// container lock and must not mutate the result.
func (s *Set) elementsLocked() []string { return s.elements }

// Where restricts this set, used as an aggregation or definition index,
// to the elements for which cond holds. The condition composes with any
// filter attached to the aggregation body via logical AND.
func (s *Set) Where(cond Expr) FilteredIndex {
	return FilteredIndex{set: s, cond: s.c.lift(cond)}
}

// Lead references the element k positions after the current one when this
// set is used as a free index, rendering as "name+k".
func (s *Set) Lead(k int) IndexOffset { return IndexOffset{Set: s, Offset: k} }

// Lag references the element k positions before the current one.
func (s *Set) Lag(k int) IndexOffset { return IndexOffset{Set: s, Offset: -k} }

func (s *Set) indexTerms() []aggIndexTerm {
	return []aggIndexTerm{{set: s, cond: invalidNode}}
}

// IndexOffset is a lag/lead reference to a free index, usable wherever a
// bare set is a legal index argument. Order-dependent by construction: it
// leans on the stability of ordinal positions.
type IndexOffset struct {
	Set    SetLike
	Offset int
}

// FilteredIndex is a set (or alias) with an attached membership condition.
// It participates in aggregations and equation definition domains as the
// sparse mask described by the where-filter semantics.
type FilteredIndex struct {
	set  SetLike
	cond Expr
}

// Set returns the underlying index set.
func (f FilteredIndex) Set() SetLike { return f.set }

// Cond returns the attached condition.
func (f FilteredIndex) Cond() Expr { return f.cond }

func (f FilteredIndex) indexTerms() []aggIndexTerm {
	return []aggIndexTerm{{set: f.set, cond: f.cond.id}}
}
