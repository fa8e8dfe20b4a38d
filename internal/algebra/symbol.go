// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import "strings"

// Kind is the closed set of symbolic entity kinds a container can own.
type Kind uint8

const (
	KindSet Kind = iota
	KindAlias
	KindParameter
	KindVariable
	KindEquation
)

// String returns the declaration keyword for the kind.
func (k Kind) String() string {
	switch k {
	case KindSet:
		return "Set"
	case KindAlias:
		return "Alias"
	case KindParameter:
		return "Parameter"
	case KindVariable:
		return "Variable"
	case KindEquation:
		return "Equation"
	}
	return "unknown"
}

// Symbol is the common surface of every named entity owned by a container.
type Symbol interface {
	Name() string
	Kind() Kind
	// Domain returns the declared index shape, one SetLike per position.
	Domain() []SetLike
	// Dim is len(Domain).
	Dim() int
	// Container returns the owning registry.
	Container() *Container

	base() *symbolBase
}

// symbolBase carries the fields shared by every entity kind. Access to
// mutable state routes through the container's mutex.
type symbolBase struct {
	c      *Container
	name   string
	domain []SetLike
}

func (s *symbolBase) Name() string          { return s.name }
func (s *symbolBase) Domain() []SetLike     { return s.domain }
func (s *symbolBase) Dim() int              { return len(s.domain) }
func (s *symbolBase) Container() *Container { return s.c }
func (s *symbolBase) base() *symbolBase     { return s }

// sameDomain reports whether two declared domains are position-for-position
// the same underlying sets. Aliases compare by their base set: re-declaring
// over an alias of the original domain is not a redefinition.
func sameDomain(a, b []SetLike) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].baseSet() != b[i].baseSet() {
			return false
		}
	}
	return true
}

func domainNames(d []SetLike) string {
	if len(d) == 0 {
		return "scalar"
	}
	parts := make([]string, len(d))
	for i, s := range d {
		parts[i] = s.Name()
	}
	return "(" + strings.Join(parts, ",") + ")"
}
