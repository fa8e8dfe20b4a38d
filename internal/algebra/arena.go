// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import "sync"

// The expression tree is an arena: a flat slice of nodes addressed by
// integer index, with children referenced by index rather than pointer.
// Deeply chained expressions therefore never build deep pointer chains,
// and traversal (rendering, validation) runs on an explicit stack instead
// of recursion. Nodes are append-only and never mutated after creation.

// NodeKind tags what a node represents.
type NodeKind uint8

const (
	NodeLiteral     NodeKind = iota
	NodeRef                         // symbol reference scoped to a canonical index
	NodeAttr                        // variable/equation attribute reference
	NodeBinary                      // arithmetic or logical binary operator
	NodeUnary                       // negation, logical not
	NodeRelation                    // ==, <>, <=, >=; equation-defining, not boolean
	NodeAggregation                 // sum/prod/smin/smax over free indices
	NodeCondition                   // expr $ cond (where-filter on a value)
	NodeOrd                         // ordinal of the current element of a set
	NodeCard                        // cardinality of a set
)

// Op identifies the operator of binary, unary, relational and aggregation
// nodes.
type Op uint8

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
	OpNeg
	OpEq
	OpNe
	OpLe
	OpGe
	OpAnd
	OpOr
	OpNot
	OpSum
	OpProd
	OpSmin
	OpSmax
)

// invalidNode marks an absent child index.
const invalidNode int32 = -1

// aggIndexTerm is one free index of an aggregation: the set iterated and
// an optional condition node restricting it.
type aggIndexTerm struct {
	set  SetLike
	cond int32
}

type node struct {
	kind NodeKind
	op   Op
	a, b int32 // child node indices, invalidNode when absent

	lit     float64
	wrapped bool // literal built via Number; relevant to strict relations

	sym   Symbol
	index CanonicalIndex
	attr  Attr

	over []aggIndexTerm
}

// arena owns the node slice. Appends serialize behind a dedicated mutex so
// expression construction on one container is safe from several
// goroutines; reads of committed nodes are immutable and lock-free.
type arena struct {
	mu    sync.Mutex
	nodes []node
}

func (ar *arena) push(n node) int32 {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	ar.nodes = append(ar.nodes, n)
	return int32(len(ar.nodes) - 1)
}

func (ar *arena) at(i int32) node {
	// nodes are append-only; the index was handed out after the append
	// completed, so this read needs no lock on the slice contents, only
	// on the header.
	ar.mu.Lock()
	n := ar.nodes[i]
	ar.mu.Unlock()
	return n
}
