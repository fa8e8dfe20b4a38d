// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"fmt"

	"github.com/vk/optalg/internal/moderr"
)

// Expr is a handle to one immutable node in a container's arena. The zero
// value is invalid; expressions are obtained from symbol indexing, from
// literals lifted by operator methods, or from the package-level
// aggregation and Number constructors.
type Expr struct {
	c  *Container
	id int32
}

// Valid reports whether the handle references a node.
func (e Expr) Valid() bool { return e.c != nil && e.id >= 0 }

// ID returns the node's arena index, a stable identity within one
// container. Traversal memoization keys off it.
func (e Expr) ID() int32 { return e.id }

// Container returns the owning container.
func (e Expr) Container() *Container { return e.c }

// lift coerces an operand into an expression in container c. Numeric
// literals become unwrapped literal nodes; symbols become full-domain
// references.
func (c *Container) lift(v any) Expr {
	switch x := v.(type) {
	case Expr:
		if x.c != c {
			panic(&moderr.DomainViolationError{Detail: "operands belong to different containers"})
		}
		return x
	case float64:
		return c.literal(x, false)
	case int:
		return c.literal(float64(x), false)
	case *Parameter:
		return x.At(All)
	case *Variable:
		return x.At(All)
	default:
		panic(fmt.Sprintf("algebra: cannot use %T as an expression operand", v))
	}
}

func (c *Container) literal(v float64, wrapped bool) Expr {
	id := c.arena.push(node{kind: NodeLiteral, lit: normalizeValue(v), wrapped: wrapped, a: invalidNode, b: invalidNode})
	return Expr{c: c, id: id}
}

// Number wraps a literal so that its position in a relational expression
// is trusted. Strict containers reject relations whose left operand is an
// unwrapped literal, because operand order carries meaning for
// equilibrium-class models and a raw literal cannot prove which side the
// user wrote it on.
func Number(c *Container, v float64) Expr {
	return c.literal(v, true)
}

func (e Expr) binary(op Op, rhs any) Expr {
	r := e.c.lift(rhs)
	id := e.c.arena.push(node{kind: NodeBinary, op: op, a: e.id, b: r.id})
	return Expr{c: e.c, id: id}
}

// Add returns e + v.
func (e Expr) Add(v any) Expr { return e.binary(OpAdd, v) }

// Sub returns e - v.
func (e Expr) Sub(v any) Expr { return e.binary(OpSub, v) }

// Mul returns e * v.
func (e Expr) Mul(v any) Expr { return e.binary(OpMul, v) }

// Div returns e / v.
func (e Expr) Div(v any) Expr { return e.binary(OpDiv, v) }

// Pow returns e ** v.
func (e Expr) Pow(v any) Expr { return e.binary(OpPow, v) }

// Neg returns -e.
func (e Expr) Neg() Expr {
	id := e.c.arena.push(node{kind: NodeUnary, op: OpNeg, a: e.id, b: invalidNode})
	return Expr{c: e.c, id: id}
}

// And returns the logical conjunction of e and v.
func (e Expr) And(v any) Expr { return e.binary(OpAnd, v) }

// Or returns the logical disjunction of e and v.
func (e Expr) Or(v any) Expr { return e.binary(OpOr, v) }

// Not returns the logical negation of e.
func (e Expr) Not() Expr {
	id := e.c.arena.push(node{kind: NodeUnary, op: OpNot, a: e.id, b: invalidNode})
	return Expr{c: e.c, id: id}
}

func (e Expr) relation(op Op, rhs any) Expr {
	r := e.c.lift(rhs)
	if e.c.strict {
		if n := e.c.arena.at(e.id); n.kind == NodeLiteral && !n.wrapped {
			panic(&moderr.AmbiguousEquationError{
				Detail: "left operand of a relation is a raw literal; wrap it in Number so the operand order is explicit",
			})
		}
	}
	id := e.c.arena.push(node{kind: NodeRelation, op: op, a: e.id, b: r.id})
	return Expr{c: e.c, id: id}
}

// Eq builds the relational node e =e= v. It defines an equation; it is
// not a value comparison.
func (e Expr) Eq(v any) Expr { return e.relation(OpEq, v) }

// Ne builds the relational node e <> v.
func (e Expr) Ne(v any) Expr { return e.relation(OpNe, v) }

// Le builds the relational node e =l= v.
func (e Expr) Le(v any) Expr { return e.relation(OpLe, v) }

// Ge builds the relational node e =g= v.
func (e Expr) Ge(v any) Expr { return e.relation(OpGe, v) }

// Where attaches a side condition: the expression contributes only where
// cond holds. Rendered as the engine's dollar suffix on the value side; a
// filter attached here and one attached to an enclosing aggregation index
// compose via logical AND.
func (e Expr) Where(cond Expr) Expr {
	cond = e.c.lift(cond)
	id := e.c.arena.push(node{kind: NodeCondition, a: e.id, b: cond.id})
	return Expr{c: e.c, id: id}
}

// IndexSpec enumerates the free indices an aggregation ranges over. Set,
// Alias, FilteredIndex and Tuple all qualify.
type IndexSpec interface {
	indexTerms() []aggIndexTerm
}

// Tuple groups several index terms into one specification, e.g.
// Sum(Tuple(i, j), body).
func Tuple(specs ...IndexSpec) IndexSpec {
	var terms []aggIndexTerm
	for _, s := range specs {
		terms = append(terms, s.indexTerms()...)
	}
	return tupleSpec(terms)
}

type tupleSpec []aggIndexTerm

func (t tupleSpec) indexTerms() []aggIndexTerm { return t }

func aggregate(op Op, over IndexSpec, body Expr) Expr {
	terms := over.indexTerms()
	if len(terms) == 0 {
		panic(&moderr.DimensionalityError{Symbol: "aggregation", Want: 1, Got: 0})
	}
	c := body.c
	if c == nil {
		panic("algebra: aggregation body is not a valid expression")
	}
	cp := make([]aggIndexTerm, len(terms))
	copy(cp, terms)
	id := c.arena.push(node{kind: NodeAggregation, op: op, a: body.id, b: invalidNode, over: cp})
	return Expr{c: c, id: id}
}

// Sum aggregates body over the given free indices. Iteration is deferred
// to the engine; the host never loops over elements here.
func Sum(over IndexSpec, body Expr) Expr { return aggregate(OpSum, over, body) }

// Product aggregates body multiplicatively over the given free indices.
func Product(over IndexSpec, body Expr) Expr { return aggregate(OpProd, over, body) }

// Smin takes the minimum of body over the given free indices.
func Smin(over IndexSpec, body Expr) Expr { return aggregate(OpSmin, over, body) }

// Smax takes the maximum of body over the given free indices.
func Smax(over IndexSpec, body Expr) Expr { return aggregate(OpSmax, over, body) }

// Ord references the 1-based ordinal of the current element of s within
// an indexed context.
func Ord(s SetLike) Expr {
	c := s.baseSet().c
	id := c.arena.push(node{kind: NodeOrd, a: invalidNode, b: invalidNode, over: []aggIndexTerm{{set: s, cond: invalidNode}}})
	return Expr{c: c, id: id}
}

// Card references the cardinality of s.
func Card(s SetLike) Expr {
	c := s.baseSet().c
	id := c.arena.push(node{kind: NodeCard, a: invalidNode, b: invalidNode, over: []aggIndexTerm{{set: s, cond: invalidNode}}})
	return Expr{c: c, id: id}
}

// AggIndex is the exported view of one aggregation index term.
type AggIndex struct {
	Set  SetLike
	Cond Expr // invalid when the index carries no filter
}

// NodeView is the read-only view of an arena node the statement generator
// traverses. Child expressions are handles back into the same arena.
type NodeView struct {
	Kind NodeKind
	Op   Op

	Left  Expr
	Right Expr

	Lit     float64
	Wrapped bool

	Sym   Symbol
	Index CanonicalIndex
	Attr  Attr

	Over []AggIndex
}

// Node materializes the view of the node e references.
func (e Expr) Node() NodeView {
	n := e.c.arena.at(e.id)
	v := NodeView{
		Kind:    n.kind,
		Op:      n.op,
		Lit:     n.lit,
		Wrapped: n.wrapped,
		Sym:     n.sym,
		Index:   n.index,
		Attr:    n.attr,
	}
	if n.a != invalidNode {
		v.Left = Expr{c: e.c, id: n.a}
	}
	if n.b != invalidNode {
		v.Right = Expr{c: e.c, id: n.b}
	}
	for _, t := range n.over {
		ai := AggIndex{Set: t.set}
		if t.cond != invalidNode {
			ai.Cond = Expr{c: e.c, id: t.cond}
		}
		v.Over = append(v.Over, ai)
	}
	return v
}
