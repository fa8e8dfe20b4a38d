// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/optalg/internal/moderr"
)

func TestExpr_OperatorsBuildNodes(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a")
	require.NoError(t, err)
	p, err := c.AddParameter("p", i)
	require.NoError(t, err)
	x, err := c.AddVariable("x", VarPositive, i)
	require.NoError(t, err)

	e := p.At(i).Mul(x.At(i)).Add(2)
	n := e.Node()
	assert.Equal(t, NodeBinary, n.Kind)
	assert.Equal(t, OpAdd, n.Op)

	left := n.Left.Node()
	assert.Equal(t, OpMul, left.Op)

	right := n.Right.Node()
	assert.Equal(t, NodeLiteral, right.Kind)
	assert.Equal(t, 2.0, right.Lit)
}

func TestExpr_RelationPreservesOperandOrder(t *testing.T) {
	t.Parallel()
	c := New()

	x, err := c.AddVariable("x", VarFree)
	require.NoError(t, err)

	rel := Number(c, 3).Le(x.At())
	n := rel.Node()
	require.Equal(t, NodeRelation, n.Kind)
	assert.Equal(t, NodeLiteral, n.Left.Node().Kind, "the literal stays on the side it was written")
	assert.Equal(t, NodeRef, n.Right.Node().Kind)
}

func TestExpr_StrictModeRejectsRawLiteralLHS(t *testing.T) {
	t.Parallel()
	c := New(WithStrictRelations())

	x, err := c.AddVariable("x", VarFree)
	require.NoError(t, err)

	defer func() {
		r := recover()
		require.NotNil(t, r, "strict containers must reject a raw literal on the left")
		_, ok := r.(*moderr.AmbiguousEquationError)
		assert.True(t, ok, "panic value should be the typed ambiguity error, got %T", r)
	}()

	// Wrapping in Number makes the intent explicit and is accepted.
	assert.NotPanics(t, func() { Number(c, 3).Le(x.At()) })

	c.lift(3.0).Le(x.At())
}

func TestExpr_WhereComposesWithIndexFilter(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a", "b")
	require.NoError(t, err)
	p, err := c.AddParameter("p", i)
	require.NoError(t, err)
	q, err := c.AddParameter("q", i)
	require.NoError(t, err)
	x, err := c.AddVariable("x", VarPositive, i)
	require.NoError(t, err)

	sum := Sum(i.Where(p.At(i).Ne(0)), x.At(i).Where(q.At(i).Ne(0)))
	n := sum.Node()
	require.Equal(t, NodeAggregation, n.Kind)
	require.Len(t, n.Over, 1)
	assert.True(t, n.Over[0].Cond.Valid(), "index filter retained")
	assert.Equal(t, NodeCondition, n.Left.Node().Kind, "body filter retained separately")
}

func TestWhere_RejectsForeignCondition(t *testing.T) {
	t.Parallel()
	c := New()
	other := New()

	i, err := c.AddSet("i", nil, "a", "b")
	require.NoError(t, err)
	j, err := c.AddAlias("j", i)
	require.NoError(t, err)
	x, err := c.AddVariable("x", VarPositive, i)
	require.NoError(t, err)

	op, err := other.AddParameter("op")
	require.NoError(t, err)
	foreign := op.At().Ne(0)

	assert.Panics(t, func() { x.At(i).Where(foreign) })
	assert.Panics(t, func() { i.Where(foreign) })

	defer func() {
		_, ok := recover().(*moderr.DomainViolationError)
		require.True(t, ok, "foreign alias filter must trip a domain violation")
	}()
	j.Where(foreign)
}

func TestAggregate_RequiresAnIndex(t *testing.T) {
	t.Parallel()
	c := New()

	x, err := c.AddVariable("x", VarFree)
	require.NoError(t, err)

	assert.Panics(t, func() { Sum(Tuple(), x.At()) })
}

func TestOrdCard(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a", "b", "c")
	require.NoError(t, err)

	o := Ord(i).Node()
	assert.Equal(t, NodeOrd, o.Kind)
	require.Len(t, o.Over, 1)
	assert.Equal(t, "i", o.Over[0].Set.Name())

	k := Card(i).Node()
	assert.Equal(t, NodeCard, k.Kind)
}

func TestEquation_DefineValidation(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a")
	require.NoError(t, err)
	x, err := c.AddVariable("x", VarPositive, i)
	require.NoError(t, err)
	q, err := c.AddEquation("q", EqRegular, i)
	require.NoError(t, err)

	err = q.Define(x.At(i).Add(1), i)
	assert.Error(t, err, "a definition needs a relational root")

	require.NoError(t, q.Define(x.At(i).Le(5), i))
	assert.True(t, q.Defined())

	ci, filters, body, ok := q.Definition()
	require.True(t, ok)
	assert.Len(t, ci, 1)
	assert.Empty(t, filters)
	assert.Equal(t, NodeRelation, body.Node().Kind)
}

func TestEquation_DefineWithFilteredIndex(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a", "b")
	require.NoError(t, err)
	p, err := c.AddParameter("p", i)
	require.NoError(t, err)
	x, err := c.AddVariable("x", VarPositive, i)
	require.NoError(t, err)
	q, err := c.AddEquation("q", EqRegular, i)
	require.NoError(t, err)

	require.NoError(t, q.Define(x.At(i).Ge(p.At(i)), i.Where(p.At(i).Ne(0))))

	_, filters, _, ok := q.Definition()
	require.True(t, ok)
	require.Len(t, filters, 1)
}
