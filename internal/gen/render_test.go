package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/testutil"
)

func TestLabel_Quoting(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		label    string
		expected string
	}{
		{name: "bare identifier", label: "seattle", expected: "seattle"},
		{name: "underscore", label: "new_york", expected: "new_york"},
		{name: "hyphen needs quotes", label: "new-york", expected: "'new-york'"},
		{name: "leading digit needs quotes", label: "1st", expected: "'1st'"},
		{name: "space needs quotes", label: "san diego", expected: "'san diego'"},
		{name: "embedded quote doubles", label: "it's", expected: "'it''s'"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Label(tc.label))
		})
	}
}

func TestNum_Sentinels(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		value    float64
		expected string
	}{
		{value: 1.5, expected: "1.5"},
		{value: 0, expected: "0"},
		{value: 153.675, expected: "153.675"},
		{value: algebra.Undef, expected: "UNDF"},
		{value: algebra.NA, expected: "NA"},
		{value: algebra.PosInf, expected: "INF"},
		{value: algebra.NegInf, expected: "-INF"},
		{value: algebra.Eps, expected: "EPS"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Num(tc.value))
	}
}

func TestExprString_RelationalContexts(t *testing.T) {
	t.Parallel()
	c := algebra.New()
	x, err := c.AddVariable("x", algebra.VarFree)
	require.NoError(t, err)

	r := &Renderer{}
	rel := x.At().Le(5)

	def, err := r.ExprString(rel, RelDefinition)
	require.NoError(t, err)
	assert.Equal(t, "x =l= 5", def)

	boolean, err := r.ExprString(rel, RelBoolean)
	require.NoError(t, err)
	assert.Equal(t, "(x <= 5)", boolean, "the same node reads as a truth value under a boolean target")
}

func TestExprString_TransportDefinitions(t *testing.T) {
	t.Parallel()
	ts := testutil.BuildTransport(t)
	r := &Renderer{}

	stmts, err := r.EquationDefinition(ts.Supply)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t,
		"supply(plants).. sum(markets, ship(plants,markets)) =l= capacity(plants);",
		stmts[0])

	stmts, err = r.EquationDefinition(ts.DemandEq)
	require.NoError(t, err)
	assert.Equal(t,
		"demand_eq(markets).. sum(plants, ship(plants,markets)) =g= demand(markets);",
		stmts[0])

	stmts, err = r.EquationDefinition(ts.CostDef)
	require.NoError(t, err)
	assert.Equal(t,
		"cost_def.. total_cost =e= sum((plants,markets), (cost(plants,markets) * ship(plants,markets)));",
		stmts[0])
}

func TestExprString_Deterministic(t *testing.T) {
	t.Parallel()
	ts := testutil.BuildTransport(t)
	r := &Renderer{}

	_, _, body, ok := ts.CostDef.Definition()
	require.True(t, ok)

	first, err := r.ExprString(body, RelDefinition)
	require.NoError(t, err)
	second, err := r.ExprString(body, RelDefinition)
	require.NoError(t, err)
	assert.Equal(t, first, second, "rendering twice must be byte-identical")
}

func TestExprString_FilteredAggregation(t *testing.T) {
	t.Parallel()
	c := algebra.New()
	i, err := c.AddSet("i", nil, "a", "b")
	require.NoError(t, err)
	p, err := c.AddParameter("p", i)
	require.NoError(t, err)
	x, err := c.AddVariable("x", algebra.VarPositive, i)
	require.NoError(t, err)

	e := algebra.Sum(i.Where(p.At(i).Ne(0)), x.At(i).Where(p.At(i).Ge(1)))
	r := &Renderer{}
	s, err := r.ExprString(e, RelBoolean)
	require.NoError(t, err)
	assert.Equal(t, "sum(i$((p(i) <> 0)), (x(i))$((p(i) >= 1)))", s)
}

func TestExprString_OrdCardAndOffsets(t *testing.T) {
	t.Parallel()
	c := algebra.New()
	tt, err := c.AddSet("t", nil, "t1", "t2", "t3")
	require.NoError(t, err)
	s, err := c.AddVariable("s", algebra.VarFree, tt)
	require.NoError(t, err)

	r := &Renderer{}
	e := s.At(tt).Sub(s.At(tt.Lag(1))).Add(algebra.Ord(tt)).Sub(algebra.Card(tt))
	text, err := r.ExprString(e, RelBoolean)
	require.NoError(t, err)
	assert.Equal(t, "(((s(t) - s(t-1)) + ord(t)) - card(t))", text)
}
