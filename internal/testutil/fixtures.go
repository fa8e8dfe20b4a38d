package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/optalg/internal/algebra"
)

// Transport bundles the symbols of the canonical two-plant three-market
// shipping scenario. Its known optimum is 153.675.
type Transport struct {
	Container *algebra.Container
	Plants    *algebra.Set
	Markets   *algebra.Set
	Capacity  *algebra.Parameter
	Demand    *algebra.Parameter
	Cost      *algebra.Parameter
	Ship      *algebra.Variable
	TotalCost *algebra.Variable
	Supply    *algebra.Equation
	DemandEq  *algebra.Equation
	CostDef   *algebra.Equation
	Model     *algebra.Model
}

// BuildTransport declares the full scenario on a fresh container.
func BuildTransport(t *testing.T, opts ...algebra.Option) *Transport {
	t.Helper()
	c := algebra.New(opts...)

	i, err := c.AddSet("plants", nil, "seattle", "san-diego")
	require.NoError(t, err)
	j, err := c.AddSet("markets", nil, "new-york", "chicago", "topeka")
	require.NoError(t, err)

	a, err := c.AddParameter("capacity", i)
	require.NoError(t, err)
	require.NoError(t, a.SetRecords(map[string]float64{
		"seattle":   350,
		"san-diego": 600,
	}))

	b, err := c.AddParameter("demand", j)
	require.NoError(t, err)
	require.NoError(t, b.SetRecords(map[string]float64{
		"new-york": 325,
		"chicago":  300,
		"topeka":   275,
	}))

	// Freight cost per unit: 90 * distance / 1000.
	cost, err := c.AddParameter("cost", i, j)
	require.NoError(t, err)
	rows := [][]any{
		{"seattle", "new-york", 90 * 2.5 / 1000},
		{"seattle", "chicago", 90 * 1.7 / 1000},
		{"seattle", "topeka", 90 * 1.8 / 1000},
		{"san-diego", "new-york", 90 * 2.5 / 1000},
		{"san-diego", "chicago", 90 * 1.8 / 1000},
		{"san-diego", "topeka", 90 * 1.4 / 1000},
	}
	require.NoError(t, cost.SetRecords(rows))

	x, err := c.AddVariable("ship", algebra.VarPositive, i, j)
	require.NoError(t, err)
	z, err := c.AddVariable("total_cost", algebra.VarFree)
	require.NoError(t, err)

	supply, err := c.AddEquation("supply", algebra.EqRegular, i)
	require.NoError(t, err)
	require.NoError(t, supply.Define(
		algebra.Sum(j, x.At(i, j)).Le(a.At(i)), i))

	demandEq, err := c.AddEquation("demand_eq", algebra.EqRegular, j)
	require.NoError(t, err)
	require.NoError(t, demandEq.Define(
		algebra.Sum(i, x.At(i, j)).Ge(b.At(j)), j))

	costDef, err := c.AddEquation("cost_def", algebra.EqRegular)
	require.NoError(t, err)
	require.NoError(t, costDef.Define(
		z.At().Eq(algebra.Sum(algebra.Tuple(i, j), cost.At(i, j).Mul(x.At(i, j))))))

	m, err := c.AddModel("transport", algebra.ProblemLP, algebra.SenseMin, z,
		supply, demandEq, costDef)
	require.NoError(t, err)

	return &Transport{
		Container: c,
		Plants:    i,
		Markets:   j,
		Capacity:  a,
		Demand:    b,
		Cost:      cost,
		Ship:      x,
		TotalCost: z,
		Supply:    supply,
		DemandEq:  demandEq,
		CostDef:   costDef,
		Model:     m,
	}
}
