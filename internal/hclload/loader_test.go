package hclload_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/testutil"
)

func TestLoad_FullScenario(t *testing.T) {
	t.Parallel()

	res := testutil.LoadHCL(t, map[string]string{
		"transport.hcl": `
set "plants" {
  elements = ["seattle", "san-diego"]
}

set "markets" {
  elements = ["new-york", "chicago", "topeka"]
}

alias "plants2" {
  of = "plants"
}

scalar "freight" {
  value = 90
}

parameter "capacity" {
  domain = ["plants"]
  records = {
    "seattle"   = 350
    "san-diego" = 600
  }
}

parameter "cost" {
  domain = ["plants", "markets"]
  records = {
    "seattle.new-york" = 0.225
    "seattle.chicago"  = 0.153
  }
}

variable "ship" {
  type   = "positive"
  domain = ["plants", "markets"]
  upper = {
    "seattle.new-york" = 400
  }
}

variable "total_cost" {}
`,
	})
	require.NoError(t, res.Err)
	c := res.Container

	sym, ok := c.Symbol("plants")
	require.True(t, ok)
	plants, ok := sym.(*algebra.Set)
	require.True(t, ok)
	assert.Equal(t, []string{"seattle", "san-diego"}, plants.Elements())

	sym, ok = c.Symbol("plants2")
	require.True(t, ok)
	alias, ok := sym.(*algebra.Alias)
	require.True(t, ok)
	assert.Equal(t, "plants", alias.Target().Name())
	assert.Equal(t, 2, alias.Card())

	sym, ok = c.Symbol("freight")
	require.True(t, ok)
	freight := sym.(*algebra.Parameter)
	assert.Equal(t, 0, freight.Dim())
	assert.Equal(t, 90.0, freight.Value())

	sym, ok = c.Symbol("capacity")
	require.True(t, ok)
	capacity := sym.(*algebra.Parameter)
	assert.Equal(t, 350.0, capacity.Value("seattle"))
	assert.Equal(t, 600.0, capacity.Value("san-diego"))

	sym, ok = c.Symbol("cost")
	require.True(t, ok)
	cost := sym.(*algebra.Parameter)
	assert.Equal(t, 0.225, cost.Value("seattle", "new-york"))
	assert.False(t, cost.Has("seattle", "topeka"), "unlisted tuples stay absent")

	sym, ok = c.Symbol("ship")
	require.True(t, ok)
	ship := sym.(*algebra.Variable)
	assert.Equal(t, algebra.VarPositive, ship.Type())
	require.Len(t, c.PendingAssignments(), 1, "bounds queue as assignments")

	sym, ok = c.Symbol("total_cost")
	require.True(t, ok)
	assert.Equal(t, algebra.VarFree, sym.(*algebra.Variable).Type())
}

func TestLoad_DomainOrderAcrossFiles(t *testing.T) {
	t.Parallel()

	// The parameter file sorts before the set file; declaration still
	// works because sets load first regardless of file order.
	res := testutil.LoadHCL(t, map[string]string{
		"a_data.hcl": `
parameter "demand" {
  domain  = ["markets"]
  records = { "topeka" = 275 }
}
`,
		"z_sets.hcl": `
set "markets" {
  elements = ["new-york", "chicago", "topeka"]
}
`,
	})
	require.NoError(t, res.Err)

	sym, ok := res.Container.Symbol("demand")
	require.True(t, ok)
	assert.Equal(t, 275.0, sym.(*algebra.Parameter).Value("topeka"))
}

func TestLoad_UniverseDomain(t *testing.T) {
	t.Parallel()

	res := testutil.LoadHCL(t, map[string]string{
		"data.hcl": `
parameter "anything" {
  domain  = ["*"]
  records = { "whatever" = 1 }
}
`,
	})
	require.NoError(t, res.Err)

	sym, ok := res.Container.Symbol("anything")
	require.True(t, ok)
	p := sym.(*algebra.Parameter)
	require.Len(t, p.Domain(), 1)
	assert.Equal(t, 1.0, p.Value("whatever"))
}

func TestLoad_ScalarVariableBound(t *testing.T) {
	t.Parallel()

	res := testutil.LoadHCL(t, map[string]string{
		"data.hcl": `
variable "budget" {
  upper = 1000
}
`,
	})
	require.NoError(t, res.Err)
	assert.Len(t, res.Container.PendingAssignments(), 1)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name: "undeclared set reference",
			body: `
parameter "demand" {
  domain = ["ghosts"]
}
`,
			expected: `undeclared set "ghosts"`,
		},
		{
			name: "domain names a non-set",
			body: `
scalar "freight" { value = 90 }
set "plants" { elements = ["seattle"] }
parameter "p" {
  domain = ["freight"]
}
`,
			expected: "not a set",
		},
		{
			name: "unknown variable type",
			body: `
variable "x" { type = "imaginary" }
`,
			expected: `unknown variable type "imaginary"`,
		},
		{
			name: "non-numeric record",
			body: `
set "plants" { elements = ["seattle"] }
parameter "capacity" {
  domain  = ["plants"]
  records = { "seattle" = "lots" }
}
`,
			expected: "value is not numeric",
		},
		{
			name:     "malformed syntax",
			body:     "set \"plants\" {\n",
			expected: "failed to parse data file",
		},
		{
			name: "unknown block type",
			body: `
table "plants" { elements = ["seattle"] }
`,
			expected: "failed to decode data file",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := testutil.LoadHCL(t, map[string]string{"data.hcl": tc.body})
			require.Error(t, res.Err)
			assert.Contains(t, res.Err.Error(), tc.expected)
		})
	}
}

func TestLoad_MissingPathSkipped(t *testing.T) {
	t.Parallel()

	res := testutil.LoadHCL(t, map[string]string{})
	assert.NoError(t, res.Err)
	// Only the universe set exists on an empty load.
	assert.Len(t, res.Container.Symbols(), 0)
}
