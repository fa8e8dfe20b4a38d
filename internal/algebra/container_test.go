// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/optalg/internal/moderr"
)

func TestAddSet_RedeclareKeepsIdentity(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a", "b")
	require.NoError(t, err)

	again, err := c.AddSet("i", nil, "c")
	require.NoError(t, err)

	assert.Same(t, i, again, "re-declaring with the same kind and domain must return the existing object")
	assert.Equal(t, []string{"a", "b", "c"}, i.Elements())
}

func TestAddSet_RedeclareAsParameterFails(t *testing.T) {
	t.Parallel()
	c := New()

	_, err := c.AddSet("i", nil, "a")
	require.NoError(t, err)

	_, err = c.AddParameter("i")
	require.Error(t, err)
	var redef *moderr.SymbolRedefinitionError
	require.True(t, errors.As(err, &redef))
	assert.Equal(t, "i", redef.Name)
}

func TestAddParameter_RedeclareOverDifferentDomainFails(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a")
	require.NoError(t, err)
	j, err := c.AddSet("j", nil, "x")
	require.NoError(t, err)

	_, err = c.AddParameter("p", i)
	require.NoError(t, err)

	_, err = c.AddParameter("p", j)
	var redef *moderr.SymbolRedefinitionError
	require.True(t, errors.As(err, &redef))
}

func TestAddVariable_TypeMismatchFails(t *testing.T) {
	t.Parallel()
	c := New()

	_, err := c.AddVariable("x", VarPositive)
	require.NoError(t, err)

	_, err = c.AddVariable("x", VarBinary)
	var redef *moderr.SymbolRedefinitionError
	require.True(t, errors.As(err, &redef))
}

func TestAddSet_AnonymousNamesAreUnique(t *testing.T) {
	t.Parallel()
	c := New()

	s1, err := c.AddSet("", nil, "a")
	require.NoError(t, err)
	s2, err := c.AddSet("", nil, "a")
	require.NoError(t, err)

	assert.NotEqual(t, s1.Name(), s2.Name())
	assert.NotSame(t, s1, s2)
}

func TestUniverse_RejectsExplicitElements(t *testing.T) {
	t.Parallel()
	c := New()

	err := c.Universe().AddElements("a")
	var dv *moderr.DomainViolationError
	require.True(t, errors.As(err, &dv))
}

func TestDirtySet_Lifecycle(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a")
	require.NoError(t, err)
	p, err := c.AddParameter("p", i)
	require.NoError(t, err)

	names := func() []string {
		var out []string
		for _, s := range c.DirtySymbols() {
			out = append(out, s.Name())
		}
		return out
	}
	assert.Equal(t, []string{"i", "p"}, names(), "fresh declarations start dirty")

	c.ClearDirty("i", "p")
	assert.Empty(t, names())

	require.NoError(t, p.SetRecords(map[string]float64{"a": 1}))
	assert.Equal(t, []string{"p"}, names(), "record mutation re-dirties the symbol")

	// A result merge must not re-dirty: host and engine agree afterwards.
	c.ClearDirty("p")
	require.NoError(t, c.MergeResultRecord("p", []string{"a"}, []float64{2}))
	assert.Empty(t, names())
	assert.Equal(t, 2.0, p.Value("a"))
}

func TestMergeResultRecord_UndeclaredSymbol(t *testing.T) {
	t.Parallel()
	c := New()

	err := c.MergeResultRecord("ghost", []string{"a"}, []float64{1})
	var dv *moderr.DomainViolationError
	require.True(t, errors.As(err, &dv))
}

func TestMergeResultRecord_AppendsSetElements(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a")
	require.NoError(t, err)
	c.ClearDirty("i")

	require.NoError(t, c.MergeResultRecord("i", []string{"b"}, nil))
	assert.Equal(t, []string{"a", "b"}, i.Elements())
	assert.Empty(t, c.DirtySymbols())
}

func TestAddModel_Validation(t *testing.T) {
	t.Parallel()
	c := New()

	i, err := c.AddSet("i", nil, "a")
	require.NoError(t, err)
	z, err := c.AddVariable("z", VarFree)
	require.NoError(t, err)
	x, err := c.AddVariable("x", VarPositive, i)
	require.NoError(t, err)
	q, err := c.AddEquation("q", EqRegular)
	require.NoError(t, err)

	_, err = c.AddModel("m", ProblemLP, SenseMin, z)
	assert.Error(t, err, "a model needs equations")

	_, err = c.AddModel("m", ProblemLP, SenseMin, nil, q)
	assert.Error(t, err, "an optimizing model needs an objective")

	_, err = c.AddModel("m", ProblemLP, SenseMin, x, q)
	assert.Error(t, err, "the objective must be scalar")

	m, err := c.AddModel("m", ProblemLP, SenseMin, z, q)
	require.NoError(t, err)
	assert.Equal(t, "m", m.Name())

	_, err = c.AddModel("m", ProblemLP, SenseMin, z, q)
	assert.Error(t, err, "model names are unique")
}

func TestContainer_CloseRunsAttachedCloserOnce(t *testing.T) {
	t.Parallel()
	c := New()

	calls := 0
	c.AttachCloser(func() error {
		calls++
		return nil
	})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, calls)
}

func TestContainer_ConcurrentMutation(t *testing.T) {
	t.Parallel()
	c := New()
	i, err := c.AddSet("i", nil, "a", "b", "c")
	require.NoError(t, err)

	params := make([]*Parameter, 8)
	for n := range params {
		p, err := c.AddParameter(fmt.Sprintf("p%d", n), i)
		require.NoError(t, err)
		params[n] = p
	}

	var wg sync.WaitGroup
	for n, p := range params {
		wg.Add(1)
		go func(n int, p *Parameter) {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				if err := p.SetRecords(map[string]float64{"a": float64(k), "b": float64(n)}); err != nil {
					t.Error(err)
					return
				}
				_ = p.At(i).Mul(2).Add(1)
				_ = c.DirtySymbols()
			}
		}(n, p)
	}
	wg.Wait()

	for n, p := range params {
		assert.Equal(t, 49.0, p.Value("a"))
		assert.Equal(t, float64(n), p.Value("b"))
	}
}
