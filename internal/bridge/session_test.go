package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/gen"
	"github.com/vk/optalg/internal/moderr"
	"github.com/vk/optalg/internal/testutil"
)

// fakeTransport records submitted batches and replays a canned result.
type fakeTransport struct {
	batches []Batch
	result  *Result
	err     error
	closed  int
}

func (f *fakeTransport) Submit(_ context.Context, batch Batch) (*Result, error) {
	f.batches = append(f.batches, batch)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func transportSolution() *Result {
	return &Result{
		Status:    algebra.StatusOptimal,
		Objective: 153.675,
		HasObj:    true,
		Records: []Record{
			{Symbol: "ship", Keys: []string{"seattle", "new-york"}, Values: []float64{50, 0, 0, algebra.PosInf, 1}},
			{Symbol: "ship", Keys: []string{"san-diego", "new-york"}, Values: []float64{275, 0, 0, algebra.PosInf, 1}},
			{Symbol: "total_cost", Values: []float64{153.675, 0, algebra.NegInf, algebra.PosInf, 1}},
			{Symbol: "supply", Keys: []string{"seattle"}, Values: []float64{350, 0, algebra.NegInf, 350, 1}},
		},
	}
}

func TestSession_SolveMergesSolution(t *testing.T) {
	ts := testutil.BuildTransport(t)
	ft := &fakeTransport{result: transportSolution()}
	sess := NewSession(ts.Container, ft)

	err := sess.Solve(context.Background(), ts.Model)
	require.NoError(t, err)

	require.Len(t, ft.batches, 1)
	batch := ft.batches[0]
	assert.Contains(t, batch.Statements, "Set plants / seattle, 'san-diego' /;")
	assert.Contains(t, batch.Statements, "Model transport / supply, demand_eq, cost_def /;")
	assert.Equal(t, "solve transport using lp minimizing total_cost;", batch.Statements[len(batch.Statements)-1])
	assert.Equal(t, []string{"total_cost", "ship", "supply", "demand_eq", "cost_def"}, batch.Want)

	assert.Equal(t, 50.0, ts.Ship.Record("seattle", "new-york").Level)
	assert.Equal(t, 275.0, ts.Ship.Record("san-diego", "new-york").Level)
	assert.Equal(t, 350.0, ts.Supply.Record("seattle").Level)

	assert.Equal(t, algebra.StatusOptimal, ts.Model.Status())
	obj, ok := ts.Model.ObjectiveValue()
	require.True(t, ok)
	assert.Equal(t, 153.675, obj)

	assert.Empty(t, ts.Container.DirtySymbols(), "successful solve clears the dirty set")
}

func TestSession_SecondSolveSendsOnlyChanges(t *testing.T) {
	ts := testutil.BuildTransport(t)
	ft := &fakeTransport{result: transportSolution()}
	sess := NewSession(ts.Container, ft)

	require.NoError(t, sess.Solve(context.Background(), ts.Model))
	require.NoError(t, sess.Solve(context.Background(), ts.Model))

	require.Len(t, ft.batches, 2)
	second := ft.batches[1].Statements
	assert.Equal(t, []string{
		"Model transport / supply, demand_eq, cost_def /;",
		"solve transport using lp minimizing total_cost;",
	}, second, "nothing changed, so only the solve itself goes out")

	// A data change reintroduces that symbol, and only that symbol.
	require.NoError(t, ts.Capacity.SetRecords(map[string]float64{"seattle": 400, "san-diego": 600}))
	require.NoError(t, sess.Solve(context.Background(), ts.Model))
	third := ft.batches[2].Statements
	assert.Contains(t, third, "Parameter capacity(plants) / 'san-diego' 600, seattle 400 /;")
	assert.NotContains(t, third, "Parameter capacity(plants);", "declaration is not resent")
	for _, stmt := range third {
		assert.NotContains(t, stmt, "demand(", "untouched symbols stay out of the batch")
	}
}

func TestSession_FailedSolveKeepsDirtySet(t *testing.T) {
	ts := testutil.BuildTransport(t)
	ft := &fakeTransport{err: errors.New("engine unreachable")}
	sess := NewSession(ts.Container, ft)

	before := len(ts.Container.DirtySymbols())
	require.NotZero(t, before)

	err := sess.Solve(context.Background(), ts.Model)
	require.Error(t, err)
	assert.Len(t, ts.Container.DirtySymbols(), before, "failed solve must not clear the dirty set")
	assert.Equal(t, algebra.StatusUnknown, ts.Model.Status())
}

func TestSession_FailedSolveKeepsQueuedAssignments(t *testing.T) {
	ts := testutil.BuildTransport(t)
	ft := &fakeTransport{err: errors.New("engine unreachable")}
	sess := NewSession(ts.Container, ft)

	rhs := algebra.Number(ts.Container, 100)
	require.NoError(t, ts.Ship.AssignAttr(algebra.AttrUpper, rhs, ts.Plants, ts.Markets))

	// Rendering the program is read-only: the queue survives it.
	stmts, err := sess.Program(ts.Model)
	require.NoError(t, err)
	assert.Contains(t, stmts, "ship.up(plants,markets) = 100;")
	stmts, err = sess.Program(ts.Model)
	require.NoError(t, err)
	assert.Contains(t, stmts, "ship.up(plants,markets) = 100;")

	require.Error(t, sess.Solve(context.Background(), ts.Model))

	ft.err = nil
	ft.result = transportSolution()
	require.NoError(t, sess.Solve(context.Background(), ts.Model))
	require.Len(t, ft.batches, 2)
	assert.Contains(t, ft.batches[1].Statements, "ship.up(plants,markets) = 100;",
		"an assignment queued before a failed solve still reaches the engine")

	require.NoError(t, sess.Solve(context.Background(), ts.Model))
	assert.NotContains(t, ft.batches[2].Statements, "ship.up(plants,markets) = 100;",
		"a delivered assignment does not go out again")
}

func TestSession_NonzeroReturnCodeWithoutStatus(t *testing.T) {
	ts := testutil.BuildTransport(t)
	ft := &fakeTransport{result: &Result{ReturnCode: 3, Status: algebra.StatusUnknown}}
	sess := NewSession(ts.Container, ft)

	err := sess.Solve(context.Background(), ts.Model)
	var execErr *moderr.EngineExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.ReturnCode)
	assert.NotEmpty(t, ts.Container.DirtySymbols())
}

func TestSession_Program(t *testing.T) {
	ts := testutil.BuildTransport(t)
	sess := NewSession(ts.Container, &fakeTransport{})

	stmts, err := sess.Program(ts.Model)
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
	assert.Equal(t, "Set plants;", stmts[0])
	assert.Contains(t, stmts, "supply(plants).. sum(markets, ship(plants,markets)) =l= capacity(plants);")
	assert.Equal(t, "solve transport using lp minimizing total_cost;", stmts[len(stmts)-1])
}

func TestSession_ExpandedEquations(t *testing.T) {
	ts := testutil.BuildTransport(t)
	sess := NewSession(ts.Container, &fakeTransport{}, WithExpandedEquations())

	stmts, err := sess.Program(ts.Model)
	require.NoError(t, err)
	assert.Contains(t, stmts, "supply(seattle).. (ship(seattle,'new-york') + ship(seattle,chicago) + ship(seattle,topeka)) =l= capacity(seattle);")
	for _, stmt := range stmts {
		assert.NotContains(t, stmt, "supply(plants)..", "indexed definitions are replaced by instances")
	}
}

func TestSession_CustomRenderer(t *testing.T) {
	ts := testutil.BuildTransport(t)
	r := &gen.Renderer{MaxStatementLen: 64}
	sess := NewSession(ts.Container, &fakeTransport{}, WithRenderer(r))

	stmts, err := sess.Program(ts.Model)
	require.NoError(t, err)
	costBlocks := 0
	for _, stmt := range stmts {
		if strings.HasPrefix(stmt, "Parameter cost(plants,markets) / ") {
			costBlocks++
			assert.LessOrEqual(t, len(stmt), 64)
		}
	}
	assert.Greater(t, costBlocks, 1, "six cost records cannot fit one 64-char statement")
}

func TestSession_CloseTearsDownTransport(t *testing.T) {
	ts := testutil.BuildTransport(t)
	ft := &fakeTransport{}
	NewSession(ts.Container, ft)

	require.NoError(t, ts.Container.Close())
	assert.Equal(t, 1, ft.closed)
}
