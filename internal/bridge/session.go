package bridge

import (
	"context"
	"log/slog"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/ctxlog"
	"github.com/vk/optalg/internal/gen"
	"github.com/vk/optalg/internal/moderr"
)

// Session drives one container against one engine transport. It tracks
// which symbols the engine has already seen so repeated solves resend only
// what changed since the last successful round-trip.
//
// A failed solve leaves the container's dirty set untouched: the next
// solve resends everything the engine may have missed.
type Session struct {
	c         *algebra.Container
	transport Transport
	renderer  *gen.Renderer
	expand    bool

	declared map[string]bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRenderer substitutes the statement renderer, e.g. to set a
// statement length budget.
func WithRenderer(r *gen.Renderer) SessionOption {
	return func(s *Session) { s.renderer = r }
}

// WithExpandedEquations makes the session enumerate equation instances
// host-side instead of sending indexed definitions. Engines without set
// iteration need this.
func WithExpandedEquations() SessionOption {
	return func(s *Session) { s.expand = true }
}

// NewSession binds a container to a transport. The transport's shutdown
// is attached to the container, so Container.Close tears the session down.
func NewSession(c *algebra.Container, t Transport, opts ...SessionOption) *Session {
	s := &Session{
		c:         c,
		transport: t,
		renderer:  &gen.Renderer{},
		declared:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	c.AttachCloser(t.Close)
	return s
}

// Sync renders the statements bringing the engine up to date: missing
// declarations, data for dirty symbols, queued assignments and dirty
// equation definitions. It has no side effects: the dirty set and the
// assignment queue stay untouched until Solve confirms the engine applied
// the batch.
func (s *Session) Sync() ([]string, []string, error) {
	stmts, synced, _, err := s.sync()
	return stmts, synced, err
}

func (s *Session) sync() (stmts, synced []string, assignments int, err error) {
	for _, sym := range s.c.DirtySymbols() {
		if !s.declared[sym.Name()] {
			if decl := s.renderer.Declaration(sym); decl != "" {
				stmts = append(stmts, decl)
			}
		}
		stmts = append(stmts, s.renderer.Data(sym)...)
		if q, ok := sym.(*algebra.Equation); ok && q.Defined() {
			defs, err := s.equationStatements(q)
			if err != nil {
				return nil, nil, 0, err
			}
			stmts = append(stmts, defs...)
		}
		synced = append(synced, sym.Name())
	}

	queued := s.c.PendingAssignments()
	for _, a := range queued {
		lines, err := s.renderer.Assignment(a)
		if err != nil {
			return nil, nil, 0, err
		}
		stmts = append(stmts, lines...)
	}
	return stmts, synced, len(queued), nil
}

func (s *Session) equationStatements(q *algebra.Equation) ([]string, error) {
	if s.expand {
		return s.renderer.EquationInstances(q)
	}
	return s.renderer.EquationDefinition(q)
}

// Program renders the complete statement listing for solving m, without
// submitting anything. Useful for export and inspection.
func (s *Session) Program(m *algebra.Model) ([]string, error) {
	stmts, _, err := s.Sync()
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, s.renderer.ModelStatement(m))
	stmts = append(stmts, s.renderer.Solve(m))
	return stmts, nil
}

// Solve submits the model to the engine and folds the solution back into
// the container. The dirty set and the assignment queue clear only after
// a successful merge; any failure leaves both intact for the next attempt.
func (s *Session) Solve(ctx context.Context, m *algebra.Model) error {
	log := ctxlog.Maybe(ctx).With("model", m.Name())

	stmts, synced, assignments, err := s.sync()
	if err != nil {
		return err
	}
	stmts = append(stmts, s.renderer.ModelStatement(m))
	stmts = append(stmts, s.renderer.Solve(m))

	batch := Batch{Statements: stmts, Want: s.readbackSymbols(m)}
	log.Debug("submitting solve", slog.Int("statements", len(batch.Statements)))

	res, err := s.transport.Submit(ctx, batch)
	if err != nil {
		log.Error("solve submission failed", "error", err)
		return err
	}
	if res.ReturnCode != 0 {
		log.Warn("engine finished with nonzero return code", slog.Int("rc", res.ReturnCode))
		if res.Status == algebra.StatusUnknown {
			return &moderr.EngineExecutionError{ReturnCode: res.ReturnCode, Detail: "engine reported no model status"}
		}
	}

	for _, rec := range res.Records {
		if err := s.c.MergeResultRecord(rec.Symbol, rec.Keys, rec.Values); err != nil {
			return err
		}
	}
	m.SetResult(res.Status, res.Objective)

	for _, name := range synced {
		s.declared[name] = true
	}
	s.c.ClearDirty(synced...)
	s.c.ClearAssignments(assignments)

	if res.HasObj {
		log.Info("solve finished", "status", res.Status.String(), slog.Float64("objective", res.Objective))
	} else {
		log.Info("solve finished", "status", res.Status.String())
	}
	return nil
}

// readbackSymbols lists the symbols whose records the engine should send
// back: the model's variables and equations plus the objective.
func (s *Session) readbackSymbols(m *algebra.Model) []string {
	seen := make(map[string]bool)
	var want []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			want = append(want, name)
		}
	}
	if obj := m.Objective(); obj != nil {
		add(obj.Name())
	}
	for _, sym := range s.c.Symbols() {
		switch sym.Kind() {
		case algebra.KindVariable, algebra.KindEquation:
			add(sym.Name())
		}
	}
	return want
}
