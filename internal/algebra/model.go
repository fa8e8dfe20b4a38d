// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"github.com/vk/optalg/internal/moderr"
)

// Problem is the class the solve directive names.
type Problem uint8

const (
	ProblemLP Problem = iota
	ProblemNLP
	ProblemMIP
	ProblemMINLP
	ProblemQCP
	ProblemMCP
	ProblemCNS
)

// String returns the engine keyword for the problem class.
func (p Problem) String() string {
	switch p {
	case ProblemNLP:
		return "nlp"
	case ProblemMIP:
		return "mip"
	case ProblemMINLP:
		return "minlp"
	case ProblemQCP:
		return "qcp"
	case ProblemMCP:
		return "mcp"
	case ProblemCNS:
		return "cns"
	default:
		return "lp"
	}
}

// Sense is the optimization direction.
type Sense uint8

const (
	SenseMin Sense = iota
	SenseMax
	SenseFeasibility
)

// String returns the engine keyword for the sense.
func (s Sense) String() string {
	switch s {
	case SenseMax:
		return "maximizing"
	case SenseFeasibility:
		return "using"
	default:
		return "minimizing"
	}
}

// ModelStatus is the engine's verdict on the optimization problem itself.
// Infeasible and unbounded are expected outcomes reported here, never
// errors: only a failed engine run raises.
type ModelStatus uint8

const (
	StatusUnknown ModelStatus = iota
	StatusOptimal
	StatusLocallyOptimal
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	StatusInterrupted
)

// String returns a stable lower-case status name.
func (s ModelStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusLocallyOptimal:
		return "locally-optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Match pairs an equation with a variable for complementarity problems.
type Match struct {
	Equation *Equation
	Variable *Variable
}

// Model aggregates equations (or equation-variable match pairs), a problem
// class, a sense and optionally one scalar objective variable.
type Model struct {
	c         *Container
	name      string
	problem   Problem
	sense     Sense
	objective *Variable
	equations []*Equation
	matches   []Match

	status    ModelStatus
	objVal    float64
	hasResult bool
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Problem returns the declared problem class.
func (m *Model) Problem() Problem { return m.problem }

// Sense returns the optimization sense.
func (m *Model) Sense() Sense { return m.sense }

// Objective returns the designated objective variable, nil for
// feasibility models.
func (m *Model) Objective() *Variable { return m.objective }

// Equations returns the model's equations, matches included.
func (m *Model) Equations() []*Equation {
	out := make([]*Equation, 0, len(m.equations)+len(m.matches))
	out = append(out, m.equations...)
	for _, mt := range m.matches {
		out = append(out, mt.Equation)
	}
	return out
}

// Matches returns the complementarity pairs.
func (m *Model) Matches() []Match { return m.matches }

// Status returns the engine's model status after the last solve.
func (m *Model) Status() ModelStatus {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.status
}

// ObjectiveValue returns the objective at the last solve. The boolean is
// false before any solve completed.
func (m *Model) ObjectiveValue() (float64, bool) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.objVal, m.hasResult
}

// SetResult records a solve outcome. Called by the execution bridge.
func (m *Model) SetResult(status ModelStatus, objective float64) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	m.status = status
	m.objVal = objective
	m.hasResult = true
}

func validateModel(name string, objective *Variable, sense Sense, equations []*Equation, matches []Match) error {
	if len(equations) == 0 && len(matches) == 0 {
		return &moderr.DomainViolationError{Symbol: name, Detail: "a model needs at least one equation or match pair"}
	}
	if sense != SenseFeasibility && objective == nil {
		return &moderr.DomainViolationError{Symbol: name, Detail: "an optimizing model needs an objective variable"}
	}
	if objective != nil && objective.Dim() != 0 {
		return &moderr.DomainViolationError{Symbol: name, Detail: "the objective variable must be scalar"}
	}
	return nil
}
