package gen

import (
	"fmt"
	"strings"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/moderr"
)

// Declaration renders the declaration statement for a symbol, without
// data. Variables carry their type keyword, equations only their name and
// domain (the relational operator lives in the definition).
func (r *Renderer) Declaration(sym algebra.Symbol) string {
	name := sym.Name() + domainText(sym.Domain())
	switch s := sym.(type) {
	case *algebra.Set:
		return "Set " + name + ";"
	case *algebra.Alias:
		return "Alias (" + s.Target().Name() + ", " + s.Name() + ");"
	case *algebra.Parameter:
		if sym.Dim() == 0 {
			return "Scalar " + sym.Name() + ";"
		}
		return "Parameter " + name + ";"
	case *algebra.Variable:
		if s.Type() == algebra.VarFree {
			return "Variable " + name + ";"
		}
		return s.Type().String() + " Variable " + name + ";"
	case *algebra.Equation:
		return "Equation " + name + ";"
	}
	return ""
}

func domainText(domain []algebra.SetLike) string {
	if len(domain) == 0 {
		return ""
	}
	parts := make([]string, len(domain))
	for i, s := range domain {
		parts[i] = s.Name()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Data renders the record statements that bring the engine's copy of a
// symbol up to date with the sparse store. Deterministic record order,
// split against the statement length budget.
func (r *Renderer) Data(sym algebra.Symbol) []string {
	switch s := sym.(type) {
	case *algebra.Set:
		return r.setData(s)
	case *algebra.Parameter:
		return r.parameterData(s)
	case *algebra.Variable:
		var out []string
		defaults := algebra.Attributes{Scale: 1}
		lo, up := s.Type().DefaultBounds()
		defaults.Lower, defaults.Upper = lo, up
		for _, rec := range s.Records() {
			out = append(out, attributeData(s.Name(), rec, defaults)...)
		}
		return out
	case *algebra.Equation:
		// Equation attribute records are engine output; nothing flows
		// outward besides the definition.
		return nil
	}
	return nil
}

func (r *Renderer) setData(s *algebra.Set) []string {
	elements := s.Elements()
	if len(elements) == 0 {
		return nil
	}
	items := make([]string, len(elements))
	for i, el := range elements {
		items[i] = Label(el)
	}
	head := "Set " + s.Name() + domainText(s.Domain()) + " / "
	return r.splitList(head, items, ", ", " /;")
}

func (r *Renderer) parameterData(p *algebra.Parameter) []string {
	recs := p.Records()
	if len(recs) == 0 {
		return nil
	}
	if p.Dim() == 0 {
		return []string{"Scalar " + p.Name() + " / " + Num(recs[0].Value) + " /;"}
	}
	items := make([]string, len(recs))
	for i, rec := range recs {
		keys := make([]string, len(rec.Keys))
		for j, k := range rec.Keys {
			keys[j] = Label(k)
		}
		items[i] = strings.Join(keys, ".") + " " + Num(rec.Value)
	}
	head := "Parameter " + p.Name() + domainText(p.Domain()) + " / "
	return r.splitList(head, items, ", ", " /;")
}

// attributeData emits one assignment per attribute that differs from the
// type's implicit record. Fixed emission order keeps output reproducible.
func attributeData(name string, rec algebra.AttributeRecord, defaults algebra.Attributes) []string {
	idx := ""
	if len(rec.Keys) > 0 {
		keys := make([]string, len(rec.Keys))
		for i, k := range rec.Keys {
			keys[i] = Label(k)
		}
		idx = "(" + strings.Join(keys, ",") + ")"
	}
	var out []string
	emit := func(attr algebra.Attr, v, def float64) {
		if v != def {
			out = append(out, name+"."+attr.Suffix()+idx+" = "+Num(v)+";")
		}
	}
	emit(algebra.AttrLower, rec.Lower, defaults.Lower)
	emit(algebra.AttrUpper, rec.Upper, defaults.Upper)
	emit(algebra.AttrScale, rec.Scale, defaults.Scale)
	emit(algebra.AttrLevel, rec.Level, defaults.Level)
	return out
}

// splitList joins items into "head item, item ... tail" statements, opening
// a continuation statement whenever the length budget would overflow. With
// no budget one statement comes back.
func (r *Renderer) splitList(head string, items []string, sep, tail string) []string {
	if r.MaxStatementLen <= 0 {
		return []string{head + strings.Join(items, sep) + tail}
	}
	var out []string
	cur := head
	n := 0
	for _, item := range items {
		candidate := cur
		if n > 0 {
			candidate += sep
		}
		candidate += item
		if n > 0 && len(candidate)+len(tail) > r.MaxStatementLen {
			out = append(out, cur+tail)
			cur = head + item
			n = 1
			continue
		}
		cur = candidate
		n++
	}
	out = append(out, cur+tail)
	return out
}

// Assignment renders one queued assignment statement. Relational
// right-hand sides materialize as 0/1 values here: the target is a data
// symbol, not an equation. Long additive right-hand sides split into an
// initial assignment plus self-referencing continuations.
func (r *Renderer) Assignment(a algebra.Assignment) ([]string, error) {
	target := a.Target.Name()
	if a.HasAttr {
		target += "." + a.Attr.Suffix()
	}
	target += indexText(a.Index)

	terms, err := r.additiveTerms(a.Value)
	if err != nil {
		return nil, err
	}

	full := target + " = " + strings.Join(terms, " + ") + ";"
	if r.MaxStatementLen <= 0 || len(full) <= r.MaxStatementLen || len(terms) == 1 {
		return []string{full}, nil
	}

	// Incremental combination: later statements fold into the target so
	// the split is invisible to the engine's final value.
	var out []string
	cur := target + " = " + terms[0]
	for _, t := range terms[1:] {
		candidate := cur + " + " + t
		if len(candidate)+1 > r.MaxStatementLen {
			out = append(out, cur+";")
			cur = target + " = " + target + " + " + t
			continue
		}
		cur = candidate
	}
	out = append(out, cur+";")
	return out, nil
}

// additiveTerms renders the top-level additive chain of e as separate
// strings. Non-additive roots come back as a single term.
func (r *Renderer) additiveTerms(e algebra.Expr) ([]string, error) {
	n := e.Node()
	if n.Kind == algebra.NodeBinary && n.Op == algebra.OpAdd {
		left, err := r.additiveTerms(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.additiveTerms(n.Right)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	}
	s, err := r.ExprString(e, RelBoolean)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

// EquationDefinition renders the deferred indexed definition statement.
func (r *Renderer) EquationDefinition(q *algebra.Equation) ([]string, error) {
	ci, filters, body, ok := q.Definition()
	if !ok {
		return nil, &moderr.AmbiguousEquationError{Detail: "equation " + q.Name() + " has no definition"}
	}
	head := q.Name() + indexText(ci)
	if len(filters) > 0 {
		conds := make([]string, len(filters))
		for i, f := range filters {
			s, err := r.ExprString(f, RelBoolean)
			if err != nil {
				return nil, err
			}
			conds[i] = s
		}
		head += "$(" + strings.Join(conds, " and ") + ")"
	}
	rel, err := r.ExprString(body, RelDefinition)
	if err != nil {
		return nil, err
	}
	return []string{head + ".. " + rel + ";"}, nil
}

// Solve renders the terminal solve directive for a model.
func (r *Renderer) Solve(m *algebra.Model) string {
	stmt := "solve " + m.Name() + " using " + m.Problem().String()
	switch m.Sense() {
	case algebra.SenseMin:
		stmt += " minimizing " + m.Objective().Name()
	case algebra.SenseMax:
		stmt += " maximizing " + m.Objective().Name()
	}
	return stmt + ";"
}

// ModelStatement renders the model aggregation statement listing its
// equations or match pairs.
func (r *Renderer) ModelStatement(m *algebra.Model) string {
	var parts []string
	for _, q := range m.Equations() {
		parts = append(parts, q.Name())
	}
	if matches := m.Matches(); len(matches) > 0 {
		parts = parts[:0]
		for _, mt := range matches {
			parts = append(parts, fmt.Sprintf("%s.%s", mt.Equation.Name(), mt.Variable.Name()))
		}
	}
	return "Model " + m.Name() + " / " + strings.Join(parts, ", ") + " /;"
}
