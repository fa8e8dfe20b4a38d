package gen

import (
	"fmt"
	"strings"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/moderr"
)

// binding maps each free index role to the element label it is pinned to
// in the instance under expansion. Roles are the SetLike values the user
// referenced, so an alias and its base set bind independently.
type binding map[algebra.SetLike]string

func (b binding) extend(s algebra.SetLike, label string) binding {
	next := make(binding, len(b)+1)
	for k, v := range b {
		next[k] = v
	}
	next[s] = label
	return next
}

// EquationInstances expands an equation definition into one scalar
// statement per surviving domain tuple: free indices enumerate their
// element lists, definition filters evaluate host-side, and filtered-out
// tuples produce no statement at all.
func (r *Renderer) EquationInstances(q *algebra.Equation) ([]string, error) {
	ci, filters, body, ok := q.Definition()
	if !ok {
		return nil, &moderr.AmbiguousEquationError{Detail: "equation " + q.Name() + " has no definition"}
	}

	var out []string
	var walk func(pos int, env binding, keys []string) error
	walk = func(pos int, env binding, keys []string) error {
		if pos == len(ci) {
			for _, f := range filters {
				v, err := evalExpr(env, f)
				if err != nil {
					return err
				}
				if !truthy(v) {
					return nil
				}
			}
			rel, err := expandExpr(env, body, RelDefinition)
			if err != nil {
				return err
			}
			head := q.Name() + labelIndex(keys)
			out = append(out, head+".. "+rel+";")
			return nil
		}
		slot := ci[pos]
		for _, el := range slot.Set.Elements() {
			if err := walk(pos+1, env.extend(slot.Set, el), append(keys, el)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, binding{}, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func labelIndex(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = Label(k)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// lookupBinding finds the label pinned for index role s. A role absent
// from the binding may still resolve through its parents: an alias binds
// through its target, and a domain-checked subset binds through the set
// it was declared over, since a reference may legally index a narrower
// set than the one the instance enumerates.
func lookupBinding(env binding, s algebra.SetLike) (string, bool) {
	for cur := s; cur != nil; {
		if label, ok := env[cur]; ok {
			return label, true
		}
		switch x := cur.(type) {
		case *algebra.Alias:
			cur = x.Target()
		case *algebra.Set:
			dom := x.Domain()
			if len(dom) != 1 {
				return "", false
			}
			cur = dom[0]
		default:
			return "", false
		}
	}
	return "", false
}

// resolveSlotLabel pins one index slot under an instance binding: fixed
// slots keep their label, free slots read the binding and apply lag/lead
// displacement through the set's ordinal numbering. ok is false when the
// bound label falls outside a subset role or when a displacement runs
// off either end of the element list, which drops the referencing term.
func resolveSlotLabel(env binding, slot algebra.IndexSlot) (string, bool, error) {
	if slot.Kind == algebra.SlotFixed {
		return slot.Label, true, nil
	}
	label, bound := lookupBinding(env, slot.Set)
	if !bound {
		return "", false, &moderr.DomainViolationError{
			Detail: "free index " + slot.Set.Name() + " is not bound in this context",
		}
	}
	if slot.Set.Ordinal(label) == 0 {
		return "", false, nil
	}
	if slot.Offset == 0 {
		return label, true, nil
	}
	base := slot.Set.Elements()
	ord := slot.Set.Ordinal(label)
	target := ord + slot.Offset
	if target < 1 || target > len(base) {
		return "", false, nil
	}
	return base[target-1], true, nil
}

// expandExpr renders e as a scalar expression under env. Aggregations
// enumerate their (filtered) element ranges; references pin every free
// slot to the bound label. Terms whose lag/lead displacement leaves the
// domain render as 0.
func expandExpr(env binding, e algebra.Expr, ctx RelContext) (string, error) {
	n := e.Node()
	switch n.Kind {
	case algebra.NodeLiteral:
		return Num(n.Lit), nil

	case algebra.NodeRef, algebra.NodeAttr:
		labels := make([]string, len(n.Index))
		for i, slot := range n.Index {
			label, ok, err := resolveSlotLabel(env, slot)
			if err != nil {
				return "", err
			}
			if !ok {
				return "0", nil
			}
			labels[i] = label
		}
		name := n.Sym.Name()
		if n.Kind == algebra.NodeAttr {
			name += "." + n.Attr.Suffix()
		}
		return name + labelIndex(labels), nil

	case algebra.NodeBinary:
		l, err := expandExpr(env, n.Left, RelBoolean)
		if err != nil {
			return "", err
		}
		rr, err := expandExpr(env, n.Right, RelBoolean)
		if err != nil {
			return "", err
		}
		return "(" + l + " " + opToken(n.Op) + " " + rr + ")", nil

	case algebra.NodeUnary:
		inner, err := expandExpr(env, n.Left, RelBoolean)
		if err != nil {
			return "", err
		}
		if n.Op == algebra.OpNot {
			return "(not " + inner + ")", nil
		}
		return "(-" + inner + ")", nil

	case algebra.NodeRelation:
		tok, err := relToken(n.Op, ctx)
		if err != nil {
			return "", err
		}
		l, err := expandExpr(env, n.Left, RelBoolean)
		if err != nil {
			return "", err
		}
		rr, err := expandExpr(env, n.Right, RelBoolean)
		if err != nil {
			return "", err
		}
		if ctx == RelDefinition {
			return l + " " + tok + " " + rr, nil
		}
		return "(" + l + " " + tok + " " + rr + ")", nil

	case algebra.NodeAggregation:
		return expandAggregation(env, n)

	case algebra.NodeCondition:
		v, err := evalExpr(env, n.Right)
		if err != nil {
			return "", err
		}
		if !truthy(v) {
			return "0", nil
		}
		return expandExpr(env, n.Left, RelBoolean)

	case algebra.NodeOrd:
		label, bound := lookupBinding(env, n.Over[0].Set)
		if !bound {
			return "", &moderr.DomainViolationError{Detail: "ord over unbound index " + n.Over[0].Set.Name()}
		}
		return Num(float64(n.Over[0].Set.Ordinal(label))), nil

	case algebra.NodeCard:
		return Num(float64(n.Over[0].Set.Card())), nil
	}
	return "", fmt.Errorf("unknown node kind %d", n.Kind)
}

// expandAggregation enumerates the aggregation's element tuples, skipping
// any the index filters reject, and joins the surviving terms. Sparse
// masks never materialize: a tuple without a record contributes no term,
// not an explicit zero.
func expandAggregation(env binding, n algebra.NodeView) (string, error) {
	var terms []string
	var walk func(pos int, cur binding) error
	walk = func(pos int, cur binding) error {
		if pos == len(n.Over) {
			// A where-filter directly on the body composes with the index
			// filters by AND: evaluate it here so rejected tuples vanish
			// instead of rendering as $-guarded zeros.
			body := n.Left
			if bn := body.Node(); bn.Kind == algebra.NodeCondition {
				v, err := evalExpr(cur, bn.Right)
				if err != nil {
					return err
				}
				if !truthy(v) {
					return nil
				}
				body = bn.Left
			}
			t, err := expandExpr(cur, body, RelBoolean)
			if err != nil {
				return err
			}
			if t != "0" {
				terms = append(terms, t)
			}
			return nil
		}
		ai := n.Over[pos]
		for _, el := range ai.Set.Elements() {
			next := cur.extend(ai.Set, el)
			if ai.Cond.Valid() {
				v, err := evalExpr(next, ai.Cond)
				if err != nil {
					return err
				}
				if !truthy(v) {
					continue
				}
			}
			if err := walk(pos+1, next); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, env); err != nil {
		return "", err
	}

	if len(terms) == 0 {
		return "0", nil
	}
	switch n.Op {
	case algebra.OpSmin:
		return "min(" + strings.Join(terms, ", ") + ")", nil
	case algebra.OpSmax:
		return "max(" + strings.Join(terms, ", ") + ")", nil
	case algebra.OpProd:
		return "(" + strings.Join(terms, " * ") + ")", nil
	default:
		return "(" + strings.Join(terms, " + ") + ")", nil
	}
}
