package gen

import (
	"fmt"
	"math"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/moderr"
)

// truthy applies the engine's dollar-condition convention: any nonzero
// value holds, and the explicit-zero sentinel Eps holds too because the
// record exists.
func truthy(v float64) bool { return v != 0 }

// evalExpr computes a filter condition host-side against the sparse record
// stores. Only data is evaluable: parameters, set cardinalities, ordinals,
// attribute records and arithmetic over them. A variable reference inside
// a condition cannot be valued before a solve and fails.
func evalExpr(env binding, e algebra.Expr) (float64, error) {
	n := e.Node()
	switch n.Kind {
	case algebra.NodeLiteral:
		return n.Lit, nil

	case algebra.NodeRef:
		p, ok := n.Sym.(*algebra.Parameter)
		if !ok {
			return 0, &moderr.DomainViolationError{
				Symbol: n.Sym.Name(),
				Detail: "only parameters are evaluable inside host-side filters",
			}
		}
		labels, ok, err := pinLabels(env, n.Index)
		if err != nil || !ok {
			return 0, err
		}
		return p.Value(labels...), nil

	case algebra.NodeAttr:
		labels, ok, err := pinLabels(env, n.Index)
		if err != nil || !ok {
			return 0, err
		}
		var rec algebra.Attributes
		switch s := n.Sym.(type) {
		case *algebra.Variable:
			rec = s.Record(labels...)
		case *algebra.Equation:
			rec = s.Record(labels...)
		default:
			return 0, &moderr.DomainViolationError{Symbol: n.Sym.Name(), Detail: "attribute on non-attributed symbol"}
		}
		switch n.Attr {
		case algebra.AttrLevel:
			return rec.Level, nil
		case algebra.AttrMarginal:
			return rec.Marginal, nil
		case algebra.AttrLower:
			return rec.Lower, nil
		case algebra.AttrUpper:
			return rec.Upper, nil
		default:
			return rec.Scale, nil
		}

	case algebra.NodeBinary:
		l, err := evalExpr(env, n.Left)
		if err != nil {
			return 0, err
		}
		r, err := evalExpr(env, n.Right)
		if err != nil {
			return 0, err
		}
		return applyBinary(n.Op, l, r), nil

	case algebra.NodeUnary:
		v, err := evalExpr(env, n.Left)
		if err != nil {
			return 0, err
		}
		if n.Op == algebra.OpNot {
			if truthy(v) {
				return 0, nil
			}
			return 1, nil
		}
		return -v, nil

	case algebra.NodeRelation:
		l, err := evalExpr(env, n.Left)
		if err != nil {
			return 0, err
		}
		r, err := evalExpr(env, n.Right)
		if err != nil {
			return 0, err
		}
		return applyRelation(n.Op, l, r), nil

	case algebra.NodeCondition:
		cond, err := evalExpr(env, n.Right)
		if err != nil {
			return 0, err
		}
		if !truthy(cond) {
			return 0, nil
		}
		return evalExpr(env, n.Left)

	case algebra.NodeAggregation:
		return evalAggregation(env, n)

	case algebra.NodeOrd:
		label, bound := lookupBinding(env, n.Over[0].Set)
		if !bound {
			return 0, &moderr.DomainViolationError{Detail: "ord over unbound index " + n.Over[0].Set.Name()}
		}
		return float64(n.Over[0].Set.Ordinal(label)), nil

	case algebra.NodeCard:
		return float64(n.Over[0].Set.Card()), nil
	}
	return 0, fmt.Errorf("unknown node kind %d", n.Kind)
}

func pinLabels(env binding, ci algebra.CanonicalIndex) ([]string, bool, error) {
	labels := make([]string, len(ci))
	for i, slot := range ci {
		label, ok, err := resolveSlotLabel(env, slot)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		labels[i] = label
	}
	return labels, true, nil
}

// applyBinary folds arithmetic with sentinel propagation: any operation
// touching an extended sentinel yields Undef rather than tripping host
// float behavior, except that logical operators read sentinels as truthy.
func applyBinary(op algebra.Op, l, r float64) float64 {
	switch op {
	case algebra.OpAnd:
		if truthy(l) && truthy(r) {
			return 1
		}
		return 0
	case algebra.OpOr:
		if truthy(l) || truthy(r) {
			return 1
		}
		return 0
	}
	if algebra.IsSpecial(l) || algebra.IsSpecial(r) {
		return algebra.Undef
	}
	switch op {
	case algebra.OpAdd:
		return l + r
	case algebra.OpSub:
		return l - r
	case algebra.OpMul:
		return l * r
	case algebra.OpDiv:
		if r == 0 {
			return algebra.Undef
		}
		return l / r
	case algebra.OpPow:
		return math.Pow(l, r)
	}
	return algebra.Undef
}

func applyRelation(op algebra.Op, l, r float64) float64 {
	var hold bool
	switch op {
	case algebra.OpEq:
		hold = l == r
	case algebra.OpNe:
		hold = l != r
	case algebra.OpLe:
		hold = l <= r
	case algebra.OpGe:
		hold = l >= r
	}
	if hold {
		return 1
	}
	return 0
}

func evalAggregation(env binding, n algebra.NodeView) (float64, error) {
	var acc float64
	first := true
	var walk func(pos int, cur binding) error
	walk = func(pos int, cur binding) error {
		if pos == len(n.Over) {
			v, err := evalExpr(cur, n.Left)
			if err != nil {
				return err
			}
			switch n.Op {
			case algebra.OpProd:
				if first {
					acc = v
				} else {
					acc *= v
				}
			case algebra.OpSmin:
				if first || v < acc {
					acc = v
				}
			case algebra.OpSmax:
				if first || v > acc {
					acc = v
				}
			default:
				acc += v
			}
			first = false
			return nil
		}
		ai := n.Over[pos]
		for _, el := range ai.Set.Elements() {
			next := cur.extend(ai.Set, el)
			if ai.Cond.Valid() {
				c, err := evalExpr(next, ai.Cond)
				if err != nil {
					return err
				}
				if !truthy(c) {
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
		return 0, err
	}
	return acc, nil
}
