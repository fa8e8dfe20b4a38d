package gen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/moderr"
)

// RelContext tells the walker how to spell relational nodes. The same node
// kind means "equation definition" under an equation target and "0/1 truth
// value" under a parameter target; the caller always says which, it is
// never inferred.
type RelContext uint8

const (
	// RelBoolean renders value-producing comparison operators.
	RelBoolean RelContext = iota
	// RelDefinition renders equation-defining operators (=e=, =l=, =g=).
	// Only the root node of an equation definition may use it.
	RelDefinition
)

// Renderer turns expression trees and symbol state into statement text.
// MaxStatementLen above zero makes long logical statements split into
// incrementally-combined physical statements.
type Renderer struct {
	MaxStatementLen int
}

// bareLabel matches labels that need no quoting in the target syntax.
var bareLabel = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Label quotes an element label when it contains characters significant
// to the statement syntax.
func Label(label string) string {
	if bareLabel.MatchString(label) {
		return label
	}
	return "'" + strings.ReplaceAll(label, "'", "''") + "'"
}

// Num formats a numeric value, substituting engine literals for the
// extended sentinels.
func Num(v float64) string {
	if s := algebra.SpecialName(v); s != "" {
		return s
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func opToken(op algebra.Op) string {
	switch op {
	case algebra.OpAdd:
		return "+"
	case algebra.OpSub:
		return "-"
	case algebra.OpMul:
		return "*"
	case algebra.OpDiv:
		return "/"
	case algebra.OpPow:
		return "**"
	case algebra.OpAnd:
		return "and"
	case algebra.OpOr:
		return "or"
	}
	return "?"
}

func relToken(op algebra.Op, ctx RelContext) (string, error) {
	if ctx == RelDefinition {
		switch op {
		case algebra.OpEq:
			return "=e=", nil
		case algebra.OpLe:
			return "=l=", nil
		case algebra.OpGe:
			return "=g=", nil
		case algebra.OpNe:
			return "=n=", nil
		}
		return "", &moderr.AmbiguousEquationError{Detail: "relational operator cannot define an equation"}
	}
	switch op {
	case algebra.OpEq:
		return "=", nil
	case algebra.OpNe:
		return "<>", nil
	case algebra.OpLe:
		return "<=", nil
	case algebra.OpGe:
		return ">=", nil
	}
	return "", &moderr.AmbiguousEquationError{Detail: "not a relational operator"}
}

func aggKeyword(op algebra.Op) string {
	switch op {
	case algebra.OpSum:
		return "sum"
	case algebra.OpProd:
		return "prod"
	case algebra.OpSmin:
		return "smin"
	case algebra.OpSmax:
		return "smax"
	}
	return "sum"
}

// indexText renders a canonical index between parentheses, or "" for
// scalars. Free slots spell the set (or alias) name as referenced, with
// any lag/lead displacement; fixed slots spell the pinned label.
func indexText(ci algebra.CanonicalIndex) string {
	if len(ci) == 0 {
		return ""
	}
	parts := make([]string, len(ci))
	for i, slot := range ci {
		if slot.Kind == algebra.SlotFixed {
			parts[i] = Label(slot.Label)
			continue
		}
		parts[i] = slot.Set.Name()
		if slot.Offset > 0 {
			parts[i] += "+" + strconv.Itoa(slot.Offset)
		} else if slot.Offset < 0 {
			parts[i] += strconv.Itoa(slot.Offset)
		}
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// frame is one entry of the explicit post-order walk stack.
type frame struct {
	e       algebra.Expr
	ctx     RelContext
	visited bool
}

// ExprString renders a tree in deferred mode. relCtx applies to the root
// node only; everything below it is boolean territory.
func (r *Renderer) ExprString(e algebra.Expr, relCtx RelContext) (string, error) {
	if !e.Valid() {
		return "", &moderr.AmbiguousEquationError{Detail: "cannot render an invalid expression"}
	}

	results := map[int32]string{}
	key := func(x algebra.Expr) int32 { return x.ID() }

	stack := []frame{{e: e, ctx: relCtx}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		n := f.e.Node()

		if !f.visited {
			f.visited = true
			// Children always render in boolean context; only the root
			// keeps the caller's relational context.
			if n.Left.Valid() {
				stack = append(stack, frame{e: n.Left, ctx: RelBoolean})
			}
			if n.Right.Valid() {
				stack = append(stack, frame{e: n.Right, ctx: RelBoolean})
			}
			for _, ai := range n.Over {
				if ai.Cond.Valid() {
					stack = append(stack, frame{e: ai.Cond, ctx: RelBoolean})
				}
			}
			continue
		}

		stack = stack[:len(stack)-1]
		text, err := renderNode(n, f.ctx, results, key)
		if err != nil {
			return "", err
		}
		results[key(f.e)] = text
	}

	return results[key(e)], nil
}

func renderNode(n algebra.NodeView, ctx RelContext, results map[int32]string, key func(algebra.Expr) int32) (string, error) {
	switch n.Kind {
	case algebra.NodeLiteral:
		return Num(n.Lit), nil

	case algebra.NodeRef:
		return n.Sym.Name() + indexText(n.Index), nil

	case algebra.NodeAttr:
		return n.Sym.Name() + "." + n.Attr.Suffix() + indexText(n.Index), nil

	case algebra.NodeBinary:
		l := results[key(n.Left)]
		rr := results[key(n.Right)]
		return "(" + l + " " + opToken(n.Op) + " " + rr + ")", nil

	case algebra.NodeUnary:
		inner := results[key(n.Left)]
		if n.Op == algebra.OpNot {
			return "(not " + inner + ")", nil
		}
		return "(-" + inner + ")", nil

	case algebra.NodeRelation:
		tok, err := relToken(n.Op, ctx)
		if err != nil {
			return "", err
		}
		l := results[key(n.Left)]
		rr := results[key(n.Right)]
		if ctx == RelDefinition {
			return l + " " + tok + " " + rr, nil
		}
		return "(" + l + " " + tok + " " + rr + ")", nil

	case algebra.NodeAggregation:
		body := results[key(n.Left)]
		idx, err := aggIndexText(n.Over, results, key)
		if err != nil {
			return "", err
		}
		return aggKeyword(n.Op) + "(" + idx + ", " + body + ")", nil

	case algebra.NodeCondition:
		val := results[key(n.Left)]
		cond := results[key(n.Right)]
		return "(" + val + ")$(" + cond + ")", nil

	case algebra.NodeOrd:
		return "ord(" + n.Over[0].Set.Name() + ")", nil

	case algebra.NodeCard:
		return "card(" + n.Over[0].Set.Name() + ")", nil
	}
	return "", fmt.Errorf("unknown node kind %d", n.Kind)
}

// aggIndexText renders the free indices of an aggregation, each with its
// optional dollar filter.
func aggIndexText(over []algebra.AggIndex, results map[int32]string, key func(algebra.Expr) int32) (string, error) {
	parts := make([]string, len(over))
	for i, ai := range over {
		p := ai.Set.Name()
		if ai.Cond.Valid() {
			p += "$(" + results[key(ai.Cond)] + ")"
		}
		parts[i] = p
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, ",") + ")", nil
}
