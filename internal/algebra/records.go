// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import (
	"sort"
	"strings"

	"github.com/vk/optalg/internal/moderr"
)

// keySep joins domain-element labels into a record-store key. The unit
// separator cannot occur in a valid label.
const keySep = "\x1f"

func tupleKey(labels []string) string { return strings.Join(labels, keySep) }

func splitKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, keySep)
}

func quoteLabel(label string) string { return "'" + label + "'" }

// validateTuple checks one record tuple against a declared domain. The
// container lock must be held.
func validateTuple(sym Symbol, labels []string) error {
	domain := sym.Domain()
	if len(labels) != len(domain) {
		return &moderr.DimensionalityError{Symbol: sym.Name(), Want: len(domain), Got: len(labels)}
	}
	for pos, label := range labels {
		ds := domain[pos].baseSet()
		if !ds.membersLocked(label) {
			return &moderr.DomainViolationError{
				Symbol:   sym.Name(),
				Position: pos,
				Detail:   "element " + quoteLabel(label) + " is not a member of set " + quoteLabel(ds.Name()),
			}
		}
	}
	return nil
}

// sortedKeys returns record-store keys in lexicographic tuple order, the
// order every record listing and rendering uses. Determinism requirement:
// two identical stores must always list identically.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParameterRecord is one sparse entry of a parameter listing.
type ParameterRecord struct {
	Keys  []string
	Value float64
}

// Attributes is the fixed 5-field record every variable and equation tuple
// maps to.
type Attributes struct {
	Level    float64
	Marginal float64
	Lower    float64
	Upper    float64
	Scale    float64
}

// AttributeRecord is one sparse entry of a variable or equation listing.
type AttributeRecord struct {
	Keys []string
	Attributes
}

// Attr selects one field of an attribute record in an expression or an
// assignment target.
type Attr uint8

const (
	AttrLevel Attr = iota
	AttrMarginal
	AttrLower
	AttrUpper
	AttrScale
)

// Suffix returns the engine suffix for the attribute.
func (a Attr) Suffix() string {
	switch a {
	case AttrLevel:
		return "l"
	case AttrMarginal:
		return "m"
	case AttrLower:
		return "lo"
	case AttrUpper:
		return "up"
	case AttrScale:
		return "scale"
	}
	return "?"
}

// rowsToTuples normalizes a nested-sequence record representation:
// each row is dim label strings followed by width numeric columns.
func rowsToTuples(sym Symbol, rows [][]any, width int) ([][]string, [][]float64, error) {
	dim := sym.Dim()
	tuples := make([][]string, 0, len(rows))
	values := make([][]float64, 0, len(rows))
	for _, row := range rows {
		if len(row) != dim+width {
			return nil, nil, &moderr.DimensionalityError{Symbol: sym.Name(), Want: dim + width, Got: len(row)}
		}
		labels := make([]string, dim)
		for i := 0; i < dim; i++ {
			s, ok := row[i].(string)
			if !ok {
				return nil, nil, &moderr.DomainViolationError{
					Symbol:   sym.Name(),
					Position: i,
					Detail:   "record tuple components must be element labels",
				}
			}
			labels[i] = s
		}
		vals := make([]float64, width)
		for i := 0; i < width; i++ {
			v, err := toFloat(row[dim+i])
			if err != nil {
				return nil, nil, &moderr.DomainViolationError{
					Symbol: sym.Name(),
					Detail: "record value column " + quoteLabel(sym.Name()) + " is not numeric",
				}
			}
			vals[i] = normalizeValue(v)
		}
		tuples = append(tuples, labels)
		values = append(values, vals)
	}
	return tuples, values, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, &moderr.DomainViolationError{Detail: "not a numeric value"}
	}
}
