// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package algebra

import "math"

// Extended numeric sentinels. The engine's record format reserves a band
// of doubles far above any ordinary model coefficient; keeping them as
// plain float64 values lets them flow through record stores, expression
// literals and the gtx container without a side channel, and without ever
// tripping host float exceptions (they are ordinary finite doubles here).
const (
	// Undef marks a value produced by an undefined operation.
	Undef float64 = 1.0e300
	// NA marks a value that is not available.
	NA float64 = 2.0e300
	// PosInf is the engine's positive infinity.
	PosInf float64 = 3.0e300
	// NegInf is the engine's negative infinity.
	NegInf float64 = 4.0e300
	// Eps is the engine's explicit zero: it stores as a record where an
	// absent tuple would read as implicit zero.
	Eps float64 = 5.0e300
)

// IsSpecial reports whether v is one of the extended numeric sentinels.
// math.Inf values count: they normalize to PosInf/NegInf on the way into
// a record store.
func IsSpecial(v float64) bool {
	switch v {
	case Undef, NA, PosInf, NegInf, Eps:
		return true
	}
	return math.IsInf(v, 0) || math.IsNaN(v)
}

// normalizeValue maps host float specials onto the sentinel band so that
// every stored value survives a write/read roundtrip bit-exactly.
func normalizeValue(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return PosInf
	case math.IsInf(v, -1):
		return NegInf
	case math.IsNaN(v):
		return Undef
	}
	return v
}

// SpecialName returns the engine literal for a sentinel, or "" when v is
// an ordinary value.
func SpecialName(v float64) string {
	switch normalizeValue(v) {
	case Undef:
		return "UNDF"
	case NA:
		return "NA"
	case PosInf:
		return "INF"
	case NegInf:
		return "-INF"
	case Eps:
		return "EPS"
	}
	return ""
}
