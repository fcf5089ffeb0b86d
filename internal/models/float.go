package models

import (
	"math"
	"strconv"
	"strings"
)

// Float is a measurement that always encodes with a fractional part
// (0 encodes as 0.0), which is what the receiver firmware has been fed since
// the first bridge.
type Float float64

// Round2 rounds v to two decimals from its exact binary value, breaking
// exact ties to even.
func Round2(v float64) Float {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return Float(f)
}

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("0.0"), nil
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return []byte(s), nil
}
