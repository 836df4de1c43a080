package tidy

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a numeric cell or the "no data" sentinel. The zero Value is the
// sentinel, so a freshly allocated column reads as missing rather than 0.
type Value struct {
	v  float64
	ok bool
}

// Of wraps a number. NaN and infinities are not data and become the sentinel.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Missing returns the sentinel.
func Missing() Value {
	return Value{}
}

// IsMissing reports whether v is the sentinel.
func (v Value) IsMissing() bool {
	return !v.ok
}

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// OrElse returns the number, or def for the sentinel.
func (v Value) OrElse(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.v
}

// String formats present values with the shortest exact representation and the
// sentinel as "NA".
func (v Value) String() string {
	if !v.ok {
		return "NA"
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}

// MarshalJSON encodes the sentinel as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes null as the sentinel.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Of(f)
	return nil
}
