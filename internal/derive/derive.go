// Package derive adds secondary metrics computed row by row from merged columns.
//
// A derived value that cannot be computed (missing operand, zero denominator,
// out-of-range ratio, NaN) is the missing sentinel, never an error. Errors are
// reserved for structural problems: absent input columns and name clashes.
package derive

import (
	"fmt"
	"math"

	"gradtrends/domain/tidy"
)

// Column names produced by the merge of the default sources and by the built-in
// formulas.
const (
	Applicants      = "applicants"
	Admitted        = "admitted"
	GradRate        = "grad_rate"
	Population      = "population"
	FinAidPrivate   = "fin_aid_private"
	FinAidPublic    = "fin_aid_public"
	PercentAccepted = "percent_accepted"
	FinAidColumn    = "fin_aid"
	FinAidRatioCol  = "fin_aid_ratio"
)

// Formula computes one output column from a fixed list of input columns.
type Formula struct {
	Name   string
	Inputs []string
	// Expr receives one value per input, in Inputs order.
	Expr func(in []tidy.Value) tidy.Value
	// Valid, when set, turns present results it rejects into the sentinel.
	Valid func(v float64) bool
}

// Compute returns a copy of table with f's column appended. Keys and row order
// are unchanged.
func Compute(table *tidy.Table, f Formula) (*tidy.Table, error) {
	if f.Name == "" || f.Expr == nil {
		return nil, fmt.Errorf("formula needs a name and an expression")
	}
	if err := table.RequireColumns(f.Inputs...); err != nil {
		return nil, fmt.Errorf("derive %s: %w", f.Name, err)
	}

	inputs := make([][]tidy.Value, len(f.Inputs))
	for i, name := range f.Inputs {
		inputs[i], _ = table.Column(name)
	}

	out := make([]tidy.Value, table.Len())
	args := make([]tidy.Value, len(f.Inputs))
	for row := range out {
		for i := range inputs {
			args[i] = inputs[i][row]
		}
		out[row] = f.apply(args)
	}

	next, err := table.WithColumn(f.Name, "", out)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", f.Name, err)
	}
	return next, nil
}

// ComputeAll applies formulas in order; later formulas may read earlier outputs.
func ComputeAll(table *tidy.Table, formulas ...Formula) (*tidy.Table, error) {
	var err error
	for _, f := range formulas {
		table, err = Compute(table, f)
		if err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (f Formula) apply(args []tidy.Value) tidy.Value {
	v, ok := f.Expr(args).Float()
	if !ok {
		return tidy.Missing()
	}
	if f.Valid != nil && !f.Valid(v) {
		return tidy.Missing()
	}
	return tidy.Of(v)
}

// ratio is num/den*100, or the sentinel when either side is missing or den is 0.
func ratio(num, den tidy.Value) tidy.Value {
	n, ok := num.Float()
	if !ok {
		return tidy.Missing()
	}
	d, ok := den.Float()
	if !ok || d == 0 {
		return tidy.Missing()
	}
	return tidy.Of(n / d * 100)
}

// NewPercentAccepted is admitted / applicants * 100.
func NewPercentAccepted() Formula {
	return Formula{
		Name:   PercentAccepted,
		Inputs: []string{Admitted, Applicants},
		Expr: func(in []tidy.Value) tidy.Value {
			return ratio(in[0], in[1])
		},
	}
}

// NewFinAid is |fin_aid_private - fin_aid_public| and needs both sides.
func NewFinAid() Formula {
	return Formula{
		Name:   FinAidColumn,
		Inputs: []string{FinAidPrivate, FinAidPublic},
		Expr: func(in []tidy.Value) tidy.Value {
			priv, okPriv := in[0].Float()
			pub, okPub := in[1].Float()
			if !okPriv || !okPub {
				return tidy.Missing()
			}
			return tidy.Of(math.Abs(priv - pub))
		},
	}
}

// NewFinAidCoalesced behaves like NewFinAid when both sides are present and
// otherwise takes whichever side is present.
func NewFinAidCoalesced() Formula {
	f := NewFinAid()
	f.Expr = func(in []tidy.Value) tidy.Value {
		priv, okPriv := in[0].Float()
		pub, okPub := in[1].Float()
		switch {
		case okPriv && okPub:
			return tidy.Of(math.Abs(priv - pub))
		case okPriv:
			return tidy.Of(math.Abs(priv))
		case okPub:
			return tidy.Of(math.Abs(pub))
		}
		return tidy.Missing()
	}
	return f
}

// FinAidMode selects how the two financial-aid columns are combined.
type FinAidMode string

const (
	FinAidStrict   FinAidMode = "strict"
	FinAidCoalesce FinAidMode = "coalesce"
)

// ParseFinAidMode accepts "" as strict.
func ParseFinAidMode(s string) (FinAidMode, error) {
	switch FinAidMode(s) {
	case "", FinAidStrict:
		return FinAidStrict, nil
	case FinAidCoalesce:
		return FinAidCoalesce, nil
	}
	return "", fmt.Errorf("unknown fin aid mode %q (want strict or coalesce)", s)
}

// Formula returns the fin_aid formula for the mode.
func (m FinAidMode) Formula() Formula {
	if m == FinAidCoalesce {
		return NewFinAidCoalesced()
	}
	return NewFinAid()
}

// RatioRule bounds fin_aid_ratio. Results at or above Max are invalid.
type RatioRule struct {
	Max float64 `json:"max" yaml:"max"`
}

// DefaultRatioRule rejects ratios of 100% and above.
func DefaultRatioRule() RatioRule {
	return RatioRule{Max: 100}
}

// NewFinAidRatio is fin_aid / population * 100 bounded by rule. Out-of-range
// values become the sentinel rather than being clamped.
func NewFinAidRatio(rule RatioRule) Formula {
	if rule.Max <= 0 {
		rule = DefaultRatioRule()
	}
	return Formula{
		Name:   FinAidRatioCol,
		Inputs: []string{FinAidColumn, Population},
		Expr: func(in []tidy.Value) tidy.Value {
			return ratio(in[0], in[1])
		},
		Valid: func(v float64) bool { return v < rule.Max },
	}
}

// Standard returns the derived columns for a table merged from the default
// sources: percent_accepted, fin_aid and fin_aid_ratio.
func Standard(mode FinAidMode, rule RatioRule) []Formula {
	return []Formula{
		NewPercentAccepted(),
		mode.Formula(),
		NewFinAidRatio(rule),
	}
}
