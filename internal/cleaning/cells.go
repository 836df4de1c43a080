package cleaning

import (
	"math"
	"strconv"
	"strings"

	"gradtrends/domain/tidy"
)

// Cell spellings that mean "no data" in published tables.
var missingTokens = map[string]struct{}{
	"":    {},
	"nan": {},
	"na":  {},
	"n/a": {},
	"-":   {},
	".":   {},
	"--":  {},
}

// ParseCell converts a raw cell into a Value. Blank, placeholder and
// non-numeric cells are the sentinel; a literal 0 stays 0.
func ParseCell(cell string) tidy.Value {
	s := strings.TrimSpace(cell)
	if _, ok := missingTokens[strings.ToLower(s)]; ok {
		return tidy.Missing()
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return tidy.Missing()
	}
	return tidy.Of(f)
}

// maxYear bounds year cells; anything larger is a malformed cell, not a year.
const maxYear = 9999

// parseYear accepts integral years in [0, maxYear] such as "2001" or "2001.0".
// ok is false for anything else; blank reports whether the cell was empty.
func parseYear(cell string) (year int, ok bool, blank bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f > maxYear {
		return 0, false, false
	}
	return int(f), true, false
}
