// Package cleaning turns published wide tables into per-institution series and
// flat records. Institution names are recovered from column headers by dropping a
// declared number of boilerplate tokens from each end.
package cleaning

import (
	"strings"

	"gradtrends/domain/core"
	"gradtrends/domain/source"
)

// ParseHeader drops prefixLen leading and suffixLen trailing whitespace tokens
// from header and joins the rest with single spaces. No other normalisation is
// applied: case, punctuation and diacritics are kept as published.
func ParseHeader(header string, prefixLen, suffixLen int) (string, error) {
	tokens := strings.Fields(header)
	if prefixLen < 0 || suffixLen < 0 || len(tokens) <= prefixLen+suffixLen {
		return "", core.NewMalformedHeaderError(header, len(tokens), prefixLen, suffixLen)
	}
	return strings.Join(tokens[prefixLen:len(tokens)-suffixLen], " "), nil
}

// HeaderRule is the token-count convention of one source.
type HeaderRule struct {
	PrefixLen int
	SuffixLen int
}

// RuleFor returns the header rule declared by spec.
func RuleFor(spec source.Spec) HeaderRule {
	return HeaderRule{PrefixLen: spec.PrefixLen, SuffixLen: spec.SuffixLen}
}

// Parse applies the rule to header.
func (r HeaderRule) Parse(header string) (string, error) {
	return ParseHeader(header, r.PrefixLen, r.SuffixLen)
}

// Names parses every value header of table, in column order. The first
// malformed header aborts with an error.
func (r HeaderRule) Names(table *source.RawTable) ([]string, error) {
	headers := table.ValueHeaders()
	names := make([]string, 0, len(headers))
	for _, h := range headers {
		name, err := r.Parse(h)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
