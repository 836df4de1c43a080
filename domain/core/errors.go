package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Source errors abort processing of the offending source
	ErrMalformedHeader = errors.New("malformed column header")
	ErrMalformedYear   = errors.New("malformed year cell")
	ErrNameCollision   = errors.New("institution name collision")
	ErrEmptySource     = errors.New("source table has no columns")

	// Merge errors
	ErrDuplicateKey    = errors.New("duplicate (institution, year) key")
	ErrColumnCollision = errors.New("column name collision")

	// Column errors
	ErrMissingRequiredColumn = errors.New("missing required column")
	ErrColumnLength          = errors.New("column length does not match table")
)

// NewMalformedHeaderError reports a header with too few tokens for its rule.
func NewMalformedHeaderError(header string, tokens, prefixLen, suffixLen int) error {
	return fmt.Errorf("%w: %q has %d tokens, need more than %d+%d", ErrMalformedHeader, header, tokens, prefixLen, suffixLen)
}

func NewMalformedYearError(row int, cell string) error {
	return fmt.Errorf("%w: row %d has %q", ErrMalformedYear, row, cell)
}

func NewNameCollisionError(name, first, second string) error {
	return fmt.Errorf("%w: %q parsed from both %q and %q", ErrNameCollision, name, first, second)
}

// NewDuplicateKeyError is the DuplicateKeyError raised when one record set
// carries the same (institution, year) twice.
func NewDuplicateKeyError(statistic, institution string, year int) error {
	return fmt.Errorf("%w: statistic %s has (%s, %d) more than once", ErrDuplicateKey, statistic, institution, year)
}

func NewColumnCollisionError(column, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrColumnCollision, column, reason)
}

func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrMissingRequiredColumn, column)
}

// NewSourceError tags err with the source it came from.
func NewSourceError(sourceID string, err error) error {
	return fmt.Errorf("source %s: %w", sourceID, err)
}

// Error checking helpers
func IsSourceError(err error) bool {
	return errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrMalformedYear) ||
		errors.Is(err, ErrNameCollision) ||
		errors.Is(err, ErrEmptySource)
}

func IsMergeError(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrColumnCollision)
}

func IsColumnError(err error) bool {
	return errors.Is(err, ErrMissingRequiredColumn) ||
		errors.Is(err, ErrColumnLength)
}
