package source

import (
	"fmt"
	"strings"

	"gradtrends/domain/core"
)

// CollisionPolicy decides what happens when two headers of one source parse to
// the same institution name.
type CollisionPolicy string

const (
	CollisionReject   CollisionPolicy = "reject"    // Fail the source
	CollisionAppend   CollisionPolicy = "append"    // Concatenate the series
	CollisionLastWins CollisionPolicy = "last_wins" // Later column replaces earlier
)

// Valid reports whether p is a known policy. The empty policy means reject.
func (p CollisionPolicy) Valid() bool {
	switch p {
	case "", CollisionReject, CollisionAppend, CollisionLastWins:
		return true
	}
	return false
}

// Roles carried by financial-aid sources; they also name the category sets.
const (
	RolePublic  = "public"
	RolePrivate = "private"
)

// Spec is the declared, versioned parsing rule for one published table.
type Spec struct {
	ID        core.SourceID   `yaml:"id" json:"id"`
	Version   int             `yaml:"version" json:"version"`
	Statistic string          `yaml:"statistic" json:"statistic"`
	Role      string          `yaml:"role,omitempty" json:"role,omitempty"`
	PrefixLen int             `yaml:"prefix_len" json:"prefix_len"`
	SuffixLen int             `yaml:"suffix_len" json:"suffix_len"`
	Collision CollisionPolicy `yaml:"collision,omitempty" json:"collision,omitempty"`

	// File location, used by the spreadsheet adapter only
	File      string `yaml:"file,omitempty" json:"file,omitempty"`
	Sheet     string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	HeaderRow int    `yaml:"header_row,omitempty" json:"header_row,omitempty"`
}

// Policy returns the effective collision policy.
func (s Spec) Policy() CollisionPolicy {
	if s.Collision == "" {
		return CollisionReject
	}
	return s.Collision
}

// Validate checks the rule is usable before any table is read.
func (s Spec) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("source id is required")
	}
	if strings.TrimSpace(s.Statistic) == "" {
		return fmt.Errorf("source %s: statistic is required", s.ID)
	}
	if s.PrefixLen < 0 || s.SuffixLen < 0 {
		return fmt.Errorf("source %s: prefix_len and suffix_len must be non-negative", s.ID)
	}
	if s.HeaderRow < 0 {
		return fmt.Errorf("source %s: header_row must be non-negative", s.ID)
	}
	if !s.Collision.Valid() {
		return fmt.Errorf("source %s: unknown collision policy %q", s.ID, s.Collision)
	}
	return nil
}

func (s Spec) String() string {
	return fmt.Sprintf("%s@v%d(%s prefix=%d suffix=%d)", s.ID, s.Version, s.Statistic, s.PrefixLen, s.SuffixLen)
}
