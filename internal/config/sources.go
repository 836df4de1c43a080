package config

import (
	"fmt"
	"os"

	"gradtrends/domain/core"
	"gradtrends/domain/source"
	"gradtrends/internal/errors"
	"gradtrends/internal/quality"

	"gopkg.in/yaml.v3"
)

// Catalogue is the declared set of sources, in merge order, plus the category
// override table.
type Catalogue struct {
	Version   int               `yaml:"version"`
	Sources   []source.Spec     `yaml:"sources"`
	Overrides quality.Overrides `yaml:"overrides,omitempty"`
}

// LoadSources reads a YAML catalogue from path.
func LoadSources(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "reading sources file %s", path)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a YAML catalogue.
func ParseSources(data []byte) (*Catalogue, error) {
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "parsing sources file")
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks every spec and that IDs are unique.
func (c *Catalogue) Validate() error {
	if len(c.Sources) == 0 {
		return errors.ConfigInvalid("no sources declared")
	}
	seen := make(map[core.SourceID]bool, len(c.Sources))
	for _, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return errors.ConfigInvalid(err.Error())
		}
		if seen[s.ID] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate source id %s", s.ID))
		}
		seen[s.ID] = true
	}
	for name, ov := range c.Overrides {
		if ov.Category == "" && !ov.Excluded {
			return errors.ConfigInvalid(fmt.Sprintf("override for %q sets neither category nor excluded", name))
		}
	}
	return nil
}

// Source returns the spec with id.
func (c *Catalogue) Source(id core.SourceID) (source.Spec, bool) {
	for _, s := range c.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return source.Spec{}, false
}

// Marshal encodes the catalogue back to YAML.
func (c *Catalogue) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// DefaultSources is the catalogue for the six published IPEDS tables: each
// table has two title rows above the header and its own boilerplate around
// the institution name. The order is the merge order.
func DefaultSources() *Catalogue {
	spec := func(id, file, statistic, role string, prefix, suffix int) source.Spec {
		return source.Spec{
			ID:        core.SourceID(id),
			Version:   1,
			Statistic: statistic,
			Role:      role,
			PrefixLen: prefix,
			SuffixLen: suffix,
			File:      file,
			HeaderRow: 2,
		}
	}
	return &Catalogue{
		Version: 1,
		Sources: []source.Spec{
			spec("applicants", "total_applicants.xlsx", "applicants", "", 3, 2),
			spec("grad_rate", "graduation_rates.xlsx", "grad_rate", "", 2, 6),
			spec("population", "student_population.xlsx", "population", "", 2, 6),
			spec("admitted", "total_admitted.xlsx", "admitted", "", 3, 2),
			spec("fin_aid_private", "financial_aid_private.xlsx", "fin_aid", source.RolePrivate, 8, 21),
			spec("fin_aid_public", "financial_aid_public.xlsx", "fin_aid", source.RolePublic, 8, 33),
		},
		Overrides: quality.Overrides{
			"University of Washington-Bothell Campus": {Excluded: true},
			"University of Washington-Tacoma Campus":  {Excluded: true},
		},
	}
}
