package tidy

import "sort"

// CategorySet is a named set of institutions. Sets are not required to be
// disjoint from one another.
type CategorySet struct {
	name    string
	order   []string
	members map[string]struct{}
}

// NewCategorySet builds a set; duplicate members are kept once.
func NewCategorySet(name string, members ...string) CategorySet {
	c := CategorySet{name: name, members: make(map[string]struct{}, len(members))}
	for _, m := range members {
		if _, ok := c.members[m]; ok {
			continue
		}
		c.members[m] = struct{}{}
		c.order = append(c.order, m)
	}
	return c
}

func (c CategorySet) Name() string { return c.name }
func (c CategorySet) Len() int     { return len(c.order) }

// Contains reports membership.
func (c CategorySet) Contains(institution string) bool {
	_, ok := c.members[institution]
	return ok
}

// Members returns members in insertion order.
func (c CategorySet) Members() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Overlap returns institutions present in both sets, sorted.
func (c CategorySet) Overlap(other CategorySet) []string {
	var both []string
	for _, m := range c.order {
		if other.Contains(m) {
			both = append(both, m)
		}
	}
	sort.Strings(both)
	return both
}

// Categories is an ordered collection of category sets keyed by name.
type Categories struct {
	order []string
	sets  map[string]CategorySet
}

// NewCategories collects sets; a later set with an existing name is merged into it.
func NewCategories(sets ...CategorySet) Categories {
	c := Categories{sets: make(map[string]CategorySet)}
	for _, s := range sets {
		c = c.With(s)
	}
	return c
}

// With returns a copy of c that includes s.
func (c Categories) With(s CategorySet) Categories {
	out := Categories{order: append([]string(nil), c.order...), sets: make(map[string]CategorySet, len(c.sets)+1)}
	for k, v := range c.sets {
		out.sets[k] = v
	}
	if existing, ok := out.sets[s.name]; ok {
		out.sets[s.name] = NewCategorySet(s.name, append(existing.Members(), s.Members()...)...)
		return out
	}
	out.order = append(out.order, s.name)
	out.sets[s.name] = s
	return out
}

// Get returns the set called name.
func (c Categories) Get(name string) (CategorySet, bool) {
	s, ok := c.sets[name]
	return s, ok
}

// Names returns set names in insertion order.
func (c Categories) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
