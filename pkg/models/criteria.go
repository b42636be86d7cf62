package models

// SearchCriteria is the structured output of the query interpreter, consumed
// by the contact repository's Search operation. A zero-value criteria means
// "no filter": return all of the user's contacts.
type SearchCriteria struct {
	Filter *Predicate `json:"filter,omitempty"`
	Sort   *SortSpec  `json:"sort,omitempty"`
}

// IsEmpty reports whether the criteria applies no filtering and no ordering.
func (c SearchCriteria) IsEmpty() bool {
	return c.Filter == nil && c.Sort == nil
}

// PredicateKind enumerates the closed set of predicate node kinds. Anything
// outside this set is ignored during SQL translation rather than rejected,
// so a partially malformed interpreter result never breaks search.
type PredicateKind string

const (
	PredicateAnd      PredicateKind = "and"
	PredicateOr       PredicateKind = "or"
	PredicateEq       PredicateKind = "eq"
	PredicateContains PredicateKind = "contains"
	PredicateGte      PredicateKind = "gte"
	PredicateLte      PredicateKind = "lte"
)

// Predicate is one node in the boolean filter tree. Leaf kinds (eq, contains,
// gte, lte) use Field and Value; branch kinds (and, or) use Children.
type Predicate struct {
	Kind     PredicateKind `json:"kind"`
	Field    string        `json:"field,omitempty"`
	Value    string        `json:"value,omitempty"`
	Children []Predicate   `json:"children,omitempty"`
}

// SortSpec orders search results by one field.
type SortSpec struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// Searchable contact fields. The gte/lte kinds only make sense for
// created_at; the translator enforces that.
const (
	SearchFieldName      = "name"
	SearchFieldEmail     = "email"
	SearchFieldCompany   = "company"
	SearchFieldTitle     = "title"
	SearchFieldIndustry  = "industry"
	SearchFieldCreatedAt = "created_at"
)

var searchableFields = map[string]bool{
	SearchFieldName:      true,
	SearchFieldEmail:     true,
	SearchFieldCompany:   true,
	SearchFieldTitle:     true,
	SearchFieldIndustry:  true,
	SearchFieldCreatedAt: true,
}

// IsSearchableField reports whether the field may appear in a predicate or
// sort specification.
func IsSearchableField(field string) bool {
	return searchableFields[field]
}
