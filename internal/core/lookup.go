package core

import "github.com/shopspring/decimal"

// Lookup is a read-only table owned by the caller.
type Lookup[V any] interface {
	Get(key string) (V, bool)
}

// MapLookup adapts a plain map to Lookup. A nil map is an empty table.
type MapLookup[V any] map[string]V

func (m MapLookup[V]) Get(key string) (V, bool) {
	v, ok := m[key]
	return v, ok
}

type (
	// Classification maps a category code to its DRE class.
	Classification struct {
		ClassName string `json:"className" yaml:"className"`
	}

	// AccountInfo is the per-account metadata the report needs.
	AccountInfo struct {
		Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
		OpeningBalance decimal.Decimal `json:"openingBalance" yaml:"openingBalance"`
	}

	// Reference bundles the lookup tables a report is built against.
	Reference struct {
		Classes     MapLookup[Classification]
		Departments MapLookup[string]
		Accounts    MapLookup[AccountInfo]
	}
)

// ClassOf returns the DRE class for a category code, falling back to ClassOther.
func ClassOf(classes Lookup[Classification], code string) string {
	if classes == nil {
		return ClassOther
	}
	if c, ok := classes.Get(code); ok && c.ClassName != "" {
		return c.ClassName
	}
	return ClassOther
}

// AccountIDs returns the ids of every known account.
func (r Reference) AccountIDs() []string {
	ids := make([]string, 0, len(r.Accounts))
	for id := range r.Accounts {
		ids = append(ids, id)
	}
	return ids
}
