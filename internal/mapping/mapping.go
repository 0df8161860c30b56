// Package mapping decides which spreadsheet column holds which catalog field.
package mapping

import (
	"fmt"
	"sort"
	"strings"
)

// Field is a catalog field a column can be mapped to.
type Field string

const (
	FieldName         Field = "name"
	FieldCode         Field = "code"
	FieldPrice        Field = "price"
	FieldDescription  Field = "description"
	FieldCategory     Field = "category"
	FieldManufacturer Field = "manufacturer"
	FieldLocation     Field = "location"
	FieldMaterials    Field = "materials"
	FieldDimensions   Field = "dimensions"
)

// Fields lists every mappable field in priority order. When two fields claim the same
// column the earlier one keeps it.
var Fields = []Field{
	FieldName,
	FieldCode,
	FieldPrice,
	FieldDescription,
	FieldCategory,
	FieldManufacturer,
	FieldLocation,
	FieldMaterials,
	FieldDimensions,
}

var wireKeys = map[Field]string{
	FieldName:         "nome",
	FieldCode:         "codigo",
	FieldPrice:        "preco",
	FieldDescription:  "descricao",
	FieldCategory:     "categoria",
	FieldManufacturer: "fabricante",
	FieldLocation:     "local",
	FieldMaterials:    "materiais",
	FieldDimensions:   "dimensoes",
}

// WireKey is the key used for f in inference responses.
func (f Field) WireKey() string { return wireKeys[f] }

// FieldForKey resolves an inference response key.
func FieldForKey(key string) (Field, bool) {
	for f, k := range wireKeys {
		if k == key {
			return f, true
		}
	}
	return "", false
}

// Mapping assigns column letters to fields. A field without an entry is unmapped.
type Mapping map[Field]string

// Column returns the letter mapped to f, or "".
func (m Mapping) Column(f Field) string { return m[f] }

// Has reports whether f is mapped.
func (m Mapping) Has(f Field) bool { return m[f] != "" }

// HasIdentity reports whether the mapping can name a product at all.
func (m Mapping) HasIdentity() bool { return m.Has(FieldName) || m.Has(FieldCode) }

// Clone copies m.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for f, c := range m {
		out[f] = c
	}
	return out
}

// Columns lists the mapped column letters.
func (m Mapping) Columns() []string {
	cols := make([]string, 0, len(m))
	for _, c := range m {
		if c != "" {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	return cols
}

func (m Mapping) String() string {
	parts := make([]string, 0, len(m))
	for _, f := range Fields {
		if c := m[f]; c != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", f, c))
		}
	}
	return strings.Join(parts, " ")
}

// Layout is a known column arrangement.
type Layout struct {
	Mapping Mapping
	// Quantity is the stock quantity column, which is not a mapped field.
	Quantity string
}

// DefaultLayout is the arrangement used by most supplier sheets and the fallback for
// every failed detection.
func DefaultLayout() Layout {
	return Layout{
		Mapping: Mapping{
			FieldName:         "A",
			FieldLocation:     "B",
			FieldManufacturer: "C",
			FieldCode:         "F",
			FieldDescription:  "G",
			FieldPrice:        "L",
		},
		Quantity: "E",
	}
}

// Source says where a mapping came from.
type Source string

const (
	SourceFixed     Source = "fixed"
	SourceHeuristic Source = "heuristic"
	SourceInferred  Source = "inferred"
	SourceDefault   Source = "default"
)

// Result is a resolved mapping plus how it was obtained.
type Result struct {
	Mapping Mapping
	Source  Source
	// Quantity is the stock quantity column, when one is known.
	Quantity string
	// HeaderRow is the sheet row holding column titles, 0 when none was found.
	HeaderRow int
	// Fallback is set when a requested strategy failed and the default layout was used.
	Fallback bool
	Reason   string
}

// Strategy selects how Map resolves columns.
type Strategy string

const (
	StrategyAuto      Strategy = "auto"
	StrategyFixed     Strategy = "fixed"
	StrategyHeuristic Strategy = "heuristic"
	StrategyInferred  Strategy = "inferred"
)

// ParseStrategy accepts a strategy name, defaulting "" to auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyFixed:
		return StrategyFixed, nil
	case StrategyHeuristic:
		return StrategyHeuristic, nil
	case StrategyInferred:
		return StrategyInferred, nil
	}
	return "", fmt.Errorf("unknown mapping strategy %q", s)
}
