package field

import "fmt"

// Type is the semantic type declared for a source field.
type Type string

// Semantic field types accepted from field declarations.
const (
	Text     Type = "text"
	Int      Type = "int"
	Number   Type = "number"
	Long     Type = "long"
	Float    Type = "float"
	Double   Type = "double"
	DateTime Type = "datetime"

	// Coarse date granularities. They are declared by some sources but
	// have no remote equivalent.
	DateYear   Type = "date-year"
	DateMonth  Type = "date-month"
	DateDay    Type = "date-day"
	DateHour   Type = "date-hour"
	DateMinute Type = "date-minute"
)

// IsCoarseDate reports whether t is a reduced-precision date type.
func (t Type) IsCoarseDate() bool {
	switch t {
	case DateYear, DateMonth, DateDay, DateHour, DateMinute:
		return true
	}
	return false
}

// Descriptor is an immutable field declaration read from the field source.
type Descriptor struct {
	name     string
	ftype    Type
	sortable bool
	analyzer string
}

// New validates and creates a Descriptor. Type support is checked during translation.
func New(name string, ft Type, sortable bool, analyzer string) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, fmt.Errorf("field name is required")
	}
	if len(name) > 128 {
		return Descriptor{}, fmt.Errorf("field name %q too long (max 128)", name)
	}
	if ft == "" {
		return Descriptor{}, fmt.Errorf("field %q: type is required", name)
	}
	return Descriptor{name: name, ftype: ft, sortable: sortable, analyzer: analyzer}, nil
}

// Reconstruct creates a Descriptor without validation (storage hydration).
func Reconstruct(name string, ft Type, sortable bool, analyzer string) Descriptor {
	return Descriptor{name: name, ftype: ft, sortable: sortable, analyzer: analyzer}
}

// Name returns the source field name.
func (d Descriptor) Name() string { return d.name }

// Type returns the semantic type.
func (d Descriptor) Type() Type { return d.ftype }

// Sortable reports whether the field must be sortable remotely.
func (d Descriptor) Sortable() bool { return d.sortable }

// Analyzer returns the analyzer hint, possibly empty or a legacy qualified name.
func (d Descriptor) Analyzer() string { return d.analyzer }
