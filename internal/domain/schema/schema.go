package schema

import (
	"fmt"
	"unicode"
)

// DataType is the remote field data type.
type DataType string

// Remote data types.
const (
	String         DataType = "String"
	Int32          DataType = "Int32"
	Int64          DataType = "Int64"
	Double         DataType = "Double"
	DateTimeOffset DataType = "DateTimeOffset"
)

// IsNumeric reports whether values of this type are stored as numbers.
func (t DataType) IsNumeric() bool {
	return t == Int32 || t == Int64 || t == Double || t == DateTimeOffset
}

// Mandatory field names and their fixed analyzer.
const (
	KeyFieldName  = "id"
	TypeFieldName = "x__IndexType"
	FixedAnalyzer = "whitespace"
)

// Field is one remote field specification.
type Field struct {
	name       string
	dataType   DataType
	key        bool
	searchable bool
	sortable   bool
	analyzer   string
}

// NewField creates a non-key remote field. analyzer is ignored for non-String types.
func NewField(name string, dt DataType, searchable, sortable bool, analyzer string) Field {
	if dt != String {
		analyzer = ""
	}
	return Field{name: name, dataType: dt, searchable: searchable, sortable: sortable, analyzer: analyzer}
}

// KeyField returns the mandatory key field.
func KeyField() Field {
	return Field{
		name: KeyFieldName, dataType: String,
		key: true, searchable: true, sortable: true, analyzer: FixedAnalyzer,
	}
}

// TypeField returns the mandatory type-discriminator field.
func TypeField() Field {
	return Field{name: TypeFieldName, dataType: String, searchable: true, analyzer: FixedAnalyzer}
}

// Name returns the remote field name.
func (f Field) Name() string { return f.name }

// DataType returns the remote data type.
func (f Field) DataType() DataType { return f.dataType }

// IsKey reports whether the field is the document key.
func (f Field) IsKey() bool { return f.key }

// Searchable reports whether the field is full-text searchable.
func (f Field) Searchable() bool { return f.searchable }

// Sortable reports whether the field is sortable.
func (f Field) Sortable() bool { return f.sortable }

// Analyzer returns the analyzer id; empty for non-String fields.
func (f Field) Analyzer() string { return f.analyzer }

// Schema is the immutable remote index schema. Mandatory fields come first.
type Schema struct {
	name   string
	fields []Field
}

// New validates fields and builds a Schema with the key and type-discriminator
// fields prepended. Callers must not pass the mandatory fields themselves.
func New(name string, fields []Field) (Schema, error) {
	if name == "" {
		return Schema{}, fmt.Errorf("index name is required")
	}

	all := make([]Field, 0, len(fields)+2)
	all = append(all, KeyField(), TypeField())
	all = append(all, fields...)

	seen := make(map[string]bool, len(all))
	for _, f := range all {
		if f.name == "" {
			return Schema{}, fmt.Errorf("field name is required")
		}
		if !LetterLeading(f.name) {
			return Schema{}, fmt.Errorf("field name %q must start with a letter", f.name)
		}
		if seen[f.name] {
			return Schema{}, fmt.Errorf("duplicate field name %q", f.name)
		}
		seen[f.name] = true
	}

	return Schema{name: name, fields: all}, nil
}

// Name returns the index identifier.
func (s Schema) Name() string { return s.name }

// Fields returns a copy of the ordered field list.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by remote name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f, true
		}
	}
	return Field{}, false
}

// LetterLeading reports whether s starts with a letter.
func LetterLeading(s string) bool {
	for _, r := range s {
		return unicode.IsLetter(r)
	}
	return false
}
