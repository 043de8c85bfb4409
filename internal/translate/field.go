// Package translate maps the local, loosely-typed field model onto the remote index schema.
package translate

import (
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/field"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

var dataTypes = map[field.Type]schema.DataType{
	field.Text:     schema.String,
	field.Float:    schema.Double,
	field.Double:   schema.Double,
	field.Long:     schema.Int64,
	field.Int:      schema.Int32,
	field.Number:   schema.Int32,
	field.DateTime: schema.DateTimeOffset,
}

// DataType maps a semantic type to its remote data type.
// Coarse date types and unknown types are rejected.
func DataType(name string, ft field.Type) (schema.DataType, error) {
	dt, ok := dataTypes[ft]
	if !ok {
		return "", &domain.UnsupportedTypeError{Field: name, Type: string(ft)}
	}
	return dt, nil
}

// TranslateField converts a field declaration into a remote field.
// String fields are searchable and carry an analyzer: the descriptor's hint,
// or defaultAnalyzer when the hint is empty.
func TranslateField(d field.Descriptor, defaultAnalyzer string) (schema.Field, error) {
	if err := ValidateFieldName(d.Name()); err != nil {
		return schema.Field{}, err
	}
	dt, err := DataType(d.Name(), d.Type())
	if err != nil {
		return schema.Field{}, err
	}

	name := SanitizeFieldName(d.Name())
	if dt != schema.String {
		return schema.NewField(name, dt, false, d.Sortable(), ""), nil
	}

	analyzer := d.Analyzer()
	if analyzer == "" {
		analyzer = defaultAnalyzer
	}
	return schema.NewField(name, dt, true, d.Sortable(), TranslateAnalyzer(analyzer)), nil
}
