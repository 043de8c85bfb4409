package translate

import (
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/field"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// Translator converts source records into remote documents.
// It is immutable once built and safe for concurrent use.
type Translator struct {
	types map[string]schema.DataType // sanitized name -> remote type
}

// NewTranslator indexes the declared field types by sanitized name.
// groups is keyed by logical type; the same field declared by several types must agree.
func NewTranslator(groups map[string][]field.Descriptor) (*Translator, error) {
	types := make(map[string]schema.DataType)
	for group, descs := range groups {
		for _, d := range descs {
			if err := ValidateFieldName(d.Name()); err != nil {
				return nil, fmt.Errorf("type %q: %w", group, err)
			}
			dt, err := DataType(d.Name(), d.Type())
			if err != nil {
				return nil, fmt.Errorf("type %q: %w", group, err)
			}
			name := SanitizeFieldName(d.Name())
			if prev, ok := types[name]; ok && prev != dt {
				return nil, fmt.Errorf("field %q declared as %s and %s: %w",
					d.Name(), prev, dt, domain.ErrInvalidSchema)
			}
			types[name] = dt
		}
	}
	return &Translator{types: types}, nil
}

// Document builds the remote document for rec.
// Undeclared fields are kept as strings; the key and type fields always win.
// Source fields already in escaped form are dropped so they cannot shadow a reserved field.
func (t *Translator) Document(rec document.Record) (document.Document, error) {
	out := make(map[string]string, len(rec.Fields())+2)

	for name, raw := range rec.Fields() {
		if IsEscapedName(name) {
			continue
		}
		remote := SanitizeFieldName(name)
		if remote == schema.KeyFieldName || remote == schema.TypeFieldName {
			continue
		}
		dt, ok := t.types[remote]
		if !ok {
			dt = schema.String
		}
		if raw == "" && dt.IsNumeric() {
			continue
		}
		v, err := EncodeValue(dt, raw)
		if err != nil {
			return document.Document{}, fmt.Errorf("field %q: %w", name, err)
		}
		out[remote] = v
	}

	out[schema.KeyFieldName] = rec.ID()
	out[schema.TypeFieldName] = rec.Type()

	return document.New(rec.ID(), out), nil
}
