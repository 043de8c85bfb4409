package document

import (
	"fmt"
	"maps"
	"strings"
)

// MaxIDLength bounds record identifiers; they become part of remote keys.
const MaxIDLength = 256

// TypeSeparator may not appear in a type. The remote type tag is split on it.
const TypeSeparator = ","

// Record is one raw item yielded by the document source.
type Record struct {
	id     string
	typ    string
	fields map[string]string
}

// NewRecord validates and creates a Record. Field values are copied.
func NewRecord(id, typ string, fields map[string]string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record ID is required")
	}
	if len(id) > MaxIDLength {
		return Record{}, fmt.Errorf("record ID too long (max %d)", MaxIDLength)
	}
	if typ == "" {
		return Record{}, fmt.Errorf("record %q: type is required", id)
	}
	if err := ValidateType(typ); err != nil {
		return Record{}, fmt.Errorf("record %q: %w", id, err)
	}
	return Record{id: id, typ: typ, fields: maps.Clone(fields)}, nil
}

// ValidateType rejects types the remote tag index cannot match exactly:
// those containing TypeSeparator or surrounding whitespace, which the engine trims.
func ValidateType(typ string) error {
	if strings.Contains(typ, TypeSeparator) {
		return fmt.Errorf("type %q must not contain %q", typ, TypeSeparator)
	}
	if strings.TrimSpace(typ) != typ {
		return fmt.Errorf("type %q must not have surrounding whitespace", typ)
	}
	return nil
}

// ID returns the record identifier.
func (r Record) ID() string { return r.id }

// Type returns the logical type of the record.
func (r Record) Type() string { return r.typ }

// Fields returns the raw field values keyed by source field name.
func (r Record) Fields() map[string]string { return r.fields }

// Document is a translated record ready for submission: sanitized names, encoded values.
type Document struct {
	key    string
	fields map[string]string
}

// New creates a Document. fields is owned by the Document afterwards.
func New(key string, fields map[string]string) Document {
	return Document{key: key, fields: fields}
}

// Key returns the implicit document key (the record ID).
func (d Document) Key() string { return d.key }

// Fields returns the remote field values.
func (d Document) Fields() map[string]string { return d.fields }
