package index

import (
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	"github.com/kailas-cloud/indexsync/internal/translate"
)

const (
	// tokenSeparator splits whitespace-analyzed TAG values.
	tokenSeparator = " "
	// exactSeparator is the separator of the mandatory fields. Values never
	// contain it, so each value is one case-sensitive tag matched by equality.
	exactSeparator = document.TypeSeparator
)

// BuildDefinition maps a schema onto an FT index definition.
// The index LANGUAGE follows the default analyzer when the engine has a stemmer for it.
func BuildDefinition(keys Keys, s schema.Schema, defaultAnalyzer string) (*db.IndexDefinition, error) {
	b := db.NewIndex(keys.IndexName()).Prefix(keys.DocPrefix())

	if lang := stemmingLanguage(translate.CanonicalAnalyzer(defaultAnalyzer)); lang != "" {
		b.Language(lang)
	}

	for _, f := range s.Fields() {
		b.Field(indexField(f))
	}

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", keys.IndexName(), err)
	}
	return def, nil
}

func indexField(f schema.Field) db.IndexField {
	out := db.IndexField{Name: f.Name(), Sortable: f.Sortable()}

	if f.IsKey() || f.Name() == schema.TypeFieldName {
		out.Type = db.IndexFieldTag
		out.TagSeparator = exactSeparator
		out.TagCaseSensitive = true
		return out
	}

	if f.DataType().IsNumeric() {
		out.Type = db.IndexFieldNumeric
		return out
	}

	if !f.Searchable() {
		out.Type = db.IndexFieldTag
		return out
	}

	switch translate.CanonicalAnalyzer(f.Analyzer()) {
	case translate.AnalyzerKeyword:
		out.Type = db.IndexFieldTag
	case translate.AnalyzerWhitespace:
		out.Type = db.IndexFieldTag
		out.TagSeparator = tokenSeparator
	case translate.AnalyzerSimple:
		out.Type = db.IndexFieldText
		out.NoStem = true
	default:
		out.Type = db.IndexFieldText
	}
	return out
}

// stemmingLanguage returns the LANGUAGE for a canonical analyzer id, or "".
func stemmingLanguage(id string) string {
	if !translate.IsLanguageAnalyzer(id) || id == translate.AnalyzerCzech {
		return ""
	}
	return id
}
