package translate

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/field"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// --- analyzer.go ---

func TestTranslateAnalyzer(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"org.example.StandardAnalyzer,Version=1", AnalyzerStandard},
		{"Lucene.Net.Analysis.WhitespaceAnalyzer, Lucene.Net", AnalyzerWhitespace},
		{"Lucene.Net.Analysis.SimpleAnalyzer", AnalyzerSimple},
		{"Lucene.Net.Analysis.KeywordAnalyzer", AnalyzerKeyword},
		{"Lucene.Net.Analysis.StopAnalyzer", AnalyzerStop},
		{"Lucene.Net.Analysis.AR.ArabicAnalyzer", AnalyzerArabic},
		{"Lucene.Net.Analysis.BR.BrazilianAnalyzer", AnalyzerPortuguese},
		{"Lucene.Net.Analysis.Cn.ChineseAnalyzer", AnalyzerChinese},
		{"Lucene.Net.Analysis.CJK.CJKAnalyzer", AnalyzerChinese},
		{"Lucene.Net.Analysis.Cz.CzechAnalyzer", AnalyzerCzech},
		{"Lucene.Net.Analysis.Nl.DutchAnalyzer", AnalyzerDutch},
		{"Lucene.Net.Analysis.Fr.FrenchAnalyzer", AnalyzerFrench},
		{"Lucene.Net.Analysis.De.GermanAnalyzer", AnalyzerGerman},
		{"Lucene.Net.Analysis.Ru.RussianAnalyzer", AnalyzerRussian},
		{"Vendor.Custom.SnowballAnalyzer", AnalyzerStandard},
		{"french", "french"},
		{"unknown", "unknown"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := TranslateAnalyzer(tc.in); got != tc.want {
			t.Errorf("TranslateAnalyzer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTranslateAnalyzer_FirstMatchWins(t *testing.T) {
	// Both names appear; table order puts StandardAnalyzer first.
	got := TranslateAnalyzer("Wrapper.GermanAnalyzer.StandardAnalyzer")
	if got != AnalyzerStandard {
		t.Errorf("got %q, want %q", got, AnalyzerStandard)
	}
}

func TestCanonicalAnalyzer(t *testing.T) {
	if got := CanonicalAnalyzer(TranslateAnalyzer("unknown")); got != AnalyzerStandard {
		t.Errorf("unknown analyzer = %q, want standard", got)
	}
	if got := CanonicalAnalyzer(" German "); got != AnalyzerGerman {
		t.Errorf("CanonicalAnalyzer(German) = %q", got)
	}
	if got := CanonicalAnalyzer(""); got != AnalyzerStandard {
		t.Errorf("empty analyzer = %q, want standard", got)
	}
}

func TestIsLanguageAnalyzer(t *testing.T) {
	if !IsLanguageAnalyzer(AnalyzerFrench) {
		t.Error("french is a language analyzer")
	}
	if IsLanguageAnalyzer(AnalyzerKeyword) {
		t.Error("keyword is not a language analyzer")
	}
}

// --- names.go ---

func TestSanitizeFieldName_Reserved(t *testing.T) {
	names := []string{"__IndexType", "__NodeId", "__", "___triple", "__Path_With.Dots"}
	for _, n := range names {
		got := SanitizeFieldName(n)
		if !schema.LetterLeading(got) {
			t.Errorf("SanitizeFieldName(%q) = %q, not letter-leading", n, got)
		}
		if got[1:] != n {
			t.Errorf("stripping one char from %q gives %q, want %q", got, got[1:], n)
		}
		if RestoreFieldName(got) != n {
			t.Errorf("RestoreFieldName(%q) = %q, want %q", got, RestoreFieldName(got), n)
		}
	}
}

func TestSanitizeFieldName_Identity(t *testing.T) {
	names := []string{"title", "_single", "a__b", "Body", "x", ""}
	for _, n := range names {
		if got := SanitizeFieldName(n); got != n {
			t.Errorf("SanitizeFieldName(%q) = %q, want identity", n, got)
		}
	}
}

func TestSanitizeFieldName_Deterministic(t *testing.T) {
	if SanitizeFieldName("__a") != SanitizeFieldName("__a") {
		t.Error("sanitize must be deterministic")
	}
}

func TestValidateFieldName_EscapedCollision(t *testing.T) {
	for _, n := range []string{"x__foo", "x__IndexType", "x___"} {
		if err := ValidateFieldName(n); !errors.Is(err, domain.ErrInvalidSchema) {
			t.Errorf("ValidateFieldName(%q) = %v, want ErrInvalidSchema", n, err)
		}
	}
	for _, n := range []string{"__foo", "x_foo", "xx__foo", "title", "x"} {
		if err := ValidateFieldName(n); err != nil {
			t.Errorf("ValidateFieldName(%q) = %v, want nil", n, err)
		}
	}
}

func TestTranslateField_EscapedNameRejected(t *testing.T) {
	d := mustDesc(t, "x__foo", field.Text, false, "")
	if _, err := TranslateField(d, "standard"); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	_, err := NewTranslator(map[string][]field.Descriptor{"article": {d}})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("NewTranslator: expected ErrInvalidSchema, got %v", err)
	}
}

func TestTranslator_EscapedSourceFieldCannotShadow(t *testing.T) {
	tr, err := NewTranslator(map[string][]field.Descriptor{
		"article": {mustDesc(t, "__Published", field.DateTime, false, "")},
	})
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	rec, err := document.NewRecord("1", "article", map[string]string{
		"__Published":  "2024-01-02",
		"x__Published": "not a date",
	})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	doc, err := tr.Document(rec)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got := doc.Fields()["x__Published"]; got != "1704153600000" {
		t.Errorf("x__Published = %q, want the declared field's value", got)
	}
}

// --- field.go ---

func mustDesc(t *testing.T, name string, ft field.Type, sortable bool, analyzer string) field.Descriptor {
	t.Helper()
	d, err := field.New(name, ft, sortable, analyzer)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	return d
}

func TestTranslateField_Types(t *testing.T) {
	tests := []struct {
		ft   field.Type
		want schema.DataType
	}{
		{field.Text, schema.String},
		{field.Float, schema.Double},
		{field.Double, schema.Double},
		{field.Long, schema.Int64},
		{field.Int, schema.Int32},
		{field.Number, schema.Int32},
		{field.DateTime, schema.DateTimeOffset},
	}
	for _, tc := range tests {
		f, err := TranslateField(mustDesc(t, "f", tc.ft, false, ""), AnalyzerStandard)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.ft, err)
		}
		if f.DataType() != tc.want {
			t.Errorf("%s -> %s, want %s", tc.ft, f.DataType(), tc.want)
		}
	}
}

func TestTranslateField_CoarseDatesRejected(t *testing.T) {
	for _, ft := range []field.Type{
		field.DateYear, field.DateMonth, field.DateDay, field.DateHour, field.DateMinute, "geo",
	} {
		_, err := TranslateField(mustDesc(t, "published", ft, true, ""), AnalyzerStandard)
		var ute *domain.UnsupportedTypeError
		if !errors.As(err, &ute) {
			t.Fatalf("%s: expected UnsupportedTypeError, got %v", ft, err)
		}
		if ute.Field != "published" || ute.Type != string(ft) {
			t.Errorf("unexpected error fields: %+v", ute)
		}
	}
}

func TestTranslateField_StringAnalyzer(t *testing.T) {
	f, err := TranslateField(mustDesc(t, "body", field.Text, true, "Lucene.Net.Analysis.Fr.FrenchAnalyzer"), "standard")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Searchable() || !f.Sortable() || f.Analyzer() != AnalyzerFrench {
		t.Errorf("unexpected field: %+v", f)
	}

	f, err = TranslateField(mustDesc(t, "summary", field.Text, false, ""), AnalyzerGerman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Analyzer() != AnalyzerGerman {
		t.Errorf("default analyzer not applied: %q", f.Analyzer())
	}
}

func TestTranslateField_NumericHasNoAnalyzer(t *testing.T) {
	f, err := TranslateField(mustDesc(t, "__SortOrder", field.Int, true, "keyword"), AnalyzerStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Name() != "x__SortOrder" {
		t.Errorf("name = %q, want sanitized", f.Name())
	}
	if f.Searchable() || f.Analyzer() != "" || !f.Sortable() {
		t.Errorf("unexpected numeric field: %+v", f)
	}
}

// --- value.go ---

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		dt   schema.DataType
		raw  string
		want string
	}{
		{schema.String, " keep spaces ", " keep spaces "},
		{schema.Int32, " 42 ", "42"},
		{schema.Int64, "9007199254740993", "9007199254740993"},
		{schema.Double, "3.50", "3.5"},
		{schema.DateTimeOffset, "2024-01-02T03:04:05Z", "1704164645000"},
		{schema.DateTimeOffset, "2024-01-02", "1704153600000"},
		{schema.DateTimeOffset, "2024-01-02 03:04:05", "1704164645000"},
		{schema.DateTimeOffset, "1704164645000", "1704164645000"},
	}
	for _, tc := range tests {
		got, err := EncodeValue(tc.dt, tc.raw)
		if err != nil {
			t.Errorf("EncodeValue(%s, %q): unexpected error: %v", tc.dt, tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("EncodeValue(%s, %q) = %q, want %q", tc.dt, tc.raw, got, tc.want)
		}
	}
}

func TestEncodeValue_Invalid(t *testing.T) {
	tests := []struct {
		dt  schema.DataType
		raw string
	}{
		{schema.Int32, "3000000000"},
		{schema.Int64, "12.5"},
		{schema.Double, "NaN"},
		{schema.Double, "abc"},
		{schema.DateTimeOffset, "yesterday"},
		{"Geo", "1,2"},
	}
	for _, tc := range tests {
		_, err := EncodeValue(tc.dt, tc.raw)
		if !errors.Is(err, domain.ErrInvalidValue) {
			t.Errorf("EncodeValue(%s, %q) err = %v, want ErrInvalidValue", tc.dt, tc.raw, err)
		}
	}
}

// --- translator.go ---

func TestTranslator_Document(t *testing.T) {
	tr, err := NewTranslator(map[string][]field.Descriptor{
		"article": {
			mustDesc(t, "title", field.Text, true, ""),
			mustDesc(t, "views", field.Long, false, ""),
			mustDesc(t, "__Published", field.DateTime, true, ""),
		},
	})
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}

	rec, err := document.NewRecord("1001", "article", map[string]string{
		"title":        "Hello",
		"views":        "12",
		"__Published":  "2024-01-02",
		"extra":        "kept",
		"id":           "spoofed",
		"__IndexType":  "spoofed",
		"x__IndexType": "spoofed",
	})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}

	doc, err := tr.Document(rec)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	want := map[string]string{
		"title":         "Hello",
		"views":         "12",
		"x__Published":  "1704153600000",
		"extra":         "kept",
		schema.KeyFieldName:  "1001",
		schema.TypeFieldName: "article",
	}
	if doc.Key() != "1001" {
		t.Errorf("Key() = %q", doc.Key())
	}
	if len(doc.Fields()) != len(want) {
		t.Errorf("fields = %v, want %v", doc.Fields(), want)
	}
	for k, v := range want {
		if doc.Fields()[k] != v {
			t.Errorf("field %q = %q, want %q", k, doc.Fields()[k], v)
		}
	}
}

func TestTranslator_SkipsEmptyNumeric(t *testing.T) {
	tr, err := NewTranslator(map[string][]field.Descriptor{
		"article": {mustDesc(t, "views", field.Int, false, "")},
	})
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	rec, _ := document.NewRecord("1", "article", map[string]string{"views": ""})
	doc, err := tr.Document(rec)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if _, ok := doc.Fields()["views"]; ok {
		t.Error("empty numeric value should be omitted")
	}
}

func TestTranslator_InvalidValue(t *testing.T) {
	tr, err := NewTranslator(map[string][]field.Descriptor{
		"article": {mustDesc(t, "views", field.Int, false, "")},
	})
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	rec, _ := document.NewRecord("1", "article", map[string]string{"views": "many"})
	_, err = tr.Document(rec)
	if !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if !strings.Contains(err.Error(), `field "views"`) {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestNewTranslator_ConflictingDeclarations(t *testing.T) {
	_, err := NewTranslator(map[string][]field.Descriptor{
		"article": {mustDesc(t, "rank", field.Int, false, "")},
		"product": {mustDesc(t, "rank", field.Double, false, "")},
	})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestNewTranslator_UnsupportedType(t *testing.T) {
	_, err := NewTranslator(map[string][]field.Descriptor{
		"article": {mustDesc(t, "day", field.DateDay, false, "")},
	})
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}
