package translate

import "strings"

// Canonical analyzer identifiers understood by the remote index.
const (
	AnalyzerStandard   = "standard"
	AnalyzerWhitespace = "whitespace"
	AnalyzerSimple     = "simple"
	AnalyzerKeyword    = "keyword"
	AnalyzerStop       = "stop"
	AnalyzerArabic     = "arabic"
	AnalyzerPortuguese = "portuguese"
	AnalyzerChinese    = "chinese"
	AnalyzerCzech      = "czech"
	AnalyzerDutch      = "dutch"
	AnalyzerFrench     = "french"
	AnalyzerGerman     = "german"
	AnalyzerRussian    = "russian"
)

// qualifierSeparator marks a legacy fully-qualified analyzer name.
const qualifierSeparator = "."

type legacyAnalyzer struct {
	match string
	id    string
}

// legacyAnalyzers is matched in order; the first substring hit wins.
var legacyAnalyzers = []legacyAnalyzer{
	{"StandardAnalyzer", AnalyzerStandard},
	{"WhitespaceAnalyzer", AnalyzerWhitespace},
	{"SimpleAnalyzer", AnalyzerSimple},
	{"KeywordAnalyzer", AnalyzerKeyword},
	{"StopAnalyzer", AnalyzerStop},
	{"ArabicAnalyzer", AnalyzerArabic},
	{"BrazilianAnalyzer", AnalyzerPortuguese},
	{"ChineseAnalyzer", AnalyzerChinese},
	{"CJKAnalyzer", AnalyzerChinese},
	{"CzechAnalyzer", AnalyzerCzech},
	{"DutchAnalyzer", AnalyzerDutch},
	{"FrenchAnalyzer", AnalyzerFrench},
	{"GermanAnalyzer", AnalyzerGerman},
	{"RussianAnalyzer", AnalyzerRussian},
}

var canonicalAnalyzers = map[string]bool{
	AnalyzerStandard: true, AnalyzerWhitespace: true, AnalyzerSimple: true,
	AnalyzerKeyword: true, AnalyzerStop: true, AnalyzerArabic: true,
	AnalyzerPortuguese: true, AnalyzerChinese: true, AnalyzerCzech: true,
	AnalyzerDutch: true, AnalyzerFrench: true, AnalyzerGerman: true,
	AnalyzerRussian: true,
}

// TranslateAnalyzer maps an analyzer name to a remote analyzer id.
// Names without a qualifier separator are treated as canonical and returned as-is.
// Qualified legacy names are matched against the legacy table; no match means standard.
func TranslateAnalyzer(name string) string {
	if !strings.Contains(name, qualifierSeparator) {
		return name
	}
	for _, a := range legacyAnalyzers {
		if strings.Contains(name, a.match) {
			return a.id
		}
	}
	return AnalyzerStandard
}

// CanonicalAnalyzer normalises an analyzer id to one the remote index knows,
// falling back to standard.
func CanonicalAnalyzer(id string) string {
	lower := strings.ToLower(strings.TrimSpace(id))
	if canonicalAnalyzers[lower] {
		return lower
	}
	return AnalyzerStandard
}

// IsLanguageAnalyzer reports whether id selects a language-specific pipeline.
func IsLanguageAnalyzer(id string) bool {
	switch id {
	case AnalyzerArabic, AnalyzerPortuguese, AnalyzerChinese, AnalyzerCzech,
		AnalyzerDutch, AnalyzerFrench, AnalyzerGerman, AnalyzerRussian:
		return true
	}
	return false
}
