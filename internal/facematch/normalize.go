package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separators are treated as spaces in names.
var separators = runes.Map(func(r rune) rune {
	if r == '-' || r == '_' || r == '.' {
		return ' '
	}
	return r
})

// NormalizeName folds a display name into a lookup key: accents stripped,
// case folded, separators as single spaces, trimmed. "José García-López"
// and "jose garcia lopez" share a key.
func NormalizeName(name string) string {
	// Transformers hold state, so the chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), separators, norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = strings.ToLower(name)
	}
	return strings.Join(strings.Fields(folded), " ")
}
