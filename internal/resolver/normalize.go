package resolver

import "strings"

// dash-like code points that catalog titles use interchangeably with the
// ASCII hyphen-minus.
var dashReplacer = strings.NewReplacer(
	"-", " ",
	"‐", " ", // hyphen
	"‑", " ", // non-breaking hyphen
	"–", " ", // en dash
	"—", " ", // em dash
)

// Normalize canonicalizes a title for comparison. Catalog titles carry
// punctuation variants (colons, slashes, typographic dashes, parentheses)
// that locally entered titles usually lack, so both sides are reduced to
// lowercase space-separated words. The function is idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, "/", " ")
	s = dashReplacer.Replace(s)
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	return strings.Join(strings.Fields(s), " ")
}
