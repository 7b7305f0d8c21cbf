package searchidx

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tagPattern removes markup before tokenization; index input is normalized
// document HTML.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// tokenSplitPattern matches non-alphanumeric character sequences for
// tokenization, applied after lowering and diacritic folding.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// foldDiacritics decomposes to NFD, removes combining marks, and recomposes,
// so "publicación" and "publicacion" index identically.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripTags reduces an HTML fragment to its text content with single-space
// separators where elements met.
func StripTags(html string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(html, " "))
}

// Tokenize splits text into lowercase, diacritic-free tokens, discarding
// tokens of two characters or fewer.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	if folded, _, err := transform.String(foldDiacritics, lowered); err == nil {
		lowered = folded
	}
	raw := tokenSplitPattern.Split(lowered, -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) <= 2 {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
