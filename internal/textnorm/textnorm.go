// Package textnorm folds text for search: it strips diacritics, lower-cases
// and trims, so "Cargador Génesis" matches the query "genesis".
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the search form of s. A fresh transformer chain is built per
// call because chained transformers carry state and are not safe to share.
func Fold(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
