package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
}

// Label converts a field name into display text: separators become single
// spaces and CamelCase words are split, keeping acronyms together
// ("EmiratesIDNumber" becomes "Emirates ID Number").
func Label(name string) string {
	runes := []rune(norm.NFC.String(name))
	var b strings.Builder
	b.Grow(len(name) + 4)

	pendingSpace := false
	for i, r := range runes {
		if isSeparator(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if b.Len() > 0 && !pendingSpace && wordBoundary(runes, i) {
			pendingSpace = true
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// wordBoundary reports whether an upper-case rune at i starts a new word.
func wordBoundary(runes []rune, i int) bool {
	if i == 0 || !unicode.IsUpper(runes[i]) {
		return false
	}
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
		return true
	}
	return false
}
