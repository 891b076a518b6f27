package slug

import (
	"strings"
	"unicode"
)

const fallback = "notebook"

// Make lowercases input and joins runs of letters and digits with single
// dashes, so "My Queries (v2)" becomes "my-queries-v2". Letters outside
// ASCII are kept.
func Make(input string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
