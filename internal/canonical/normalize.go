// Package canonical maps free-text brand and model names onto stable node
// identifiers.
package canonical

import (
	"strings"
	"unicode"
)

// MaxSlugLength bounds the length of a normalized slug, in runes.
const MaxSlugLength = 120

// Normalize turns a display name into a slug: lower-cased, trimmed, runs of
// non-alphanumerics collapsed into one hyphen, no leading or trailing
// hyphens, at most MaxSlugLength runes.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	n := 0
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingHyphen = n > 0
			continue
		}
		if pendingHyphen {
			if n+1 >= MaxSlugLength {
				break
			}
			b.WriteByte('-')
			n++
			pendingHyphen = false
		}
		if n >= MaxSlugLength {
			break
		}
		b.WriteRune(r)
		n++
	}

	return b.String()
}
