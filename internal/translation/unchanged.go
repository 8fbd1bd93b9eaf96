package translation

import (
	"strings"
	"unicode"
)

// unchangedPrefixRunes is how many normalized leading characters must
// match before two texts are considered the same. Catches providers that
// translate a prefix and echo the rest, or truncate the output.
const unchangedPrefixRunes = 24

// IsUnchanged reports whether a provider output is an echo of the source
// text rather than a genuine translation. Several free providers silently
// return the input when overloaded or given an unsupported language pair;
// such outputs must never be cached or treated as success.
func IsUnchanged(source, output string) bool {
	a := normalizeForComparison(source)
	b := normalizeForComparison(output)
	if a == b {
		return true
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) < unchangedPrefixRunes || len(rb) < unchangedPrefixRunes {
		return false
	}
	return string(ra[:unchangedPrefixRunes]) == string(rb[:unchangedPrefixRunes])
}

func normalizeForComparison(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
