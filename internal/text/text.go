package text

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// Allowed characters for a wand message. The strip font only carries a basic
// glyph set, and anything fancier is unreadable at POV speeds anyway.
const allowedPunctuation = " !?.,'-:+&"

// InvalidRune describes a rejected character and its grapheme position.
type InvalidRune struct {
	Rune     rune
	Position int
}

func (iv InvalidRune) String() string {
	return fmt.Sprintf("%q at %d", iv.Rune, iv.Position)
}

// GraphemeCount returns the number of user-perceived characters in s. This is
// what the message length limit counts, not bytes or runes.
func GraphemeCount(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// Normalize trims the message, uppercases it, and collapses interior
// whitespace runs to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Validate checks every rune of s against the allowed set and returns the
// offenders. An empty result means the message is renderable as-is. Validate
// does not normalize; run Normalize first.
func Validate(s string) []InvalidRune {
	var invalid []InvalidRune
	pos := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		runes := g.Runes()
		if len(runes) != 1 || !allowedRune(runes[0]) {
			invalid = append(invalid, InvalidRune{Rune: runes[0], Position: pos})
		}
		pos++
	}
	return invalid
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	default:
		return strings.ContainsRune(allowedPunctuation, r)
	}
}

// Sanitize normalizes s and drops every rune Validate would reject.
func Sanitize(s string) string {
	s = Normalize(s)
	var b strings.Builder
	for _, r := range s {
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}
	// Dropping runes can leave doubled spaces behind.
	return strings.Join(strings.Fields(b.String()), " ")
}

// CheckLength reports whether the normalized message fits within the
// configured grapheme limit.
func CheckLength(s string, maxGraphemes int) error {
	if n := GraphemeCount(s); n > maxGraphemes {
		return fmt.Errorf("message is %d characters, limit is %d", n, maxGraphemes)
	}
	return nil
}
