// Package normalize standardizes attribute and title text so that
// comparisons elsewhere in the engine are exact-string, not fuzzy.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// stripMarks removes diacritic marks after NFD decomposition. Retailer
// titles occasionally carry accented characters from localized listings.
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold removes diacritics and uppercases.
func Fold(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(folded)
}

// Attr standardizes an attribute value (socket, chipset, memory type,
// brand, form factor) for storage and exact comparison:
//  1. Fold case and diacritics
//  2. Strip punctuation (values like "LGA-1700" and "LGA 1700" collapse
//     to "LGA1700")
//  3. Collapse remaining whitespace
func Attr(s string) string {
	s = Fold(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t':
			b.WriteRune(' ')
		case r == '+': // chipset variants like X670E+ keep their marker
			b.WriteRune(r)
		}
	}

	out := multiSpaceRe.ReplaceAllString(b.String(), " ")
	out = strings.TrimSpace(out)

	// Socket-style values are written with and without an internal space
	// ("LGA 1700" vs "LGA1700"); join a trailing all-digit token onto a
	// short alpha prefix so both spellings compare equal.
	if parts := strings.Split(out, " "); len(parts) == 2 && len(parts[0]) <= 4 && isDigits(parts[1]) {
		out = parts[0] + parts[1]
	}

	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// noiseTokens are packaging and retailer filler words stripped before
// canonical-name matching. They carry no model identity.
var noiseTokens = map[string]bool{
	"TRAY": true, "BOX": true, "BOXED": true, "OEM": true, "RETAIL": true,
	"BULK": true, "NEW": true, "WOF": true, "DESKTOP": true,
	"PROCESSOR": true, "CPU": true, "UNLOCKED": true, "SOCKET": true,
	"MOTHERBOARD": true, "MAINBOARD": true, "MEMORY": true, "RAM": true,
	"KIT": true, "MODULE": true, "GAMING": true, "EDITION": true,
}

var tokenSplitRe = regexp.MustCompile(`[^A-Z0-9+]+`)

// unitTokenRe matches measurement fragments ("7GHZ", "16GB", "65W")
// that titles carry but canonical names never do.
var unitTokenRe = regexp.MustCompile(`^\d*(GHZ|MHZ|GB|TB|W|MT|S)$`)

// Tokens splits free text into normalized tokens with packaging noise
// removed. Order is preserved; duplicates are kept (set semantics are
// applied by callers that need them).
func Tokens(s string) []string {
	s = Fold(s)
	raw := tokenSplitRe.Split(s, -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t == "" || noiseTokens[t] || unitTokenRe.MatchString(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TokenSet returns the unique normalized tokens of s.
func TokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokens(s) {
		set[t] = true
	}
	return set
}
