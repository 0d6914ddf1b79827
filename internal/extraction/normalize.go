package extraction

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldAccents strips combining marks, so "Función" becomes "Funcion" and "ñ" becomes "n".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize prepares raw report text for the AI extractor: accents are folded,
// characters outside the allow-set are dropped, runs of blanks collapse to a
// single space and empty lines are removed. Line breaks are kept so the result
// can still be scanned line by line.
func Normalize(text string) string {
	folded := FoldAccents(text)

	lines := make([]string, 0, strings.Count(folded, "\n")+1)
	for _, line := range strings.Split(folded, "\n") {
		line = strings.Join(strings.Fields(strings.Map(keepAllowed, line)), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func keepAllowed(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return r
	case unicode.IsSpace(r):
		return ' '
	case strings.ContainsRune(".,;:()/-_%<>=^", r):
		return r
	}
	return -1
}

// splitLines returns the trimmed, non-blank lines of text in order.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// isUpperCase reports whether s has at least one letter and no lower-case letters.
func isUpperCase(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func hasDelimiter(s string) bool {
	return strings.ContainsAny(s, ":=")
}
