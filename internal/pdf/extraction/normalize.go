package extraction

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	exoticSpaces = strings.NewReplacer(
		"\u00a0", " ", // no-break space
		"\u2007", " ", // figure space
		"\u202f", " ", // narrow no-break space
	)
	horizontalRunRe = regexp.MustCompile(`[ \t\f\v]{2,}`)
	wrappedLineRe   = regexp.MustCompile(`\s*\n\s*`)
)

// Normalize canonicalizes recognized text before rule matching. Accented
// letters are composed (NFC) so "é" matches whether the recognizer emitted one
// rune or two; exotic spaces become plain spaces, horizontal whitespace runs
// collapse to one space, and whitespace around line breaks collapses to a
// single newline. Normalize is idempotent.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = exoticSpaces.Replace(text)
	text = horizontalRunRe.ReplaceAllString(text, " ")
	return wrappedLineRe.ReplaceAllString(text, "\n")
}
