package library

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// TitleKey normalizes a title for local search: NFC, case-folded,
// whitespace collapsed.
func TitleKey(title string) string {
	s := norm.NFC.String(title)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
