package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	lotNumbers    = regexp.MustCompile(`\d+(?:-\d+)?`)
)

// NormalizeAddress makes addresses comparable: full-width characters are folded,
// parenthetical asides and embedded numbers removed, and whitespace collapsed.
// "서울시 강남구 개포동 12-3 (개포자이)" → "서울시 강남구 개포동".
func NormalizeAddress(s string) string {
	s = width.Fold.String(s)
	s = parenthetical.ReplaceAllString(s, " ")
	s = lotNumbers.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

// NormalizeName folds full-width characters and collapses whitespace.
func NormalizeName(s string) string {
	return collapseSpaces(width.Fold.String(s))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
