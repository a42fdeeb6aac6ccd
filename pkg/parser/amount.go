// Package parser turns loosely formatted Korean-locale listing text into typed fields.
//
// Every extractor is total: on no match it returns a zero value and the caller
// decides whether the record is still usable. Page-level selectors live in page.go
// and are versioned by TemplateVersion so origin markup drift shows up as a
// failing fixture test rather than silently wrong data.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

const (
	unitEok   = 100_000_000 // 억
	unitCheon = 10_000_000  // 천 (천만)
	unitMan   = 10_000      // 만, implicit for a bare trailing number
)

var (
	amountCleaner = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\t", "", "원", "", "만", "")

	trailingNumber = regexp.MustCompile(`(\d+(?:\.\d+)?)$`)
	leadingDigits  = regexp.MustCompile(`^(\d+)`)

	// amountToken finds a price written with 억/천 inside a longer cell.
	amountToken = regexp.MustCompile(`\d+(?:\.\d+)?\s*억(?:\s*\d+\s*천)?(?:\s*[\d,]+)?|\d+\s*천(?:\s*[\d,]+)?`)
	// bareAmount is a cell holding only a 만-unit number, e.g. "4,500" or "4,500만원".
	bareAmount = regexp.MustCompile(`^[\d,]+\s*(?:만원|만|원)?$`)
)

// ParseAmount converts price text such as "8억8천500", "31억7천" or "4500" to won.
//
// The 억 term is consumed first, then a 천 term is looked for only in what follows
// it, and any leftover digits are a 만 term. A missing 천 literal is never treated
// as a 천 group: "8억800" is 8억 + 800만.
func ParseAmount(text string) int64 {
	s := amountCleaner.Replace(width.Narrow.String(text))
	if s == "" {
		return 0
	}

	var total float64
	rest := s

	if i := strings.Index(rest, "억"); i >= 0 {
		if m := trailingNumber.FindString(rest[:i]); m != "" {
			v, _ := strconv.ParseFloat(m, 64)
			total += v * unitEok
		}
		rest = rest[i+len("억"):]
	}

	if j := strings.Index(rest, "천"); j >= 0 {
		if m := trailingNumber.FindString(rest[:j]); m != "" {
			v, _ := strconv.ParseFloat(m, 64)
			total += v * unitCheon
		}
		rest = rest[j+len("천"):]
	}

	if m := leadingDigits.FindString(rest); m != "" {
		v, _ := strconv.ParseFloat(m, 64)
		total += v * unitMan
	}

	return int64(math.Round(total))
}

// FindAmount locates a price inside a single table cell and parses it.
// Cells mentioning 최고 (the historical maximum) are not trade prices.
func FindAmount(cell string) int64 {
	if v := explicitAmount(cell); v > 0 {
		return v
	}
	return plainAmount(cell)
}

// rowAmount picks the trade price among a row's cells: a cell written with 억/천
// wins, otherwise the right-most bare 만-unit number.
func rowAmount(cells []string) int64 {
	for _, c := range cells {
		if v := explicitAmount(c); v > 0 {
			return v
		}
	}
	for i := len(cells) - 1; i >= 0; i-- {
		if v := plainAmount(cells[i]); v > 0 {
			return v
		}
	}
	return 0
}

func explicitAmount(cell string) int64 {
	cell = width.Narrow.String(cell)
	if strings.Contains(cell, "최고") {
		return 0
	}
	if tok := amountToken.FindString(cell); tok != "" {
		return ParseAmount(tok)
	}
	return 0
}

func plainAmount(cell string) int64 {
	cell = strings.TrimSpace(width.Narrow.String(cell))
	if cell == "" || !bareAmount.MatchString(cell) {
		return 0
	}
	return ParseAmount(cell)
}
