package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// SqmPerPyeong is the fixed conversion ratio from 평 to m².
const SqmPerPyeong = 3.3058

const (
	minSqm    = 20.0
	maxSqm    = 500.0
	minPyeong = 5
	maxPyeong = 200
)

var (
	longDate  = regexp.MustCompile(`(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})`)
	shortDate = regexp.MustCompile(`(?:^|[^\d.])(\d{2})[.\-/](\d{1,2})[.\-/](\d{1,2})(?:[^\d]|$)`)
	anyDate   = regexp.MustCompile(`\d{2,4}[.\-/]\d{1,2}[.\-/]\d{1,2}`)

	sqmPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:㎡|m²|m2|제곱미터)`)
	pyeongPattern  = regexp.MustCompile(`(\d+)\s*평`)
	decimalPattern = regexp.MustCompile(`\d+\.\d+`)
	yearMonthLike  = regexp.MustCompile(`^\d{2}\.(?:0[1-9]|1[0-2])$`)
	percentPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*%`)

	floorPattern = regexp.MustCompile(`(지하\s*)?(\d+)\s*층`)

	// Info-block patterns stay on one line: the block is joined with "\n".
	householdLabeled = regexp.MustCompile(`세대수[^\d\n]*(\d[\d,]*)`)
	householdPattern = regexp.MustCompile(`(\d[\d,]*)[ \t]*세대`)
	parkingPattern   = regexp.MustCompile(`(?:주차|세대당)[^\d\n]*(\d+(?:\.\d+)?)[ \t]*대`)
	farPattern       = regexp.MustCompile(`용적률[^\d\n]*(\d+(?:\.\d+)?)[ \t]*%`)
	bcrPattern       = regexp.MustCompile(`건폐율[^\d\n]*(\d+(?:\.\d+)?)[ \t]*%`)
	addressPattern   = regexp.MustCompile(`주소[ \t]*[:：]?[ \t]*([^\n|]+)`)
	maxAmountPattern = regexp.MustCompile(`최고(?:가)?\s*[:：]?\s*(\d+(?:\.\d+)?\s*억(?:\s*\d+\s*천)?(?:\s*[\d,]+)?|\d+\s*천(?:\s*[\d,]+)?|[\d,]+)`)
)

// ParseDate accepts "YY.MM.DD" (expanded to 20YY) or "YYYY.MM.DD" with any of
// . - / as separator and returns "YYYY-MM-DD", or "" if nothing valid is found.
func ParseDate(text string) string {
	text = width.Narrow.String(text)
	if m := longDate.FindStringSubmatch(text); m != nil {
		if d := formatDate(m[1], m[2], m[3]); d != "" {
			return d
		}
	}
	if m := shortDate.FindStringSubmatch(text); m != nil {
		return formatDate("20"+m[1], m[2], m[3])
	}
	return ""
}

func formatDate(y, m, d string) string {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// ParseSize extracts an exclusive area in m².
//
// An explicit ㎡ value wins, then a 평 integer (converted), then a bare decimal.
// Values outside 20-500 m² (or 5-200 평) are ignored, date tokens are never
// candidates, and a YY.MM-shaped decimal such as 25.10 only wins when no other
// candidate exists.
func ParseSize(text string) float64 {
	text = width.Narrow.String(text)
	stripped := anyDate.ReplaceAllString(text, " ")

	for _, m := range sqmPattern.FindAllStringSubmatch(stripped, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v >= minSqm && v <= maxSqm {
			return round2(v)
		}
	}

	for _, m := range pyeongPattern.FindAllStringSubmatch(stripped, -1) {
		p, err := strconv.Atoi(m[1])
		if err == nil && p >= minPyeong && p <= maxPyeong {
			return round2(float64(p) * SqmPerPyeong)
		}
	}

	loose := percentPattern.ReplaceAllString(amountToken.ReplaceAllString(stripped, " "), " ")
	var ambiguous float64
	for _, c := range decimalPattern.FindAllString(loose, -1) {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil || v < minSqm || v > maxSqm {
			continue
		}
		if yearMonthLike.MatchString(c) {
			if ambiguous == 0 {
				ambiguous = v
			}
			continue
		}
		return round2(v)
	}
	return round2(ambiguous)
}

// ParseFloor returns the floor number; 지하 (basement) floors are negative.
func ParseFloor(text string) int {
	m := floorPattern.FindStringSubmatch(width.Narrow.String(text))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[2])
	if m[1] != "" {
		return -n
	}
	return n
}

// ParseHouseholds extracts a 세대 count such as "세대수 3,375세대". A 세대수
// label wins; otherwise the first number directly followed by 세대 is used.
func ParseHouseholds(text string) int {
	text = width.Narrow.String(text)
	m := householdLabeled.FindStringSubmatch(text)
	if m == nil {
		m = householdPattern.FindStringSubmatch(text)
	}
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	return n
}

// ParseParking extracts parking spaces per household ("세대당 1.4대").
func ParseParking(text string) float64 {
	return firstFloat(parkingPattern, text)
}

// ParseFloorAreaRatio extracts 용적률 in percent.
func ParseFloorAreaRatio(text string) float64 {
	return firstFloat(farPattern, text)
}

// ParseBuildingCoverageRatio extracts 건폐율 in percent.
func ParseBuildingCoverageRatio(text string) float64 {
	return firstFloat(bcrPattern, text)
}

// ParseAddress extracts the value of a 주소 label.
func ParseAddress(text string) string {
	m := addressPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return collapseSpaces(m[1])
}

// ParseMaxAmount extracts a "최고 32억" style historical maximum.
func ParseMaxAmount(text string) int64 {
	m := maxAmountPattern.FindStringSubmatch(width.Narrow.String(text))
	if m == nil {
		return 0
	}
	return ParseAmount(m[1])
}

func firstFloat(re *regexp.Regexp, text string) float64 {
	m := re.FindStringSubmatch(width.Narrow.String(text))
	if m == nil {
		return 0
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
