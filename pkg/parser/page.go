package parser

import (
	"fmt"
	"strings"

	"apart-tracker/pkg/domain"

	"github.com/PuerkitoBio/goquery"
)

// TemplateVersion names the origin page layout the selectors below target.
// Bump it together with the fixtures in page_test.go when the markup changes.
const TemplateVersion = "2025-10"

const (
	tradeRowSelector = "table.trade-list tbody tr"
	infoSelector     = "div.apt-info"
	nameSelector     = "h1.apt-name"
)

// PageResult is what one listings page yielded.
type PageResult struct {
	Records []domain.TransactionRecord
	Rows    int // data rows seen
	Dropped int // rows missing trade date, size or amount
}

// ApartInfo is the complex summary block of an apartment-detail page.
type ApartInfo struct {
	Name                  string
	Address               string
	HouseholdsCount       int
	Parking               float64
	FloorAreaRatio        float64
	BuildingCoverageRatio float64
}

// ParseTradePage extracts all transaction rows of a listings page.
// A row without a trade date, size or amount is dropped and counted.
func ParseTradePage(html string) (PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var res PageResult
	doc.Find(tradeRowSelector).Each(func(i int, row *goquery.Selection) {
		if row.Find("td").Length() == 0 {
			return
		}
		res.Rows++

		rec, ok := parseRowSelection(row)
		if !ok {
			res.Dropped++
			return
		}
		res.Records = append(res.Records, rec)
	})

	return res, nil
}

func parseRowSelection(row *goquery.Selection) (domain.TransactionRecord, bool) {
	var rec domain.TransactionRecord
	var cells []string

	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		text := collapseSpaces(td.Text())
		switch {
		case td.HasClass("apt-name"):
			rec.ApartName = NormalizeName(text)
		case td.HasClass("address"):
			rec.Address = text
		default:
			cells = append(cells, text)
		}
	})

	return ParseRow(rec, cells)
}

// ParseRow fills the typed fields of rec from the remaining cell texts of a row,
// in whatever order the cells appear. ok reports whether every required field
// (trade date, size, amount) was found.
func ParseRow(rec domain.TransactionRecord, cells []string) (domain.TransactionRecord, bool) {
	rowText := strings.Join(cells, " | ")

	rec.TradeDate = ParseDate(rowText)
	rec.Size = ParseSize(rowText)
	rec.Floor = ParseFloor(rowText)
	rec.TradeAmount = rowAmount(cells)
	rec.MaxTradeAmount = ParseMaxAmount(rowText)
	rec.IsNewRecord = strings.Contains(rowText, "신고가")

	ok := rec.TradeDate != "" && rec.Size > 0 && rec.TradeAmount > 0
	return rec, ok
}

// ParseApartInfo extracts the summary block of an apartment-detail page.
func ParseApartInfo(html string) (ApartInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ApartInfo{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	block := doc.Find(infoSelector).First()
	var lines []string
	block.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		label := collapseSpaces(dl.Find("dt").Text())
		value := collapseSpaces(dl.Find("dd").Text())
		lines = append(lines, label+" "+value)
	})
	if len(lines) == 0 {
		// Older layout: free text, one field per line.
		lines = strings.Split(block.Text(), "\n")
	}
	text := strings.Join(lines, "\n")

	return ApartInfo{
		Name:                  NormalizeName(doc.Find(nameSelector).First().Text()),
		Address:               ParseAddress(text),
		HouseholdsCount:       ParseHouseholds(text),
		Parking:               ParseParking(text),
		FloorAreaRatio:        ParseFloorAreaRatio(text),
		BuildingCoverageRatio: ParseBuildingCoverageRatio(text),
	}, nil
}

// AnnotateRecords fills a missing MaxTradeAmount with the highest price seen for
// the same apartment and size among records.
func AnnotateRecords(records []domain.TransactionRecord) {
	groupMax := make(map[string]int64)
	key := func(r domain.TransactionRecord) string {
		return fmt.Sprintf("%s|%.2f", r.ApartName, r.Size)
	}

	for _, r := range records {
		k := key(r)
		if r.TradeAmount > groupMax[k] {
			groupMax[k] = r.TradeAmount
		}
		if r.MaxTradeAmount > groupMax[k] {
			groupMax[k] = r.MaxTradeAmount
		}
	}

	for i := range records {
		if records[i].MaxTradeAmount == 0 {
			records[i].MaxTradeAmount = groupMax[key(records[i])]
		}
	}
}
