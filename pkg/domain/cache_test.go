package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrawlQueryKey_Normalizes(t *testing.T) {
	a := CrawlQuery{Area: " 11680 ", ApartName: "개포  자이 "}
	b := CrawlQuery{ApartName: "개포 자이", Area: "11680"}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "area=11680|apartName=개포 자이", a.Key())
	assert.Equal(t, "area=11680|apartName=|page=3", CrawlQuery{Area: "11680", Page: 3}.Key())
}

func TestArchiveID(t *testing.T) {
	assert.Equal(t, "20250401_11680", ArchiveID("20250401", "11680"))
}
