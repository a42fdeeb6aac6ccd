package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"8억800", 808_000_000},
		{"8억8천500", 885_000_000},
		{"31억7천", 3_170_000_000},
		{"4500", 45_000_000},
		{"4,500만원", 45_000_000},
		{"8억 8,500", 885_000_000},
		{"8천500", 85_000_000},
		{"15억", 1_500_000_000},
		{"2.5억", 250_000_000},
		{"１２억", 1_200_000_000},
		{"", 0},
		{"협의", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAmount(tt.raw), "ParseAmount(%q)", tt.raw)
	}
}

func TestFindAmount(t *testing.T) {
	assert.Equal(t, int64(3_170_000_000), FindAmount("31억7천 신고가"))
	assert.Equal(t, int64(45_000_000), FindAmount(" 4,500 "))
	assert.Zero(t, FindAmount("최고 32억"))
	assert.Zero(t, FindAmount("12층"))
	assert.Zero(t, FindAmount("84.97"))
}

func TestRowAmount_PrefersExplicitThenRightMost(t *testing.T) {
	assert.Equal(t, int64(1_885_000_000), rowAmount([]string{"25.10.02", "59.96㎡", "3층", "18억8천500", "최고 20억"}))
	assert.Equal(t, int64(45_000_000), rowAmount([]string{"12", "2025.10.15", "4,500"}))
	assert.Zero(t, rowAmount([]string{"25.10.02", "3층"}))
}
