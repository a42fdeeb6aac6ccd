package identity

import (
	"testing"

	"apart-tracker/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() domain.TransactionRecord {
	return domain.TransactionRecord{
		ApartName:   "개포자이",
		Address:     "서울특별시 강남구 개포동 12",
		TradeDate:   "2025-10-15",
		Size:        84.97,
		Floor:       12,
		TradeAmount: 3_170_000_000,
	}
}

func TestComposer_OrderIndependent(t *testing.T) {
	fields := [][2]string{
		{FieldRegion, "11680"},
		{FieldAddress, "서울특별시 강남구 개포동"},
		{FieldApartName, "개포자이"},
		{FieldTradeDate, "2025-10-15"},
		{FieldSize, "84.97"},
		{FieldFloor, "12"},
		{FieldAmount, "3170000000"},
	}

	want := ""
	permute(fields, 0, func(p [][2]string) {
		c := NewComposer()
		for _, f := range p {
			c.Add(f[0], f[1])
		}
		got := c.ID()
		if want == "" {
			want = got
		}
		require.Equal(t, want, got)
	})
	assert.Len(t, want, 32)
}

func permute(a [][2]string, k int, visit func([][2]string)) {
	if k == len(a) {
		visit(a)
		return
	}
	for i := k; i < len(a); i++ {
		a[k], a[i] = a[i], a[k]
		permute(a, k+1, visit)
		a[k], a[i] = a[i], a[k]
	}
}

func TestTransactionID_Deterministic(t *testing.T) {
	r := sampleRecord()
	assert.Equal(t, TransactionID("11680", r), TransactionID("11680", r))
}

func TestTransactionID_IgnoresAddressNoise(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.Address = "서울특별시   강남구 개포동 12-3 (개포자이)"
	b.ApartName = " 개포자이 "

	assert.Equal(t, TransactionID("11680", a), TransactionID(" 11680", b))
}

func TestTransactionID_DiffersOnContent(t *testing.T) {
	base := sampleRecord()

	other := sampleRecord()
	other.Floor = 13
	assert.NotEqual(t, TransactionID("11680", base), TransactionID("11680", other))

	other = sampleRecord()
	other.TradeAmount++
	assert.NotEqual(t, TransactionID("11680", base), TransactionID("11680", other))

	assert.NotEqual(t, TransactionID("11680", base), TransactionID("11650", base))
}

func TestTag_DeduplicatesAndKeepsOrder(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.Floor = 3
	dup := sampleRecord()
	dup.Address = "서울특별시 강남구 개포동 (개포자이)"

	out := Tag("11680", []domain.TransactionRecord{a, b, dup})

	require.Len(t, out, 2)
	assert.Equal(t, 12, out[0].Floor)
	assert.Equal(t, 3, out[1].Floor)
	assert.NotEmpty(t, out[0].TransactionID)
}

func TestIDSet_SortedUnique(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.Floor = 3

	ids := IDSet("11680", []domain.TransactionRecord{a, b, a})
	require.Len(t, ids, 2)
	assert.True(t, ids[0] < ids[1])
}
