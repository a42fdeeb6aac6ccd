// Package identity derives deterministic transaction ids used for de-duplication
// and archive diffing.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/parser"
)

const (
	FieldRegion    = "region"
	FieldAddress   = "address"
	FieldApartName = "apartName"
	FieldTradeDate = "tradeDate"
	FieldSize      = "size"
	FieldFloor     = "floor"
	FieldAmount    = "tradeAmount"
)

// Composer collects named fields and hashes them in sorted-name order,
// so the order fields are added in never changes the id.
type Composer struct {
	fields map[string]string
}

// NewComposer creates an empty composer.
func NewComposer() *Composer {
	return &Composer{fields: make(map[string]string)}
}

// Add sets a field. Values are whitespace-collapsed.
func (c *Composer) Add(name, value string) *Composer {
	c.fields[name] = strings.Join(strings.Fields(value), " ")
	return c
}

// ID returns the first 128 bits of the SHA-256 of "name=value" pairs joined by
// a unit separator, hex encoded.
func (c *Composer) ID() string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for i, name := range names {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(c.fields[name]))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// TransactionID identifies a sale by (region, normalized address, apartment name,
// trade date, size, floor, amount).
func TransactionID(regionCode string, r domain.TransactionRecord) string {
	return NewComposer().
		Add(FieldRegion, strings.TrimSpace(regionCode)).
		Add(FieldAddress, parser.NormalizeAddress(r.Address)).
		Add(FieldApartName, parser.NormalizeName(r.ApartName)).
		Add(FieldTradeDate, r.TradeDate).
		Add(FieldSize, strconv.FormatFloat(r.Size, 'f', 2, 64)).
		Add(FieldFloor, strconv.Itoa(r.Floor)).
		Add(FieldAmount, strconv.FormatInt(r.TradeAmount, 10)).
		ID()
}

// Tag sets TransactionID on every record and drops later duplicates,
// keeping the first occurrence and the input order.
func Tag(regionCode string, records []domain.TransactionRecord) []domain.TransactionRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]domain.TransactionRecord, 0, len(records))
	for _, r := range records {
		r.TransactionID = TransactionID(regionCode, r)
		if _, dup := seen[r.TransactionID]; dup {
			continue
		}
		seen[r.TransactionID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// IDSet returns the sorted, de-duplicated ids of records.
func IDSet(regionCode string, records []domain.TransactionRecord) []string {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[TransactionID(regionCode, r)] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
