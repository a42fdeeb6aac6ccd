package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/identity"

	supabase "github.com/supabase-community/supabase-go"
)

// TransactionsTable holds every crawled trade, one row per transaction id.
const TransactionsTable = "apart_transactions"

// transactionRow is the relational shape of a trade. The json tags are the
// column names used by the Supabase REST API.
type transactionRow struct {
	TransactionID  string  `json:"transaction_id"`
	RegionCode     string  `json:"region_code"`
	DealYearMonth  string  `json:"deal_ym"` // YYYYMM
	ApartName      string  `json:"apart_name"`
	Address        string  `json:"address"`
	TradeDate      string  `json:"trade_date"` // YYYY-MM-DD
	Size           float64 `json:"size"`
	Floor          int     `json:"floor"`
	TradeAmount    int64   `json:"trade_amount"`
	MaxTradeAmount int64   `json:"max_trade_amount"`
	IsNewRecord    bool    `json:"is_new_record"`
}

func (r transactionRow) record() domain.TransactionRecord {
	return domain.TransactionRecord{
		TransactionID:  r.TransactionID,
		ApartName:      r.ApartName,
		Address:        r.Address,
		TradeDate:      r.TradeDate,
		Size:           r.Size,
		Floor:          r.Floor,
		TradeAmount:    r.TradeAmount,
		MaxTradeAmount: r.MaxTradeAmount,
		IsNewRecord:    r.IsNewRecord,
	}
}

func newTransactionRow(regionCode string, rec domain.TransactionRecord) transactionRow {
	id := rec.TransactionID
	if id == "" {
		id = identity.TransactionID(regionCode, rec)
	}
	return transactionRow{
		TransactionID:  id,
		RegionCode:     regionCode,
		DealYearMonth:  DealYearMonth(rec.TradeDate),
		ApartName:      rec.ApartName,
		Address:        rec.Address,
		TradeDate:      rec.TradeDate,
		Size:           rec.Size,
		Floor:          rec.Floor,
		TradeAmount:    rec.TradeAmount,
		MaxTradeAmount: rec.MaxTradeAmount,
		IsNewRecord:    rec.IsNewRecord,
	}
}

// DealYearMonth turns a YYYY-MM-DD trade date into the YYYYMM partition key.
func DealYearMonth(tradeDate string) string {
	ym := strings.ReplaceAll(tradeDate, "-", "")
	if len(ym) < 6 {
		return ""
	}
	return ym[:6]
}

// TransactionRepository reads and writes the per-region, per-month trade
// listings. It prefers a direct SQL connection and falls back to the Supabase
// REST API when only that is configured.
type TransactionRepository struct {
	sql  DBProvider
	rest *supabase.Client
}

// NewTransactionRepository creates a repository. Either argument may be nil,
// but not both.
func NewTransactionRepository(provider DBProvider, rest *supabase.Client) (*TransactionRepository, error) {
	if provider == nil && rest == nil {
		return nil, fmt.Errorf("a SQL connection or a Supabase client is required")
	}
	return &TransactionRepository{sql: provider, rest: rest}, nil
}

// NewSupabaseTransactionRepository uses whatever the Supabase client connected:
// the direct database if available, the REST API otherwise.
func NewSupabaseTransactionRepository(c *SupabaseClient) (*TransactionRepository, error) {
	var provider DBProvider
	if c.HasDirectDB() {
		provider = c
	}
	return NewTransactionRepository(provider, c.SDK())
}

func (r *TransactionRepository) db() *sql.DB {
	if r.sql == nil {
		return nil
	}
	return r.sql.DB()
}

// EnsureSchema creates the transactions table when missing. It is a no-op in
// REST mode, where the table is managed from the Supabase dashboard.
func (r *TransactionRepository) EnsureSchema(ctx context.Context) error {
	db := r.db()
	if db == nil {
		return nil
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS apart_transactions (
  transaction_id TEXT PRIMARY KEY,
  region_code TEXT NOT NULL,
  deal_ym TEXT NOT NULL,
  apart_name TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  trade_date TEXT NOT NULL,
  size DOUBLE PRECISION NOT NULL,
  floor INTEGER NOT NULL DEFAULT 0,
  trade_amount BIGINT NOT NULL,
  max_trade_amount BIGINT NOT NULL DEFAULT 0,
  is_new_record BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS apart_transactions_region_month ON apart_transactions (region_code, deal_ym);`

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", TransactionsTable, err)
	}
	return nil
}

// ListTransactions returns the trades of a region in one month (YYYYMM),
// ordered by trade date.
func (r *TransactionRepository) ListTransactions(ctx context.Context, regionCode, yearMonth string) ([]domain.TransactionRecord, error) {
	if db := r.db(); db != nil {
		return r.listSQL(ctx, db, regionCode, yearMonth)
	}
	return r.listREST(regionCode, yearMonth)
}

func (r *TransactionRepository) listSQL(ctx context.Context, db *sql.DB, regionCode, yearMonth string) ([]domain.TransactionRecord, error) {
	const query = `
SELECT transaction_id, apart_name, address, trade_date, size, floor, trade_amount, max_trade_amount, is_new_record
FROM apart_transactions
WHERE region_code = $1 AND deal_ym = $2
ORDER BY trade_date, transaction_id`

	rows, err := db.QueryContext(ctx, query, regionCode, yearMonth)
	if err != nil {
		return nil, fmt.Errorf("query transactions %s/%s: %w", regionCode, yearMonth, err)
	}
	defer rows.Close()

	var out []domain.TransactionRecord
	for rows.Next() {
		var row transactionRow
		if err := rows.Scan(&row.TransactionID, &row.ApartName, &row.Address, &row.TradeDate,
			&row.Size, &row.Floor, &row.TradeAmount, &row.MaxTradeAmount, &row.IsNewRecord); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, row.record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (r *TransactionRepository) listREST(regionCode, yearMonth string) ([]domain.TransactionRecord, error) {
	if r.rest == nil {
		return nil, fmt.Errorf("database not connected")
	}

	var rows []transactionRow
	_, err := r.rest.From(TransactionsTable).
		Select("*", "", false).
		Eq("region_code", regionCode).
		Eq("deal_ym", yearMonth).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select transactions %s/%s: %w", regionCode, yearMonth, err)
	}

	out := make([]domain.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// SaveTransactions stores records of a region, skipping ids already present.
// It reports how many rows were new; in REST mode every row sent is counted.
// Records without a parseable trade date are ignored.
func (r *TransactionRepository) SaveTransactions(ctx context.Context, regionCode string, records []domain.TransactionRecord) (int, error) {
	rows := make([]transactionRow, 0, len(records))
	for _, rec := range records {
		row := newTransactionRow(regionCode, rec)
		if row.DealYearMonth == "" {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if db := r.db(); db != nil {
		return r.insertSQL(ctx, db, rows)
	}
	if r.rest == nil {
		return 0, fmt.Errorf("database not connected")
	}
	_, _, err := r.rest.From(TransactionsTable).
		Upsert(rows, "transaction_id", "minimal", "").
		Execute()
	if err != nil {
		return 0, fmt.Errorf("upsert transactions: %w", err)
	}
	return len(rows), nil
}

// insertSQL inserts rows within a transaction and returns the number of new rows.
func (r *TransactionRepository) insertSQL(ctx context.Context, db *sql.DB, rows []transactionRow) (int, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertQuery = `
INSERT INTO apart_transactions
  (transaction_id, region_code, deal_ym, apart_name, address, trade_date, size, floor, trade_amount, max_trade_amount, is_new_record)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (transaction_id) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row.TransactionID, row.RegionCode, row.DealYearMonth, row.ApartName,
			row.Address, row.TradeDate, row.Size, row.Floor, row.TradeAmount, row.MaxTradeAmount, row.IsNewRecord)
		if err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", row.TransactionID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}
