package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBProvider hands out a sql.DB handle. PostgresClient and SupabaseClient
// both implement it, so TransactionRepository works over either.
type DBProvider interface {
	DB() *sql.DB
}

// PoolConfig tunes a sql.DB connection pool. Zero values keep the driver defaults.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
	ConnMaxLife  time.Duration
}

func (p PoolConfig) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxIdle > 0 {
		db.SetConnMaxIdleTime(p.ConnMaxIdle)
	}
	if p.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLife)
	}
}

// openPGX opens a pgx-backed handle, applies pool and verifies connectivity.
func openPGX(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pool.apply(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
