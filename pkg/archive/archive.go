// Package archive keeps daily per-region snapshots of visible transaction ids
// and answers "what is new since the previous day".
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"apart-tracker/pkg/clock"
	"apart-tracker/pkg/docstore"
	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/identity"
	"apart-tracker/pkg/logger"
)

// DefaultCollection holds TransactionArchive documents.
const DefaultCollection = "transaction_archives"

// ErrNoSource is returned by SnapshotRegion on an engine built without a
// TransactionSource.
var ErrNoSource = errors.New("transaction source is not set")

// TransactionSource lists a region's transactions for one month (YYYYMM).
type TransactionSource interface {
	ListTransactions(ctx context.Context, regionCode, yearMonth string) ([]domain.TransactionRecord, error)
}

// Config holds configuration for the Engine
type Config struct {
	Store      docstore.Store
	Source     TransactionSource
	Collection string
	Clock      clock.Clock
	Logger     *logger.Logger
}

// Engine writes snapshots and computes diffs.
type Engine struct {
	store      docstore.Store
	source     TransactionSource
	collection string
	clock      clock.Clock
	log        *logger.Logger
}

// NewEngine creates an engine. Store is required; Source is only needed by SnapshotRegion.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	return &Engine{
		store:      cfg.Store,
		source:     cfg.Source,
		collection: cfg.Collection,
		clock:      clock.OrSystem(cfg.Clock),
		log:        logger.OrDefault(cfg.Logger),
	}, nil
}

// SnapshotRegion records every transaction id currently visible for the region
// (this month and the previous one) as today's archive. A rerun on the same day
// replaces the archive.
func (e *Engine) SnapshotRegion(ctx context.Context, regionCode string) (domain.TransactionArchive, error) {
	if e.source == nil {
		return domain.TransactionArchive{}, ErrNoSource
	}

	now := e.clock.Now()
	var records []domain.TransactionRecord
	for _, month := range []string{clock.Month(now, 0), clock.Month(now, -1)} {
		rs, err := e.source.ListTransactions(ctx, regionCode, month)
		if err != nil {
			return domain.TransactionArchive{}, fmt.Errorf("list transactions %s/%s: %w", regionCode, month, err)
		}
		records = append(records, rs...)
	}

	day := clock.Day(now)
	archive := domain.TransactionArchive{
		ID:             domain.ArchiveID(day, regionCode),
		RegionCode:     regionCode,
		Date:           day,
		TransactionIDs: identity.IDSet(regionCode, records),
		SavedAt:        now,
	}

	if err := e.store.Upsert(ctx, e.collection, archive.ID, archive); err != nil {
		return domain.TransactionArchive{}, fmt.Errorf("save archive %s: %w", archive.ID, err)
	}

	e.log.Info("[archive] %s: %d records, %d unique ids", archive.ID, len(records), len(archive.TransactionIDs))
	return archive, nil
}

// DiffNewTransactions returns the ids present in the latest archive (today's,
// or yesterday's if today's is not written yet) but absent from the archive of
// the day before it. Without both archives the result is empty.
func (e *Engine) DiffNewTransactions(ctx context.Context, regionCode string) (domain.DiffResult, error) {
	empty := domain.DiffResult{TransactionIDs: []string{}}

	day := clock.Today(e.clock)
	current, found, err := e.load(ctx, day, regionCode)
	if err != nil {
		return empty, err
	}
	if !found {
		if day, err = clock.PreviousDay(day); err != nil {
			return empty, err
		}
		current, found, err = e.load(ctx, day, regionCode)
		if err != nil || !found {
			return empty, err
		}
	}

	prevDay, err := clock.PreviousDay(current.Date)
	if err != nil {
		return empty, err
	}
	previous, found, err := e.load(ctx, prevDay, regionCode)
	if err != nil || !found {
		return empty, err
	}

	ids := Difference(current.TransactionIDs, previous.TransactionIDs)
	return domain.DiffResult{Count: len(ids), TransactionIDs: ids}, nil
}

// History lists every archive of a region, oldest first.
func (e *Engine) History(ctx context.Context, regionCode string) ([]domain.TransactionArchive, error) {
	var archives []domain.TransactionArchive
	if err := e.store.FindByField(ctx, e.collection, "region_code", regionCode, &archives); err != nil {
		return nil, fmt.Errorf("list archives for %s: %w", regionCode, err)
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].Date < archives[j].Date })
	return archives, nil
}

func (e *Engine) load(ctx context.Context, day, regionCode string) (domain.TransactionArchive, bool, error) {
	var a domain.TransactionArchive
	id := domain.ArchiveID(day, regionCode)
	found, err := e.store.Get(ctx, e.collection, id, &a)
	if err != nil {
		return a, false, fmt.Errorf("load archive %s: %w", id, err)
	}
	if found && a.Date == "" {
		a.Date = day
	}
	return a, found, nil
}

// Difference returns the sorted ids of current that are not in previous.
func Difference(current, previous []string) []string {
	prev := make(map[string]struct{}, len(previous))
	for _, id := range previous {
		prev[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, id := range current {
		if _, ok := prev[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
