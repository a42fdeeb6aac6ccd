// Package batch runs the daily per-region jobs over every tracked region.
package batch

import (
	"context"
	"fmt"

	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/logger"
	"apart-tracker/pkg/replication"
)

// Snapshotter writes today's archive of a region.
type Snapshotter interface {
	SnapshotRegion(ctx context.Context, regionCode string) (domain.TransactionArchive, error)
}

// Ingester refreshes a region's transactions before the snapshot is taken.
type Ingester interface {
	ReplicateRegion(ctx context.Context, regionCode string) (replication.Stats, error)
}

// Sweeper processes regions one after another.
type Sweeper struct {
	snapshotter Snapshotter
	ingester    Ingester
	log         *logger.Logger
}

// Report is the outcome of a sweep.
type Report struct {
	Succeeded []string
	Failed    map[string]error
}

// NewSweeper creates a sweeper. ingester may be nil to snapshot whatever the
// transaction store already holds.
func NewSweeper(s Snapshotter, ingester Ingester, log *logger.Logger) *Sweeper {
	return &Sweeper{snapshotter: s, ingester: ingester, log: logger.OrDefault(log)}
}

// Run handles each region in order. A region that fails is logged and
// recorded in the report, and the sweep moves on to the next one. Run returns
// an error only if ctx ends or every region failed.
func (s *Sweeper) Run(ctx context.Context, regions []string) (Report, error) {
	report := Report{Failed: map[string]error{}}

	for i, region := range regions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := s.runRegion(ctx, region); err != nil {
			report.Failed[region] = err
			s.log.Error("[batch] region %s (%d/%d) failed: %v", region, i+1, len(regions), err)
			continue
		}
		report.Succeeded = append(report.Succeeded, region)
	}

	s.log.Info("[batch] completed: %d successful, %d errors (total: %d)", len(report.Succeeded), len(report.Failed), len(regions))

	if len(report.Failed) > 0 && len(report.Succeeded) == 0 {
		return report, fmt.Errorf("all %d regions failed", len(report.Failed))
	}
	return report, nil
}

func (s *Sweeper) runRegion(ctx context.Context, region string) error {
	if s.ingester != nil {
		if _, err := s.ingester.ReplicateRegion(ctx, region); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	}

	archive, err := s.snapshotter.SnapshotRegion(ctx, region)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	s.log.Info("[batch] region %s: archived %d ids as %s", region, len(archive.TransactionIDs), archive.ID)
	return nil
}
