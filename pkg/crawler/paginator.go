// Package crawler walks the origin's paginated result lists.
//
// Pages are requested in batches of consecutive page numbers. The pages of a
// batch are fetched concurrently, and the next batch starts only after the
// whole batch settled. Crawling stops after the first batch in which no page
// produced a record, or at the page ceiling.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/logger"
	"apart-tracker/pkg/parser"

	"golang.org/x/sync/errgroup"
)

// ErrNoPages is returned when not a single page could be fetched.
var ErrNoPages = errors.New("no result pages could be fetched")

// Defaults.
const (
	DefaultBatchSize   = 5
	DefaultConcurrency = 5
	DefaultMaxPages    = 100
)

// PageFunc fetches and parses one result page (1-based).
type PageFunc func(ctx context.Context, page int) (parser.PageResult, error)

// Config holds configuration for a Paginator
type Config struct {
	BatchSize   int // consecutive pages per batch
	Concurrency int // simultaneous page fetches
	MaxPages    int // hard ceiling on pages requested
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	return c
}

// Result aggregates a crawl.
type Result struct {
	Records       []domain.TransactionRecord
	Pages         int // pages requested
	PagesWithData int
	FailedPages   int
	Dropped       int // rows dropped for missing required fields
	Duration      time.Duration
}

// pageOutcome is the state of one page after its batch settled.
type pageOutcome struct {
	page    int
	result  parser.PageResult
	err     error
	hasData bool
}

// Paginator runs the batch loop.
type Paginator struct {
	cfg Config
	log *logger.Logger
}

// NewPaginator creates a paginator.
func NewPaginator(cfg Config, log *logger.Logger) *Paginator {
	return &Paginator{cfg: cfg.withDefaults(), log: logger.OrDefault(log)}
}

// Crawl requests pages 1, 2, ... through fetch. A page that fails is treated
// as a page without data; its error is logged and not returned. Crawl fails
// only with ErrNoPages, when every requested page failed, or with the context
// error if ctx ends first.
func (p *Paginator) Crawl(ctx context.Context, fetch PageFunc) (Result, error) {
	start := time.Now()
	var res Result
	var firstErr error

	page := 1
	hasMore := true
	for hasMore && page <= p.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		end := min(page+p.cfg.BatchSize-1, p.cfg.MaxPages)
		outcomes := p.runBatch(ctx, page, end, fetch)

		batchHasData := false
		for _, o := range outcomes {
			res.Pages++
			if o.err != nil {
				res.FailedPages++
				if firstErr == nil {
					firstErr = o.err
				}
				p.log.Warn("[crawler] page %d failed: %v", o.page, o.err)
				continue
			}
			res.Dropped += o.result.Dropped
			if o.result.Dropped > 0 {
				p.log.Debug("[crawler] page %d: dropped %d of %d rows", o.page, o.result.Dropped, o.result.Rows)
			}
			if !o.hasData {
				continue
			}
			batchHasData = true
			res.PagesWithData++
			res.Records = append(res.Records, o.result.Records...)
		}

		if !batchHasData {
			hasMore = false
			p.log.Debug("[crawler] no data in pages %d-%d, stopping", page, end)
		}
		page = end + 1
	}

	if hasMore && page > p.cfg.MaxPages {
		p.log.Info("[crawler] reached max pages limit (%d), stopping pagination", p.cfg.MaxPages)
	}

	res.Duration = time.Since(start)

	if res.Pages > 0 && res.FailedPages == res.Pages {
		return res, fmt.Errorf("%w: %w", ErrNoPages, firstErr)
	}
	return res, nil
}

// runBatch fetches pages [from, to] with at most Concurrency in flight and
// returns their outcomes in page order.
func (p *Paginator) runBatch(ctx context.Context, from, to int, fetch PageFunc) []pageOutcome {
	outcomes := make([]pageOutcome, to-from+1)

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for n := from; n <= to; n++ {
		n := n
		g.Go(func() error {
			pr, err := fetch(ctx, n)
			outcomes[n-from] = pageOutcome{
				page:    n,
				result:  pr,
				err:     err,
				hasData: err == nil && len(pr.Records) > 0,
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
