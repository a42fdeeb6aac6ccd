package replication

import (
	"context"
	"fmt"
	"sync"

	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/logger"
)

// TransactionCrawler lists the trades the origin currently shows for an area.
type TransactionCrawler interface {
	CrawlNewTransactions(ctx context.Context, area string) (domain.NewTransactions, error)
}

// TransactionWriter stores trades of a region and reports how many were new.
type TransactionWriter interface {
	SaveTransactions(ctx context.Context, regionCode string, records []domain.TransactionRecord) (int, error)
}

// Config wires the replication dependencies.
type Config struct {
	Crawler TransactionCrawler
	Writer  TransactionWriter
	Logger  *logger.Logger

	BatchSize int // records per write, default 100
	Workers   int // concurrent writers, default 5
}

// Replicator copies crawled trades into the relational transaction store,
// which the archive snapshots read from.
type Replicator struct {
	crawler   TransactionCrawler
	writer    TransactionWriter
	log       *logger.Logger
	batchSize int
	workers   int
}

// Stats summarizes one region's replication.
type Stats struct {
	Crawled  int
	Inserted int
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Crawler == nil {
		return nil, fmt.Errorf("crawler is required")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("transaction writer is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	return &Replicator{
		crawler:   cfg.Crawler,
		writer:    cfg.Writer,
		log:       logger.OrDefault(cfg.Logger),
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
	}, nil
}

// ReplicateRegion crawls the region's listed trades and stores the ones not
// yet known. Writing is idempotent per transaction id.
func (r *Replicator) ReplicateRegion(ctx context.Context, regionCode string) (Stats, error) {
	listed, err := r.crawler.CrawlNewTransactions(ctx, regionCode)
	if err != nil {
		return Stats{}, fmt.Errorf("crawl %s: %w", regionCode, err)
	}

	r.log.Info("[replication] %s: crawled %d trades from %d pages", regionCode, len(listed.List), listed.TotalPages)

	inserted, err := r.processBatches(ctx, regionCode, listed.List)
	if err != nil {
		return Stats{Crawled: len(listed.List), Inserted: inserted}, err
	}

	r.log.Info("[replication] %s: inserted %d new trades", regionCode, inserted)
	return Stats{Crawled: len(listed.List), Inserted: inserted}, nil
}

// processBatches writes records in batches on a fixed pool of workers and
// fails on the first batch error.
func (r *Replicator) processBatches(ctx context.Context, regionCode string, records []domain.TransactionRecord) (int, error) {
	type batchJob struct {
		batch      []domain.TransactionRecord
		start, end int
	}
	type batchResult struct {
		inserted int
		err      error
	}

	numBatches := (len(records) + r.batchSize - 1) / r.batchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(records); start += r.batchSize {
		end := min(start+r.batchSize, len(records))
		jobs <- batchJob{batch: records[start:end], start: start, end: end}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				n, err := r.writer.SaveTransactions(ctx, regionCode, job.batch)
				if err != nil {
					err = fmt.Errorf("save batch [%d:%d] of %s: %w", job.start, job.end, regionCode, err)
				}
				results <- batchResult{inserted: n, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	total := 0
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		total += res.inserted
	}
	return total, firstErr
}
