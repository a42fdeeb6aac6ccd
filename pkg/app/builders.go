// Package app assembles the services from configuration for the binaries.
package app

import (
	"context"
	"fmt"

	"apart-tracker/pkg/archive"
	"apart-tracker/pkg/cache"
	"apart-tracker/pkg/config"
	"apart-tracker/pkg/crawler"
	"apart-tracker/pkg/db"
	"apart-tracker/pkg/docstore"
	"apart-tracker/pkg/fetcher"
	"apart-tracker/pkg/httpclient"
	"apart-tracker/pkg/logger"
)

// NewFetcher builds the origin fetcher: a rotating-header client with a
// session cookie jar behind the retrying fetcher.
func NewFetcher(cfg *config.Config, log *logger.Logger) *fetcher.Fetcher {
	client := httpclient.NewClient(httpclient.RotatingClient)
	return fetcher.New(client, fetcher.Options{
		MaxAttempts:       cfg.FetchMaxAttempts,
		Timeout:           cfg.FetchTimeout,
		RequestsPerSecond: cfg.OriginRPS,
	}, log)
}

// NewCrawlService builds the crawl service. With a nil store nothing is cached.
func NewCrawlService(cfg *config.Config, f crawler.PageFetcher, store docstore.Store, log *logger.Logger) (*crawler.Service, error) {
	sc := crawler.ServiceConfig{
		BaseURL:   cfg.OriginBaseURL,
		QueryPath: cfg.OriginQueryPath,
		Crawl: crawler.Config{
			BatchSize:   cfg.CrawlBatchSize,
			Concurrency: cfg.CrawlConcurrency,
			MaxPages:    cfg.CrawlMaxPages,
		},
	}
	if store != nil {
		sc.DetailCache = cache.New(store, cache.Config{
			Collection: cfg.CacheCollection,
			Namespace:  cache.NamespaceApartDetail,
			TTL:        cfg.CacheTTL,
		}, log)
		sc.NewTransactionsCache = cache.New(store, cache.Config{
			Collection: cfg.CacheCollection,
			Namespace:  cache.NamespaceNewTransactions,
			TTL:        cfg.CacheTTL,
		}, log)
	}
	return crawler.NewService(f, sc, log)
}

// NewArchiveEngine builds the archive engine. source may be nil when only
// diffs and history are served.
func NewArchiveEngine(cfg *config.Config, store docstore.Store, source archive.TransactionSource, log *logger.Logger) (*archive.Engine, error) {
	return archive.NewEngine(archive.Config{
		Store:      store,
		Source:     source,
		Collection: cfg.ArchiveCollection,
		Logger:     log,
	})
}

// ConnectMongo connects the document store.
func ConnectMongo(ctx context.Context, cfg *config.Config) (*db.Client, error) {
	client := db.NewClient(cfg.MongoURI, cfg.MongoDB)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	return client, nil
}

// ConnectTransactions connects the relational transaction store, Postgres
// when a DSN is configured and Supabase otherwise. The returned func closes it.
func ConnectTransactions(ctx context.Context, cfg *config.Config) (*db.TransactionRepository, func() error, error) {
	if cfg.PostgresDSN != "" {
		pg := db.NewPostgresClient(db.PostgresConfig{DSN: cfg.PostgresDSN})
		if err := pg.Connect(ctx); err != nil {
			return nil, nil, err
		}
		repo, err := db.NewTransactionRepository(pg, nil)
		if err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		return repo, pg.Close, nil
	}

	if !cfg.HasRelationalSource() {
		return nil, nil, fmt.Errorf("no transaction database configured (POSTGRES_DSN or SUPABASE_URL)")
	}

	sb := db.NewSupabaseClient(db.SupabaseConfig{
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Password:    cfg.SupabasePassword,
	})
	if err := sb.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect to supabase: %w", err)
	}
	repo, err := db.NewSupabaseTransactionRepository(sb)
	if err != nil {
		_ = sb.Close()
		return nil, nil, err
	}
	return repo, sb.Close, nil
}
