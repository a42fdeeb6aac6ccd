package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"apart-tracker/pkg/app"
	"apart-tracker/pkg/batch"
	"apart-tracker/pkg/config"
	"apart-tracker/pkg/logger"
	"apart-tracker/pkg/replication"
)

func main() {
	cfg := config.Load()

	var (
		regionsFile = flag.String("regions-file", cfg.RegionsFile, "YAML file listing tracked regions")
		regionsFlag = flag.String("regions", "", "Comma-separated region codes (overrides -regions-file)")
		ingest      = flag.Bool("ingest", false, "Crawl each region's new transactions into the transaction database before the snapshot")
		debug       = flag.Bool("debug", cfg.Debug, "Enable debug logging")
	)
	flag.Parse()

	lg := logger.New(*debug)
	ctx := context.Background()

	regions := splitRegions(*regionsFlag)
	if len(regions) == 0 {
		loaded, err := config.LoadRegions(*regionsFile)
		if err != nil {
			log.Fatalf("Failed to load regions: %v", err)
		}
		regions = config.RegionCodes(loaded)
	}
	if len(regions) == 0 {
		log.Fatalf("No regions to snapshot")
	}

	mongo, err := app.ConnectMongo(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer mongo.Close(ctx)

	repo, closeRepo, err := app.ConnectTransactions(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to transaction database: %v", err)
	}
	defer closeRepo()
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare transaction table: %v", err)
	}

	engine, err := app.NewArchiveEngine(cfg, mongo, repo, lg)
	if err != nil {
		log.Fatalf("Failed to create archive engine: %v", err)
	}

	var ingester batch.Ingester
	if *ingest {
		// Ingest crawls bypass the cache so the snapshot sees the origin's current listings.
		svc, err := app.NewCrawlService(cfg, app.NewFetcher(cfg, lg), nil, lg)
		if err != nil {
			log.Fatalf("Failed to create crawl service: %v", err)
		}
		r, err := replication.NewReplicator(replication.Config{Crawler: svc, Writer: repo, Logger: lg})
		if err != nil {
			log.Fatalf("Failed to create replicator: %v", err)
		}
		ingester = r
	}

	start := time.Now()
	log.Printf("Snapshotting %d regions", len(regions))
	report, err := batch.NewSweeper(engine, ingester, lg).Run(ctx, regions)
	if err != nil {
		log.Fatalf("Snapshot failed: %v", err)
	}
	log.Printf("Done. %d succeeded, %d failed. Duration: %s", len(report.Succeeded), len(report.Failed), time.Since(start))
}

func splitRegions(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
