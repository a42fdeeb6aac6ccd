package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"apart-tracker/pkg/app"
	"apart-tracker/pkg/config"
	"apart-tracker/pkg/logger"
)

func main() {
	cfg := config.Load()

	var (
		area      = flag.String("area", "", "Region code to crawl (required)")
		apartName = flag.String("apart", "", "Apartment name; crawls the apartment detail instead of new transactions")
		baseURL   = flag.String("base-url", cfg.OriginBaseURL, "Origin base URL")
		maxPages  = flag.Int("max-pages", cfg.CrawlMaxPages, "Max result pages to request")
		debug     = flag.Bool("debug", cfg.Debug, "Enable debug logging")
	)
	flag.Parse()

	if *area == "" {
		flag.Usage()
		os.Exit(2)
	}
	cfg.OriginBaseURL = *baseURL
	cfg.CrawlMaxPages = *maxPages

	// Progress goes to stderr so stdout stays valid JSON.
	lg := logger.NewWithWriter(os.Stderr, *debug)
	svc, err := app.NewCrawlService(cfg, app.NewFetcher(cfg, lg), nil, lg)
	if err != nil {
		log.Fatalf("Failed to create crawl service: %v", err)
	}

	ctx := context.Background()
	start := time.Now()

	var result any
	if *apartName != "" {
		result, err = svc.CrawlApartDetail(ctx, *apartName, *area)
	} else {
		result, err = svc.CrawlNewTransactions(ctx, *area)
	}
	if err != nil {
		log.Fatalf("Crawl failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}
	lg.Info("[crawl] done in %s", time.Since(start))
}
