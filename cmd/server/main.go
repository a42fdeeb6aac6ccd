package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apart-tracker/pkg/api"
	"apart-tracker/pkg/app"
	"apart-tracker/pkg/archive"
	"apart-tracker/pkg/config"
	"apart-tracker/pkg/logger"
)

func main() {
	cfg := config.Load()

	var (
		addr  = flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
		debug = flag.Bool("debug", cfg.Debug, "Enable debug logging")
	)
	flag.Parse()

	lg := logger.New(*debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongo, err := app.ConnectMongo(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer mongo.Close(context.Background())

	// Snapshots over HTTP need the transaction database; diffs and history do not.
	var source archive.TransactionSource
	if cfg.HasRelationalSource() {
		repo, closeRepo, err := app.ConnectTransactions(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to transaction database: %v", err)
		}
		defer closeRepo()
		source = repo
	}

	svc, err := app.NewCrawlService(cfg, app.NewFetcher(cfg, lg), mongo, lg)
	if err != nil {
		log.Fatalf("Failed to create crawl service: %v", err)
	}
	engine, err := app.NewArchiveEngine(cfg, mongo, source, lg)
	if err != nil {
		log.Fatalf("Failed to create archive engine: %v", err)
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           api.NewRouter(api.NewAPIHandler(svc, engine, lg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	lg.Info("[server] listening on %s", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	lg.Info("[server] stopped")
}
