package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/metrics"
	"github.com/02loveslollipop/ward-monitor/internal/poller"
	"github.com/02loveslollipop/ward-monitor/internal/sensorapi"
	"github.com/02loveslollipop/ward-monitor/services/api/config"
	"github.com/02loveslollipop/ward-monitor/services/api/db"
	httpserver "github.com/02loveslollipop/ward-monitor/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("catalog error: %v", err)
	}

	client, err := sensorapi.NewClient(cfg.SensorAPIBaseURL, cfg.SensorAPIKey, cfg.SensorAPIKeyHeader, &http.Client{})
	if err != nil {
		log.Fatalf("sensor api error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics.Init()

	var archive httpserver.Archive
	if cfg.HasDatabase() {
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connection error: %v", err)
		}
		defer store.Close()
		archive = store
	} else {
		log.Printf("DATABASE_URL not set; history and access logs disabled")
	}

	hub := poller.NewHub(cat, client, poller.Settings{
		Interval:       cfg.PollInterval,
		AlignOffset:    cfg.PollAlignOffset,
		Timeout:        cfg.PollTimeout,
		Window:         cfg.SeriesWindow,
		Skew:           cfg.SeriesSkew,
		TrendThreshold: cfg.TrendThreshold,
	}, poller.SystemClock{}, log.New(os.Stderr, "poller: ", log.LstdFlags))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	log.Printf("polling %d sensors every %s", len(cat.Sensors()), cfg.PollInterval)

	srv := httpserver.New(cfg, cat, hub, archive)
	log.Printf("REST API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		cancel()
		wg.Wait()
		log.Fatalf("server error: %v", err)
	}
	wg.Wait()
}
