package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/sensorapi"
	"github.com/02loveslollipop/ward-monitor/internal/series"
	"github.com/02loveslollipop/ward-monitor/services/watcher/internal/config"
	"github.com/02loveslollipop/ward-monitor/services/watcher/internal/db"
	"github.com/02loveslollipop/ward-monitor/services/watcher/internal/models"
	"github.com/02loveslollipop/ward-monitor/services/watcher/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("watcher failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	sensors := cat.Sensors()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(len(sensors)+1)*cfg.RequestTimeout+10*time.Second)
	defer cancel()

	client, err := sensorapi.NewClient(cfg.SensorAPIBaseURL, cfg.SensorAPIKey, cfg.SensorAPIKeyHeader, &http.Client{Timeout: cfg.RequestTimeout})
	if err != nil {
		return err
	}
	// the current minute is still being aggregated upstream
	cutoff := time.Now().UTC().Truncate(time.Minute).Add(-time.Minute)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sensorRows := utils.BuildSensorRows(sensors)
	if cfg.DryRun {
		log.Printf("dry-run: skipping sensor upsert (%d candidates)", len(sensorRows))
	} else {
		if err := db.UpsertSensors(ctx, pool, sensorRows); err != nil {
			return err
		}
	}

	lastMap, err := db.FetchLastReadings(ctx, pool, utils.SensorIDs(sensorRows))
	if err != nil {
		return err
	}

	var candidates []models.ReadingCandidate
	failed := 0
	for _, sensor := range sensors {
		raw, err := client.FetchSamples(ctx, sensor.Path, sensorapi.Query{Order: sensorapi.OrderDesc, Limit: cfg.FetchLimit})
		if err != nil {
			failed++
			log.Printf("fetch error: sensor=%s err=%v", sensor.ID, err)
			continue
		}
		readings := series.Parse(raw)
		log.Printf("fetched sensor=%s samples=%d parsed=%d", sensor.ID, len(raw), len(readings))
		candidates = append(candidates, utils.BuildReadingCandidates(sensor.ID, readings)...)
	}
	if len(sensors) > 0 && failed == len(sensors) {
		return errors.New("every sensor fetch failed")
	}

	pending := utils.FilterNewReadings(candidates, lastMap, cutoff)
	if len(pending) == 0 {
		log.Printf("no new readings to insert (cutoff=%s)", cutoff.Format(time.RFC3339))
		return nil
	}

	log.Printf("prepared %d new readings (dry-run=%v)", len(pending), cfg.DryRun)

	if cfg.DryRun {
		for _, cand := range pending {
			log.Printf("dry-run: would insert %s", utils.FormatCandidate(cand))
		}
		return nil
	}

	if err := db.InsertReadings(ctx, pool, pending); err != nil {
		return fmt.Errorf("insert readings: %w", err)
	}

	log.Printf("inserted %d readings (%d sensors failed)", len(pending), failed)
	return nil
}
