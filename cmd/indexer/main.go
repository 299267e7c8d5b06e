package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rxgrid/pharmacy-discovery/internal/adapters/database"
	"github.com/rxgrid/pharmacy-discovery/internal/adapters/search"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/postgres"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/typesense"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
	"github.com/rxgrid/pharmacy-discovery/pkg/config"
)

const indexPageSize = 500

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	observability.InitLogger("pharmacy-indexer", os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	logger := observability.GetLogger()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			logger.Fatal().Err(err).Str("interval", intervalValue).Msg("invalid interval")
		}
		if interval <= 0 {
			logger.Fatal().Msg("interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			logger.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		logger.Info().Dur("next_run_in", interval).Msg("reindex complete")

		select {
		case <-ctx.Done():
			logger.Info().Msg("reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	logger := observability.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	pharmacyAdapter := database.NewPharmacyAdapter(pgClient)

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		logger.Info().Msg("deleting pharmacies collection before reindex")
		if _, err := tsClient.Client().Collection(typesense.PharmaciesCollection).Delete(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to delete collection")
		}
	}

	adapter := search.NewTypesenseAdapter(tsClient, pharmacyAdapter)
	if err := adapter.InitSchema(ctx); err != nil {
		return err
	}

	indexed := 0
	for offset := 0; ; offset += indexPageSize {
		pharmacies, err := pharmacyAdapter.ListActive(ctx, indexPageSize, offset)
		if err != nil {
			return err
		}
		if len(pharmacies) == 0 {
			break
		}

		for _, pharmacy := range pharmacies {
			if pharmacy == nil {
				continue
			}
			if err := adapter.Index(ctx, pharmacy); err != nil {
				logger.Error().Err(err).Str("pharmacy_id", pharmacy.ID).Msg("failed to index pharmacy")
				continue
			}
			indexed++
		}

		if len(pharmacies) < indexPageSize {
			break
		}
	}

	logger.Info().Int("indexed", indexed).Msg("indexing complete")
	return nil
}
