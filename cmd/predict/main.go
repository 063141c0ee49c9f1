// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Predict runs the next-item model against a hand-built cart history.

Usage:

	predict <season> <period> <item>...

The items are added to the cart one by one, giving the cumulative history
[[], [a], [a b], ...]. The tool prints the predicted next item and every
recipe the resolver picks, with the items still missing. Configuration is
read the same way as the cartsense service (CONFIG_PATH and environment
variables); only the inference, vocabulary, catalog and storage sections
are used.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cartsense/internal/catalog"
	"github.com/tomtom215/cartsense/internal/config"
	"github.com/tomtom215/cartsense/internal/inference"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/recommend"
	"github.com/tomtom215/cartsense/internal/vocab"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: predict <season> <period> <item>...")
		os.Exit(2)
	}

	season, err := models.ParseSeason(os.Args[1])
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid season")
	}
	period, err := models.ParsePeriod(os.Args[2])
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid period")
	}

	cfg, err := config.Load("")
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.Logging.LoggingConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := cfg.Vocabulary.Table()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build vocabulary")
	}
	cat, err := catalog.Load(ctx, cfg.Catalog.Location, cfg.Storage, table)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load recipe catalog")
	}
	client, err := inference.NewClient(ctx, cfg.Inference)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create inference client")
	}
	engine, err := recommend.NewEngine(client, table, cat, cfg.RecommendConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	history := cumulativeHistory(os.Args[3:])
	setting := models.Setting{Season: season, Period: period}

	next, err := engine.PredictNext(ctx, history, setting)
	if err != nil {
		logging.Fatal().Err(err).Msg("Prediction failed")
	}
	fmt.Printf("History: %v -> Next: %s\n", history, next)

	keyItem := next
	if keyItem == vocab.EndItem {
		keyItem = ""
	}
	current := history.Last()
	recipes, tier := recommend.Resolve(cat.Recipes(), current, keyItem)
	fmt.Printf("Matched %d recipes (tier %d)\n", len(recipes), tier)
	for _, r := range recipes {
		fmt.Printf("  %s: Must buy %v\n", r.Name, r.Missing(current))
	}
}

// cumulativeHistory adds items to an empty cart one at a time.
func cumulativeHistory(items []string) models.CartHistory {
	history := models.NewCartHistory()
	for _, item := range items {
		history = append(history, history.Last().With(item))
	}
	return history
}
