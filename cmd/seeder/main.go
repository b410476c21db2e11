package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/reviewsearch"
	"github.com/poiesic/reviewsearch/config"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/ingestion"
	"github.com/poiesic/reviewsearch/storage"
)

var seedReviews = []*core.Review{
	{ID: "seed-001", Stars: 5, Text: "The hand-pulled noodles were springy and the pork broth was rich without being greasy. Service was quick and the staff remembered our order from last time."},
	{ID: "seed-002", Stars: 1, Text: "Waited forty minutes for a cold pizza. The server never came back to refill our drinks and the manager shrugged when we complained."},
	{ID: "seed-003", Stars: 4, Text: "Cozy patio, friendly staff and solid tacos. The salsa verde had real heat. A bit pricey for the portion size but we will be back."},
	{ID: "seed-004", Stars: 3, Text: "Decent burgers, soggy fries. The milkshake was the highlight. Parking is a nightmare on weekends."},
	{ID: "seed-005", Stars: 5, Text: "Perfect date night spot. Candlelit tables, a thoughtful wine list and the best duck confit I have had outside of Paris."},
	{ID: "seed-006", Stars: 2, Text: "The sushi rice was mushy and the fish tasted like it had been sitting out. Nice decor does not make up for bad food."},
	{ID: "seed-007", Stars: 4, Text: "Great value lunch special. Curry was fragrant and spicy, naan was fresh from the oven. Gets loud at noon."},
	{ID: "seed-008", Stars: 5, Text: "Family friendly and the kids menu is not an afterthought. Our server brought crayons and kept the chicken tenders coming."},
	{ID: "seed-009", Stars: 1, Text: "Overpriced and underwhelming. Twenty dollars for a salad with three pieces of wilted lettuce. Rude hostess too."},
	{ID: "seed-010", Stars: 3, Text: "The brunch menu is creative but execution is uneven. Eggs benedict were perfect, the pancakes were dry."},
	{ID: "seed-011", Stars: 4, Text: "Authentic dim sum carts on Sunday mornings. Har gow and siu mai were excellent. Expect a line after ten."},
	{ID: "seed-012", Stars: 5, Text: "Best steak in town. Dry aged ribeye cooked exactly medium rare, creamed spinach on the side, and attentive service throughout."},
	{ID: "seed-013", Stars: 2, Text: "Slow service even though the dining room was half empty. The pasta was fine but nothing special."},
	{ID: "seed-014", Stars: 4, Text: "Vegetarian options are plentiful and actually tasty. The falafel was crispy and the hummus silky smooth."},
	{ID: "seed-015", Stars: 3, Text: "Good coffee, average pastries. Wifi is reliable so it is a decent place to work for a few hours."},
	{ID: "seed-016", Stars: 5, Text: "The chef's tasting menu was a journey. Every course was beautifully plated and the sommelier's pairings were spot on."},
	{ID: "seed-017", Stars: 1, Text: "Found a hair in my soup and the waiter argued with me about it. Never again."},
	{ID: "seed-018", Stars: 4, Text: "Fast, cheap and fresh. The banh mi has crunchy bread, pickled vegetables and plenty of cilantro."},
	{ID: "seed-019", Stars: 3, Text: "The view of the harbor is stunning but the seafood platter was overcooked. Come for drinks at sunset instead."},
	{ID: "seed-020", Stars: 5, Text: "Romantic atmosphere, live jazz on Fridays, and a tiramisu worth the trip alone. Reservations recommended."},
}

func main() {
	app := &cli.App{
		Name:  "seeder",
		Usage: "Load a small set of restaurant reviews into a store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "src",
				Usage: "JSON Lines file of reviews (defaults to the built-in set)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides the config)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to YAML config file",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of reviews ingested per call",
				Value: 5,
			},
		},
		Before: func(c *cli.Context) error {
			handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			})
			slog.SetDefault(slog.New(handler))
			return nil
		},
		Action: seed,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seed(c *cli.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if c.IsSet("db") {
		cfg.Storage.Backend = config.BackendBadger
		cfg.Storage.Path = c.String("db")
	}

	engine, err := reviewsearch.Open(c.Context, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	source := reviewsFromSlice(seedReviews)
	if path := c.String("src"); path != "" {
		if source, err = reviewsFromFile(path); err != nil {
			return err
		}
	}

	indexed, err := ingestBatched(c.Context, pipeline, source, c.Int("batch-size"))
	if err != nil {
		return err
	}
	slog.Info("seeding complete", "reviews", indexed)
	return nil
}

// reviewsFromFile reads a JSON Lines review file.
func reviewsFromFile(path string) (iter.Seq[*core.Review], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reviews, err := ingestion.ReadReviews(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return reviewsFromSlice(reviews), nil
}

// reviewsFromSlice returns an iterator over a slice of reviews.
func reviewsFromSlice(reviews []*core.Review) iter.Seq[*core.Review] {
	return func(yield func(*core.Review) bool) {
		for _, review := range reviews {
			if !yield(review) {
				return
			}
		}
	}
}

// ingestBatched reads from a source iterator and ingests reviews in batches.
// It returns the number of reviews stored.
func ingestBatched(ctx context.Context, pipeline *ingestion.Pipeline, source iter.Seq[*core.Review], batchSize int) (int, error) {
	batchSize = max(batchSize, 1)
	batch := make([]*core.Review, 0, batchSize)
	indexed := 0

	flush := func() error {
		report, err := pipeline.Ingest(ctx, batch...)
		batch = batch[:0]
		if report == nil {
			return err
		}
		indexed += report.Succeeded
		if err != nil && onlyDuplicates(report) {
			slog.Info("skipping reviews that are already seeded", "count", len(report.Failures))
			return nil
		}
		return err
	}

	for review := range source {
		batch = append(batch, review)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return indexed, err
			}
		}
	}

	// Process any remaining reviews
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return indexed, err
		}
	}

	return indexed, nil
}

func onlyDuplicates(report *ingestion.Report) bool {
	for _, failure := range report.Failures {
		if !errors.Is(failure.Err, storage.ErrDuplicateChunk) {
			return false
		}
	}
	return true
}
