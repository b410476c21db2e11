// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/reviewsearch"
	"github.com/poiesic/reviewsearch/config"
)

// openEngine is replaced in tests to inject a mock embedding provider.
var openEngine = func(ctx context.Context, cfg *config.Config) (*reviewsearch.Engine, error) {
	return reviewsearch.Open(ctx, cfg, reviewsearch.WithLogger(slog.Default()))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reviewsearch",
		Usage: "Hybrid semantic and keyword search over restaurant reviews",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"REVIEWSEARCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Chunk store backend (badger, postgres)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "PostgreSQL connection string",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Chunk, embed and store reviews from a JSON Lines file",
				ArgsUsage: "FILE (- for stdin)",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Empty the store before ingesting",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of reviews to process in each batch (0 uses the config)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search stored reviews",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(queryFlags(),
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Search mode (hybrid, semantic, keyword)",
						Value: "hybrid",
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Print how the query was interpreted",
					},
				),
			},
			{
				Name:      "compare",
				Usage:     "Run a query with every search method and report the overlap",
				ArgsUsage: "QUERY",
				Action:    compareCommand,
				Flags:     queryFlags(),
			},
			{
				Name:      "optimize-weights",
				Usage:     "Sweep semantic/keyword weights for a query",
				ArgsUsage: "QUERY",
				Action:    optimizeWeightsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of weight steps between 0 and 1",
						Value: 5,
					},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Suggest query completions",
				ArgsUsage: "PARTIAL",
				Action:    suggestCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show store statistics",
				Action: statsCommand,
			},
			{
				Name:   "sample",
				Usage:  "Show stored chunks",
				Action: sampleCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of chunks to show",
						Value: 5,
					},
				},
			},
			{
				Name:   "clear",
				Usage:  "Delete every stored chunk",
				Action: clearCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Confirm deletion",
					},
				},
			},
		},
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:  "semantic-weight",
			Usage: "Relative weight of the semantic score",
		},
		&cli.Float64Flag{
			Name:  "keyword-weight",
			Usage: "Relative weight of the keyword score",
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "Minimum semantic similarity",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of results",
		},
	}
}

// loadConfig layers the config file, the .env file, the environment and the
// global flags, in that order.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if c.IsSet("dsn") {
		cfg.Storage.DSN = c.String("dsn")
		cfg.Storage.Backend = config.BackendPostgres
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
		cfg.Storage.Backend = config.BackendBadger
	}
	if c.IsSet("backend") {
		cfg.Storage.Backend = c.String("backend")
	}
	return cfg, nil
}

// withEngine loads the configuration, opens an engine and runs fn with it.
func withEngine(c *cli.Context, fn func(*reviewsearch.Engine) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()
	return fn(engine)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
