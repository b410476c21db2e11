package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/reviewsearch"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/ingestion"
	"github.com/poiesic/reviewsearch/search"
)

var errQueryRequired = errors.New("a query is required")

func ingestCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("a review file is required")
	}

	var src io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open reviews: %w", err)
		}
		defer f.Close()
		src = f
	}
	reviews, err := ingestion.ReadReviews(src)
	if err != nil {
		return fmt.Errorf("failed to read reviews: %w", err)
	}

	return withEngine(c, func(engine *reviewsearch.Engine) error {
		if n := c.Int("batch-size"); n > 0 {
			engine.Config().Reindex.BatchSize = n
		}

		pipeline, err := engine.NewIngestionPipeline()
		if err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}
		defer pipeline.Release()

		reindexer, err := engine.NewReindexer(pipeline, c.Bool("clear"), c.App.ErrWriter)
		if err != nil {
			return err
		}

		cfg := engine.Config()
		fmt.Fprintf(c.App.ErrWriter, "Backend: %s\n", cfg.Storage.Backend)
		fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedding.Model)
		fmt.Fprintln(c.App.ErrWriter)

		summary, err := reindexer.Run(c.Context, reviews)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Indexed %d of %d reviews (%d chunks, %d skipped)\n",
			summary.Indexed, summary.Reviews, summary.Chunks, summary.Skipped)
		return nil
	})
}

func searchCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}

	return withEngine(c, func(engine *reviewsearch.Engine) error {
		searcher, err := engine.NewSearcher()
		if err != nil {
			return err
		}

		q := buildQuery(c, engine, text)
		if c.Bool("explain") {
			printExplanation(c.App.Writer, searcher.Processor().Process(text, engine.Config().Search.EnhanceQueries))
		}

		var results []*core.SearchResult
		switch mode := strings.ToLower(c.String("mode")); mode {
		case search.MethodHybrid, "":
			results, err = searcher.Search(c.Context, q)
		case "semantic", search.MethodSemantic:
			results, err = searcher.SemanticOnly(c.Context, q)
		case "keyword", search.MethodKeyword:
			results, err = searcher.KeywordOnly(c.Context, q)
		default:
			return fmt.Errorf("invalid mode %q: must be one of hybrid, semantic, keyword", mode)
		}
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		printResults(c.App.Writer, results)
		return nil
	})
}

func compareCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}

	return withEngine(c, func(engine *reviewsearch.Engine) error {
		searcher, err := engine.NewSearcher()
		if err != nil {
			return err
		}
		comparison, err := searcher.CompareMethods(c.Context, buildQuery(c, engine, text))
		if err != nil {
			return fmt.Errorf("comparison failed: %w", err)
		}
		printComparison(c.App.Writer, comparison)
		return nil
	})
}

func optimizeWeightsCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}

	return withEngine(c, func(engine *reviewsearch.Engine) error {
		searcher, err := engine.NewSearcher()
		if err != nil {
			return err
		}
		report, err := searcher.FindOptimalWeights(c.Context, engine.Query(text), c.Int("steps"))
		if err != nil {
			return fmt.Errorf("weight optimization failed: %w", err)
		}
		printWeightReport(c.App.Writer, report)
		return nil
	})
}

func suggestCommand(c *cli.Context) error {
	partial := strings.Join(c.Args().Slice(), " ")
	for _, suggestion := range search.NewQueryProcessor().Suggestions(partial) {
		fmt.Fprintln(c.App.Writer, suggestion)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	return withEngine(c, func(engine *reviewsearch.Engine) error {
		stats, err := engine.Store().Stats(c.Context)
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		printStats(c.App.Writer, stats)
		return nil
	})
}

func sampleCommand(c *cli.Context) error {
	limit := c.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	return withEngine(c, func(engine *reviewsearch.Engine) error {
		chunks, err := engine.Store().Sample(c.Context, limit)
		if err != nil {
			return fmt.Errorf("failed to sample chunks: %w", err)
		}
		printChunks(c.App.Writer, chunks)
		return nil
	})
}

func clearCommand(c *cli.Context) error {
	if !c.Bool("force") {
		return fmt.Errorf("refusing to delete every chunk without --force")
	}

	return withEngine(c, func(engine *reviewsearch.Engine) error {
		count, err := engine.Store().Count(c.Context)
		if err != nil {
			return err
		}
		if err := engine.Store().Clear(c.Context); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Deleted %d chunks\n", count)
		return nil
	})
}

func queryText(c *cli.Context) (string, error) {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return "", errQueryRequired
	}
	return text, nil
}

// buildQuery applies the per-command query flags over the configured defaults.
func buildQuery(c *cli.Context, engine *reviewsearch.Engine, text string) core.Query {
	var opts []core.QueryOption
	if c.IsSet("semantic-weight") || c.IsSet("keyword-weight") {
		q := engine.Query(text)
		semantic, keyword := q.SemanticWeight, q.KeywordWeight
		if c.IsSet("semantic-weight") {
			semantic = c.Float64("semantic-weight")
		}
		if c.IsSet("keyword-weight") {
			keyword = c.Float64("keyword-weight")
		}
		opts = append(opts, core.WithWeights(semantic, keyword))
	}
	if c.IsSet("threshold") {
		opts = append(opts, core.WithMatchThreshold(c.Float64("threshold")))
	}
	if c.IsSet("limit") {
		opts = append(opts, core.WithMaxResults(c.Int("limit")))
	}
	return engine.Query(text, opts...)
}
