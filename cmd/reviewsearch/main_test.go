package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/reviewsearch"
	aimock "github.com/poiesic/reviewsearch/ai/mock"
	"github.com/poiesic/reviewsearch/config"
)

const reviewsJSONL = `{"review_id": "r1", "text": "The spicy ramen had a rich broth and springy noodles.", "stars": 5}
{"review_id": "r2", "text": "Slow service and a cold pizza. Would not return.", "stars": 1}

{"review_id": "r3", "text": "Friendly staff, cozy patio and decent tacos.", "label": 3}
`

// useMockEngine opens engines with a mock embedding provider for the rest of the test.
func useMockEngine(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvDatabaseURL, config.EnvBackend, config.EnvDBPath} {
		t.Setenv(key, "")
	}
	original := openEngine
	openEngine = func(ctx context.Context, cfg *config.Config) (*reviewsearch.Engine, error) {
		return reviewsearch.Open(ctx, cfg, reviewsearch.WithProvider(aimock.NewMockProvider()))
	}
	t.Cleanup(func() { openEngine = original })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"reviewsearch"}, args...))
	return out.String(), err
}

func writeReviews(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(reviewsJSONL), 0o644))
	return path
}

func TestCommands_EndToEnd(t *testing.T) {
	useMockEngine(t)
	db := filepath.Join(t.TempDir(), "reviews.db")

	out, err := run(t, "--db", db, "ingest", writeReviews(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 of 3 reviews")

	t.Run("stats", func(t *testing.T) {
		out, err := run(t, "--db", db, "stats")
		require.NoError(t, err)
		assert.Contains(t, out, "Chunks: 3")
		assert.Contains(t, out, "Reviews: 3")
		assert.Contains(t, out, "★★★★☆ 1", "label 3 is stored as four stars")
	})

	t.Run("keyword search", func(t *testing.T) {
		out, err := run(t, "--db", db, "search", "--mode", "keyword", "ramen", "broth")
		require.NoError(t, err)
		assert.Contains(t, out, "review r1")
		assert.NotContains(t, out, "review r2")
	})

	t.Run("hybrid search with explanation", func(t *testing.T) {
		out, err := run(t, "--db", db, "search", "--explain", "-n", "1", "cold", "pizza")
		require.NoError(t, err)
		assert.Contains(t, out, "Keywords: cold, pizza")
		assert.Contains(t, out, "Found 1 results")
	})

	t.Run("compare", func(t *testing.T) {
		out, err := run(t, "--db", db, "compare", "tacos")
		require.NoError(t, err)
		assert.Contains(t, out, "keyword_only")
		assert.Contains(t, out, "all three")
	})

	t.Run("optimize weights", func(t *testing.T) {
		out, err := run(t, "--db", db, "optimize-weights", "--steps", "2", "tacos")
		require.NoError(t, err)
		assert.Contains(t, out, "s0.5_k0.5")
		assert.Contains(t, out, "Use semantic=")
	})

	t.Run("sample", func(t *testing.T) {
		out, err := run(t, "--db", db, "sample", "--limit", "2")
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(out, "chunk 0"))
	})

	t.Run("clear requires force", func(t *testing.T) {
		_, err := run(t, "--db", db, "clear")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--force")
	})

	t.Run("clear", func(t *testing.T) {
		out, err := run(t, "--db", db, "clear", "--force")
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted 3 chunks")

		out, err = run(t, "--db", db, "stats")
		require.NoError(t, err)
		assert.Contains(t, out, "Chunks: 0")
	})
}

func TestSearchCommandValidation(t *testing.T) {
	useMockEngine(t)
	db := filepath.Join(t.TempDir(), "reviews.db")

	t.Run("query is required", func(t *testing.T) {
		_, err := run(t, "--db", db, "search")
		assert.ErrorIs(t, err, errQueryRequired)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := run(t, "--db", db, "search", "--mode", "fuzzy", "tacos")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid mode")
	})

	t.Run("invalid weights", func(t *testing.T) {
		_, err := run(t, "--db", db, "search", "--semantic-weight", "0", "--keyword-weight", "0", "tacos")
		assert.Error(t, err)
	})

	t.Run("ingest requires a file", func(t *testing.T) {
		_, err := run(t, "--db", db, "ingest")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "review file")
	})

	t.Run("invalid backend", func(t *testing.T) {
		_, err := run(t, "--backend", "sqlite", "stats")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestSuggestCommand(t *testing.T) {
	out, err := run(t, "suggest", "service")
	require.NoError(t, err)
	assert.Contains(t, out, "excellent service")
}

func TestLoadConfigFlags(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvBackend, "")

	load := func(args ...string) *config.Config {
		var loaded *config.Config
		app := newApp()
		app.Commands = []*cli.Command{{
			Name: "probe",
			Action: func(c *cli.Context) error {
				var err error
				loaded, err = loadConfig(c)
				return err
			},
		}}
		require.NoError(t, app.Run(append(append([]string{"reviewsearch"}, args...), "probe")))
		return loaded
	}

	cfg := load("--dsn", "postgres://localhost/reviews")
	assert.Equal(t, config.BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/reviews", cfg.Storage.DSN)

	cfg = load("--db", "/tmp/reviews")
	assert.Equal(t, config.BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/reviews", cfg.Storage.Path)

	cfg = load("--db", "/tmp/reviews", "--backend", "postgres")
	assert.Equal(t, config.BackendPostgres, cfg.Storage.Backend, "an explicit backend wins")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"WaRn", slog.LevelWarn},
			{"ERROR", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
				assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
				assert.False(t, slog.Default().Enabled(context.Background(), tc.expected-1))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}

		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		err := newApp().Run([]string{"reviewsearch", "-l", "debug", "suggest", "taco"})
		require.NoError(t, err)
		assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
	})
}
