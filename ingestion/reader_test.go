package ingestion

import (
	"strings"
	"testing"

	"github.com/poiesic/reviewsearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadReviews(t *testing.T) {
	input := `{"review_id": "r1", "text": "Great tacos.", "stars": 5}

{"text": "Slow service.", "label": 1}
`
	reviews, err := ReadReviews(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []*core.Review{
		{ID: "r1", Text: "Great tacos.", Stars: 5},
		{Text: "Slow service.", Stars: 2},
	}, reviews)
}

func TestReadReviews_Errors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, err := ReadReviews(strings.NewReader(`{"text": "ok", "stars": 3}` + "\n{oops"))
		assert.ErrorIs(t, err, ErrInvalidRecord)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("missing rating", func(t *testing.T) {
		_, err := ReadReviews(strings.NewReader(`{"text": "no rating"}`))
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("empty input", func(t *testing.T) {
		reviews, err := ReadReviews(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, reviews)
	})
}
