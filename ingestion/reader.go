package ingestion

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/reviewsearch/core"
)

const maxRecordSize = 1 << 20

// record is one line of a JSON Lines review source. Datasets that label
// reviews 0-4 instead of rating them 1-5 provide label.
type record struct {
	ReviewID string `json:"review_id"`
	Text     string `json:"text"`
	Stars    *int   `json:"stars"`
	Label    *int   `json:"label"`
}

// ReadReviews reads JSON Lines reviews from r. Blank lines are skipped.
// A line without stars uses label + 1 as its rating. Ratings are not
// validated here; invalid reviews fail during ingestion.
func ReadReviews(r io.Reader) ([]*core.Review, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	reviews := []*core.Review{}
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidRecord, line, err)
		}

		review := &core.Review{ID: rec.ReviewID, Text: rec.Text}
		switch {
		case rec.Stars != nil:
			review.Stars = *rec.Stars
		case rec.Label != nil:
			review.Stars = *rec.Label + 1
		default:
			return nil, fmt.Errorf("%w: line %d: missing stars and label", ErrInvalidRecord, line)
		}
		reviews = append(reviews, review)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reviews: %w", err)
	}
	return reviews, nil
}
