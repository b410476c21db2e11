package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/poiesic/reviewsearch/core"
)

const (
	// DefaultChunkSize is the default maximum chunk length in characters.
	DefaultChunkSize = 500
	// DefaultOverlap is the default number of characters shared by consecutive chunks.
	DefaultOverlap = 100
	// DefaultSearchWindow is how far back from a window's right edge a sentence boundary is searched for.
	DefaultSearchWindow = 100
)

var (
	unsupportedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-'"]+`)
	quoteReplacer    = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// Chunker splits review text into overlapping, sentence-aware segments.
type Chunker struct {
	chunkSize    int
	overlap      int
	searchWindow int
	filterChars  bool
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) error {
		if size <= 0 {
			return &ChunkingError{Param: "chunk size", Value: size, Err: ErrInvalidChunkSize}
		}
		c.chunkSize = size
		return nil
	}
}

// WithOverlap sets the number of characters consecutive chunks share.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) error {
		if overlap < 0 {
			return &ChunkingError{Param: "overlap", Value: overlap, Err: ErrInvalidOverlap}
		}
		c.overlap = overlap
		return nil
	}
}

// WithSearchWindow sets how many trailing characters of a window are searched
// for a sentence boundary. Zero disables boundary search.
func WithSearchWindow(window int) Option {
	return func(c *Chunker) error {
		if window < 0 {
			return &ChunkingError{Param: "search window", Value: window, Err: ErrInvalidSearchWindow}
		}
		c.searchWindow = window
		return nil
	}
}

// WithCharacterFilter toggles replacing unusual characters with spaces during cleaning.
// Default is enabled.
func WithCharacterFilter(enabled bool) Option {
	return func(c *Chunker) error {
		c.filterChars = enabled
		return nil
	}
}

// New creates a Chunker with default settings and applies the provided options.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultOverlap,
		searchWindow: DefaultSearchWindow,
		filterChars:  true,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ChunkSize returns the configured maximum chunk length.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Clean normalizes review text: curly quotes become plain quotes, unusual
// characters become spaces (when enabled), and whitespace is collapsed.
func (c *Chunker) Clean(text string) string {
	cleaned := quoteReplacer.Replace(text)
	if c.filterChars {
		cleaned = unsupportedChars.ReplaceAllString(cleaned, " ")
	}
	return core.CollapseWhitespace(cleaned)
}

// Chunk cleans text and splits it into chunks.
func (c *Chunker) Chunk(text string) []string {
	return split(c.Clean(text), c.chunkSize, c.overlap, c.searchWindow)
}

// ChunkReview splits a review into chunks tagged with the review's identity and rating.
// Chunk indices are contiguous from zero in emission order. Vectors are left empty.
func (c *Chunker) ChunkReview(review *core.Review) ([]*core.ReviewChunk, error) {
	if err := core.ValidateReview(review); err != nil {
		return nil, err
	}

	reviewID := review.ID
	if reviewID == "" {
		reviewID = core.ReviewIDFromContent(review.Text)
	}

	texts := c.Chunk(review.Text)
	chunks := make([]*core.ReviewChunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.ReviewChunk{
			ReviewID:   reviewID,
			Text:       text,
			ChunkIndex: i,
			StarRating: review.Stars,
		}
	}
	return chunks, nil
}

// Split trims and whitespace-collapses text, then splits it into chunks of at
// most maxChunkLength characters that overlap by overlapLength characters.
// Chunks end on sentence boundaries where one exists in the last 100
// characters of a window.
func Split(text string, maxChunkLength, overlapLength int) ([]string, error) {
	if maxChunkLength <= 0 {
		return nil, &ChunkingError{Param: "chunk size", Value: maxChunkLength, Err: ErrInvalidChunkSize}
	}
	if overlapLength < 0 {
		return nil, &ChunkingError{Param: "overlap", Value: overlapLength, Err: ErrInvalidOverlap}
	}
	return split(core.CollapseWhitespace(text), maxChunkLength, overlapLength, DefaultSearchWindow), nil
}

// split works on already cleaned text. Lengths are counted in runes.
func split(cleaned string, size, overlap, window int) []string {
	runes := []rune(cleaned)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= size {
		return []string{cleaned}
	}

	var chunks []string
	start, prevEnd := 0, 0
	for start < n {
		end := min(start+size, n)
		if end < n {
			// A boundary at or before the previous end would repeat that chunk's tail.
			if boundary := sentenceBoundary(runes, start, end, window); boundary > max(start, prevEnd) {
				end = boundary
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" && (len(chunks) == 0 || chunks[len(chunks)-1] != chunk) {
			chunks = append(chunks, chunk)
		}
		if end >= n {
			break
		}
		prevEnd = end

		// Never revisit a start position, even when overlap >= chunk length.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// sentenceBoundary returns the position just after the last sentence-terminal
// mark followed by whitespace within the trailing window of runes[start:end],
// or -1 when there is none.
func sentenceBoundary(runes []rune, start, end, window int) int {
	zoneStart := max(start, end-window)
	for i := end - 1; i >= zoneStart; i-- {
		if !isSentenceTerminal(runes[i]) {
			continue
		}
		if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return -1
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
