package chunker

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChunkSize is returned when the maximum chunk length is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrInvalidOverlap is returned when the overlap is negative.
	ErrInvalidOverlap = errors.New("overlap cannot be negative")

	// ErrInvalidSearchWindow is returned when the boundary search window is negative.
	ErrInvalidSearchWindow = errors.New("boundary search window cannot be negative")
)

// ChunkingError reports an invalid chunker configuration.
// It is fatal: callers should surface it rather than retry.
type ChunkingError struct {
	Param string
	Value int
	Err   error
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking: %s=%d: %v", e.Param, e.Value, e.Err)
}

func (e *ChunkingError) Unwrap() error {
	return e.Err
}
