// Package chunker splits review text into bounded-length, overlapping chunks.
//
// Text is cleaned first (whitespace collapsed, unusual characters removed).
// Text that fits in one chunk is returned as is. Longer text is cut into windows
// of the configured size; when a window does not reach the end of the text, the
// last 100 characters of the window are searched for a sentence-terminal mark
// followed by whitespace, and the window is shortened to end just after the last
// such mark. The next window starts overlap characters before the previous end,
// and always strictly after the previous start.
//
//	c, err := chunker.New(chunker.WithChunkSize(500), chunker.WithOverlap(100))
//	chunks, err := c.ChunkReview(&core.Review{ID: "r1", Text: text, Stars: 4})
package chunker
