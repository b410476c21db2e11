package badger

import (
	"encoding/binary"

	"github.com/poiesic/reviewsearch/core"
)

// Key prefixes for different data types
const (
	chunkPrefix       = "rvchk:"
	reviewIndexPrefix = "rvrev:"
	termIndexPrefix   = "rvtok:"
	chunkIDSeq        = "rvseq"
)

// keySeparator ends variable-length key segments so that one review id or term
// is never a prefix match for a longer one.
const keySeparator = 0x00

// makeChunkKey generates a key for a chunk by ID.
// Format: prefix + id (8 bytes, BigEndian so keys sort by id)
func makeChunkKey(id core.ID) []byte {
	buf := make([]byte, len(chunkPrefix)+8)
	offset := copy(buf, chunkPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeReviewKey generates a composite key for the review index.
// Format: prefix + reviewID + 0x00 + chunkIndex (4 bytes BigEndian)
func makeReviewKey(reviewID string, chunkIndex int) []byte {
	partial := makePartialReviewKey(reviewID)
	buf := make([]byte, len(partial)+4)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint32(buf[offset:], uint32(chunkIndex))
	return buf
}

// makePartialReviewKey generates the prefix shared by a review's index entries.
func makePartialReviewKey(reviewID string) []byte {
	buf := make([]byte, 0, len(reviewIndexPrefix)+len(reviewID)+1)
	buf = append(buf, reviewIndexPrefix...)
	buf = append(buf, reviewID...)
	return append(buf, keySeparator)
}

// makeTermKey generates a posting key for the inverted term index.
// Format: prefix + term + 0x00 + id (8 bytes BigEndian)
func makeTermKey(term string, id core.ID) []byte {
	partial := makePartialTermKey(term)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTermKey generates the prefix shared by a term's postings.
func makePartialTermKey(term string) []byte {
	buf := make([]byte, 0, len(termIndexPrefix)+len(term)+1)
	buf = append(buf, termIndexPrefix...)
	buf = append(buf, term...)
	return append(buf, keySeparator)
}

// idFromPostingKey extracts the chunk ID from the tail of a posting key.
func idFromPostingKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// encodeFrequency and decodeFrequency store a term frequency as a posting value.
func encodeFrequency(tf int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(tf))
	return buf
}

func decodeFrequency(val []byte) int {
	if len(val) != 4 {
		return 0
	}
	return int(binary.BigEndian.Uint32(val))
}
