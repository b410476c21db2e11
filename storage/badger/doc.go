// Package badger implements storage.ChunkStore on an embedded BadgerDB.
//
// Chunks are mus-encoded under sequential ids. Two indexes are written in
// the same transaction as each chunk: a review index ordered by chunk index and
// an inverted term index holding per-chunk term frequencies. Similarity queries
// are a brute-force cosine scan; keyword queries require every query term and
// rank by log term frequency times inverse document frequency.
package badger
