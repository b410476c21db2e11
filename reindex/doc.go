// Package reindex bulk-loads reviews into a chunk store.
//
// Reviews are fed to the ingestion pipeline in batches. Reviews that fail for a
// transient reason are retried with exponential backoff; reviews that can never
// be indexed (invalid rating, empty text) are skipped and counted. Progress is
// reported to an io.Writer as the run advances.
package reindex
