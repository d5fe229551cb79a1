// Package ingestion reads candidate documents into a core.Corpus.
//
// The Coordinator type manages the read phase of a request:
//   - Listing supported files in a directory
//   - Reading them sequentially, or through a bounded worker pool once the
//     file count reaches a threshold
//   - Reporting progress after every completed read
//
// A file that cannot be read, is unsupported, or holds no text is left out
// of the corpus and reported as skipped. It never fails the remaining reads.
package ingestion
