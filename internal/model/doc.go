// Package model defines the core data structures used throughout crawlcore.
//
// This package contains the following main types:
//   - FetchResult: A fetched response supplied by the host crawling framework
//   - FetchRecord: One line of a replayable fetch log
//   - Reason: Why the core stopped processing a page
//   - Snapshot: The crawl statistics persisted by the checkpoint writer
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The pipeline, checkpoint, and report packages all need these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for checkpoint storage
// and report output.
package model
