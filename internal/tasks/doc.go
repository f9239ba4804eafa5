// Package tasks ingests cached legacy documents into Core with real-time progress reporting.
//
// # Core Operations
//
// [Engine] exposes three operations:
//
//  1. [Engine.Run] : batch ingestion of one category
//     - Lists cached files and clears the category's error artifacts
//     - Processes files in bounded batches, each batch fully concurrent
//     - User batches are partitioned across the directory credential pool
//     - Returns a [models.Summary]; per-file failures never abort the run
//
//  2. [Engine.Reset] : delete auth accounts of every cached user email
//     - Bulk lookups with a one-by-one fallback, then batched deletes
//
//  3. [Engine.ReconcileSkipped] : retry playlist items skipped for a missing catalog entry
//
// # Identity Resolution
//
// [IdentityEngine] returns a [Resolution] tagged with a [ResolutionKind]. Profiles already in
// the mapping store short-circuit; otherwise the SSO directory and the auth provider are
// consulted and failures surface as [RejectedError].
//
// # Reconciliation
//
// [Reconciler] writes Core users, mappings, playlists and items. Playlist items are
// independent: an item without a catalog entry is skipped, written to the error sink and the
// skipped-item ledger, while the rest of the playlist proceeds.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for
// UI rendering. Updates use select with default to prevent blocking.
package tasks
