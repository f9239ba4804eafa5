// Package models defines the documents, entities and run outcomes of the ingestion pipeline.
//
// The package contains three categories of types:
//
// 1. Cached documents: validated shapes read from the on-disk cache
//   - [UserProfile] : legacy user profile with its SSO identifier
//   - [Playlist] : legacy playlist with positional [PlaylistItem] entries
//
// 2. Persistent entities: rows in the local mapping store and the Core store
//   - [IdentityMapping] : owner id to Core user link, the idempotency boundary for users
//   - [CoreUser], [CorePlaylist], [CorePlaylistItem], [VideoVariant] : Core rows
//   - [IngestRun], [SkippedItem] : local run history and the skipped item ledger
//
// 3. Outcomes: per-file [Outcome] values aggregated into a [Summary].
//
// Persistent entities implement [Model] so repositories can validate them before writing.
package models
