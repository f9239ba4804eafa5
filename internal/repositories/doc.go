// Package repositories implements persistence for the local mapping store and the Core store.
//
// Local (SQLite) repositories:
//   - [MappingRepository] : insert-only identity mappings, looked up by sso guid or owner id
//   - [RunRepository] : ingestion run history with sequence numbers
//   - [SkippedItemRepository] : ledger of playlist items skipped for a missing catalog entry
//
// Core repositories (Postgres through pgx, SQLite in tests):
//   - [UserRepository] : users looked up by lowercased email
//   - [PlaylistRepository] : playlist headers; upserts never touch slug or created_at
//   - [PlaylistItemRepository] : items keyed by (playlist, order)
//   - [CatalogRepository] : video variants keyed by (language, media component)
//
// Queries that may find nothing return a [services.Lookup]. Unique constraint failures are
// wrapped with [shared.ErrUniqueViolation] so callers can treat a lost insert race distinctly.
//
// Sequence numbers provide stable, human-readable ordering for runs. [NextSequence] atomically
// increments a named counter in the sequences table.
package repositories
