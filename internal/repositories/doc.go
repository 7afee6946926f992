// Package repositories implements SQLite persistence for the imported catalog.
//
// Artists, albums and tracks are keyed by their catalog remote_id, which carries a UNIQUE
// constraint. Writes go through upserts that run in a transaction: look the row up by remote_id,
// insert with ON CONFLICT(remote_id) DO NOTHING when absent and fall back to an update if another
// writer won the race. Join rows (album_artists, track_artists) and a track's album are written only
// when the row is created, so re-importing never re-links.
//
// Key Implementations:
//   - [ArtistRepository] : artist upserts and remote_id lookups
//   - [AlbumRepository] : album upserts and existence checks
//   - [TrackRepository] : track upserts, duplicate candidate queries and per-artist listings
//   - [ImportProcessRepository] : import process lifecycle and counters
//   - [CatalogStore] : the composition used by the importer
//
// Sequence numbers provide stable, human-readable ordering (e.g. artist #42) independent of UUIDs.
// [NextSequence] atomically increments per-table counters kept in dedicated sequence tables.
package repositories
