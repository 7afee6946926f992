// Package tasks imports artists from the remote catalog into the local store.
//
// # Import Orchestrator
//
// [Importer.Import] walks one artist: fetch it, persist it, resolve its genre, then walk every
// album and track. Each invocation runs in a fresh per-run state holding the resolved genre.
//
//   - Compilation albums and albums already stored are skipped.
//   - A track is skipped when the [DuplicateDetector] flags it, when the driving artist is not
//     credited on it, or when the catalog has no analysis for it (danceability absent).
//   - Any failure while saving one track is logged as a [TrackError] and the walk continues.
//
// # Retry Policy
//
// Hydration and connection failures anywhere in the walk restart the whole run. [RetryPolicy]
// allows three retries, sleeping 2s times the retry number after a hydration failure and a fixed
// 10s after a connection failure. The error after the last retry is wrapped in an
// [ExhaustedRetriesError]. Restarting from scratch is safe because every write is an upsert by
// remote id and stored albums are skipped. Rows written before a failure are kept.
//
// # Bulk Imports
//
// [Importer.ImportMany] runs independent imports on a worker pool paced by a token bucket.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel without blocking; updates are
// dropped when the channel is full.
package tasks
