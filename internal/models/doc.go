// Package models defines the persisted catalog entities written by the import pipeline.
//
// Entities:
//   - [Artist] : unique by remote id, tagged with the run's popular flag and optional import process
//   - [Album] : unique by remote id, linked to the artists that drove its first import
//   - [Track] : unique by remote id, attached to one album and at least one artist, carrying
//     normalized [AudioFeatures], derived [TrackAnalysis] and a resolved genre
//   - [ImportProcess] : batch record correlating every row written by one invocation
//
// [CatalogExport] is a read-side DTO used by the formatter package.
//
// All entities implement [Model]; the repositories package provides persistence.
package models
