// Package ui renders import progress and reports for the terminal with lipgloss styles.
//
// Renderers return plain strings so the CLI decides where they are written. Progress lines are
// produced from [tasks.ProgressUpdate] values as they arrive on the importer's channel; reports
// summarize a finished [tasks.ImportResult], [tasks.BulkImportResult] or [models.ImportProcess].
package ui
