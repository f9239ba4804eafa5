// Package ui renders ingestion progress in the terminal using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [RunningView] : a progress bar and the latest outcome while batches run
//  2. [ResultView] : the run summary and a browsable list of failed files
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the ingestion engine, providing non-blocking status reporting.
package ui
