package tasks

import (
	"fmt"

	"github.com/desertthunder/docmigrate/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, e.g. a [models.Outcome]
}

// Operation phase enumeration
type Phase int

const (
	ListFiles Phase = iota
	IngestFiles
	ReconcileItems
	ResolveAccounts
	DeleteAccounts
	Finished
)

func (p Phase) String() string {
	switch p {
	case ListFiles:
		return "list_files"
	case IngestFiles:
		return "ingest_files"
	case ReconcileItems:
		return "reconcile_items"
	case ResolveAccounts:
		return "resolve_accounts"
	case DeleteAccounts:
		return "delete_accounts"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func listFilesUpdate(category models.Category, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListFiles,
		Total:   total,
		Message: fmt.Sprintf("Found %d cached %s documents", total, category),
	}
}

func batchUpdate(step, total, batch, batches int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   IngestFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Batch %d/%d...", batch, batches),
	}
}

func outcomeUpdate(step, total int, o models.Outcome) ProgressUpdate {
	var msg string
	switch o.Kind {
	case models.OutcomeSuccess:
		msg = fmt.Sprintf("[%d/%d] ✓ %s", step, total, o.File)
	case models.OutcomeSkipped:
		msg = fmt.Sprintf("[%d/%d] - %s (%s)", step, total, o.File, o.Reason)
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, o.File, o.Err)
	}
	return ProgressUpdate{Phase: IngestFiles, Step: step, Total: total, Message: msg, Data: o}
}

func reconcileUpdate(step, total int, item *models.SkippedItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcileItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s #%d (%s/%s)", step, total, item.PlaylistID, item.Order, item.LanguageID, item.MediaComponentID),
	}
}

func resolveAccountsUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveAccounts,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Resolving accounts %d/%d...", step, total),
	}
}

func deleteAccountsUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DeleteAccounts,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Deleting accounts %d/%d...", step, total),
	}
}

func finishedUpdate(total int, message string) ProgressUpdate {
	return ProgressUpdate{Phase: Finished, Step: total, Total: total, Message: message}
}
