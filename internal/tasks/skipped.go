package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/docmigrate/internal/models"
)

// ReconcileResult counts the work of a [Engine.ReconcileSkipped].
type ReconcileResult struct {
	Checked      int `json:"checked"`
	Saved        int `json:"saved"`
	StillMissing int `json:"still_missing"`
	Orphaned     int `json:"orphaned"`
	Failed       int `json:"failed"`
}

// ReconcileSkipped retries every item previously skipped for a missing catalog entry.
// Items whose catalog entry now exists are saved and leave the ledger; the rest stay.
// Rows whose playlist is not in Core are counted as orphaned and left alone.
func (e *Engine) ReconcileSkipped(ctx context.Context, dryRun bool, progress chan<- ProgressUpdate) (*ReconcileResult, error) {
	items, err := e.stores.Skipped.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for i, row := range items {
		sendProgress(progress, reconcileUpdate(i+1, len(items), row))
		result.Checked++

		playlist, err := e.stores.Playlists.Get(ctx, row.PlaylistID)
		if err != nil {
			result.Failed++
			e.logger.Warn("playlist lookup failed", "playlist", row.PlaylistID, "err", err)
			continue
		}
		if !playlist.IsFound() {
			result.Orphaned++
			continue
		}

		if dryRun {
			found, err := e.stores.Catalog.FindVariant(ctx, row.LanguageID, row.MediaComponentID)
			switch {
			case err != nil:
				result.Failed++
			case found.IsFound():
				result.Saved++
			default:
				result.StillMissing++
			}
			continue
		}

		_, err = e.reconciler.saveItem(ctx, row.PlaylistID, row.Item())
		switch {
		case errors.Is(err, ErrCatalogMissing):
			result.StillMissing++
		case err != nil:
			result.Failed++
			e.logger.Warn("failed to save skipped item", "playlist", row.PlaylistID, "order", row.Order, "err", err)
		default:
			result.Saved++
			if err := e.stores.Skipped.Clear(ctx, row.PlaylistID, row.Order); err != nil {
				e.logger.Warn("failed to clear skipped item", "playlist", row.PlaylistID, "order", row.Order, "err", err)
			}
		}
	}

	sendProgress(progress, finishedUpdate(len(items), fmt.Sprintf("%d saved, %d still missing", result.Saved, result.StillMissing)))
	e.logger.Info("skipped items reconciled", "checked", result.Checked, "saved", result.Saved,
		"still_missing", result.StillMissing, "orphaned", result.Orphaned, "failed", result.Failed, "category", models.CategoryPlaylists)
	return result, nil
}
