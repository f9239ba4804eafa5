package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/docmigrate/internal/errsink"
	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// ErrOwnerNotMapped rejects a playlist whose owner has no identity mapping.
var ErrOwnerNotMapped = fmt.Errorf("%w: playlist owner has no identity mapping", shared.ErrNotFound)

// ErrCatalogMissing marks an item whose (language, media component) pair is not in the catalog.
var ErrCatalogMissing = fmt.Errorf("%w: catalog entry", shared.ErrNotFound)

// Reconciler writes resolved users and validated playlists into Core and the local store.
type Reconciler struct {
	stores       *Stores
	sink         *errsink.Sink
	slugLength   int
	slugAttempts int
	logger       *log.Logger
}

// NewReconciler creates a [Reconciler]. sink may be nil, in which case item failures are only logged.
func NewReconciler(stores *Stores, sink *errsink.Sink, slugLength, slugAttempts int, logger *log.Logger) *Reconciler {
	if slugLength <= 0 {
		slugLength = 10
	}
	if slugAttempts <= 0 {
		slugAttempts = 10
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{stores: stores, sink: sink, slugLength: slugLength, slugAttempts: slugAttempts, logger: logger}
}

// User reuses or creates the Core user for a resolved identity and records the mapping.
func (r *Reconciler) User(ctx context.Context, unit string, p *models.UserProfile, res Resolution, dryRun bool) models.Outcome {
	if res.Kind == ResolutionMapped {
		return models.Skipped(unit, models.SkipAlreadyExists)
	}

	found, err := r.stores.Users.FindByEmail(ctx, res.Email)
	if err != nil {
		return models.Failed(unit, err, p)
	}
	if dryRun {
		return models.Skipped(unit, models.SkipDryRun)
	}

	user, ok := found.Get()
	if !ok {
		first, last := shared.SplitDisplayName(res.Account.DisplayName)
		if first == "" {
			first, last = p.FirstName, p.LastName
		}
		user = &models.CoreUser{
			UserID:        res.Account.LocalID,
			FirstName:     first,
			LastName:      last,
			Email:         res.Email,
			EmailVerified: res.Account.EmailVerified,
		}
		if err := r.stores.Users.Create(ctx, user); err != nil {
			return models.Failed(unit, err, user)
		}
	}

	mapping := &models.IdentityMapping{
		OwnerID:   p.Owner,
		Email:     res.Email,
		SSOGuid:   p.SSOGuid,
		CoreID:    user.ID,
		Secondary: res.Secondary,
	}
	if err := r.stores.Mappings.Insert(ctx, mapping); err != nil {
		return models.Failed(unit, err, mapping)
	}
	return models.Success(unit, mapping)
}

// Playlist upserts the playlist header and then every item independently. A playlist whose
// owner is unknown is rejected before any item work.
func (r *Reconciler) Playlist(ctx context.Context, unit string, p *models.Playlist, dryRun bool) models.Outcome {
	stats := models.NewItemStats()
	logger := shared.WithLogger(r.logger, "file", unit, "owner", p.UserID)

	owner, err := r.stores.Mappings.FindByOwner(ctx, p.UserID)
	if err != nil {
		return models.Failed(unit, err, p)
	}
	mapping, ok := owner.Get()
	if !ok {
		stats.SkippedMissingOwner = len(p.Items)
		o := models.Failed(unit, fmt.Errorf("%w: %s", ErrOwnerNotMapped, p.UserID), p)
		o.Items = stats
		return o
	}

	if dryRun {
		for _, item := range p.Items {
			v, err := r.stores.Catalog.FindVariant(ctx, item.LanguageID, item.MediaComponentID)
			if err != nil {
				logger.Warn("catalog lookup failed", "order", item.Order, "err", err)
				stats.Failed++
				continue
			}
			if variant, ok := v.Get(); ok {
				stats.RecordSaved(variant.ID, item.LanguageID)
			} else {
				stats.SkippedMissingCatalog++
			}
		}
		o := models.Skipped(unit, models.SkipDryRun)
		o.Items = stats
		return o
	}

	header, err := r.header(ctx, p, mapping.CoreID)
	if err != nil {
		return models.Failed(unit, err, p)
	}
	if err := r.stores.Playlists.Upsert(ctx, header); err != nil {
		return models.Failed(unit, err, header)
	}

	for _, item := range p.Items {
		r.item(ctx, unit, header, p.UserID, item, stats)
	}

	logger.Debug("playlist reconciled", "items", len(p.Items), "saved", stats.Saved)
	o := models.Success(unit, header)
	o.Items = stats
	return o
}

// header builds the Core playlist row, reusing the slug of an existing playlist.
func (r *Reconciler) header(ctx context.Context, p *models.Playlist, ownerID string) (*models.CorePlaylist, error) {
	existing, err := r.stores.Playlists.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	var slug string
	if cur, ok := existing.Get(); ok {
		slug = cur.Slug
	} else if slug, err = r.uniqueSlug(ctx); err != nil {
		return nil, err
	}

	return &models.CorePlaylist{
		ID:            p.ID,
		Name:          p.Title(),
		Note:          p.Note,
		NoteUpdatedAt: p.NoteModifiedAt,
		OwnerID:       ownerID,
		Slug:          slug,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}, nil
}

func (r *Reconciler) uniqueSlug(ctx context.Context) (string, error) {
	for range r.slugAttempts {
		slug, err := shared.RandomSlug(r.slugLength)
		if err != nil {
			return "", err
		}
		taken, err := r.stores.Playlists.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
	}
	return "", fmt.Errorf("%w: no free slug after %d attempts", shared.ErrSlugExhausted, r.slugAttempts)
}

// item reconciles one playlist entry. Failures are recorded and never abort the playlist.
func (r *Reconciler) item(ctx context.Context, unit string, header *models.CorePlaylist, ownerRef string, item models.PlaylistItem, stats *models.ItemStats) {
	itemUnit := fmt.Sprintf("%s.item-%d", unit, item.Order)

	variant, err := r.saveItem(ctx, header.ID, item)
	switch {
	case errors.Is(err, ErrCatalogMissing):
		stats.SkippedMissingCatalog++
		r.recordItem(itemUnit, err, item)
		ledger := &models.SkippedItem{
			PlaylistID:       header.ID,
			Order:            item.Order,
			OwnerID:          ownerRef,
			MediaComponentID: item.MediaComponentID,
			LanguageID:       item.LanguageID,
			Type:             item.Type,
			CreatedAt:        item.CreatedAt,
			UpdatedAt:        item.UpdatedAt,
			Reason:           err.Error(),
		}
		if err := r.stores.Skipped.Record(ctx, ledger); err != nil {
			r.logger.Warn("failed to record skipped item", "file", itemUnit, "err", err)
		}
	case err != nil:
		stats.Failed++
		r.recordItem(itemUnit, err, item)
	default:
		stats.RecordSaved(variant, item.LanguageID)
		if err := r.stores.Skipped.Clear(ctx, header.ID, item.Order); err != nil {
			r.logger.Warn("failed to clear skipped item", "file", itemUnit, "err", err)
		}
	}
}

// saveItem resolves the catalog entry for item and upserts it at its (playlist, order) slot,
// keeping the id of an existing row. It returns the variant id.
func (r *Reconciler) saveItem(ctx context.Context, playlistID string, item models.PlaylistItem) (string, error) {
	found, err := r.stores.Catalog.FindVariant(ctx, item.LanguageID, item.MediaComponentID)
	if err != nil {
		return "", err
	}
	variant, ok := found.Get()
	if !ok {
		return "", fmt.Errorf("%w: language %s, media component %s", ErrCatalogMissing, item.LanguageID, item.MediaComponentID)
	}

	row := &models.CorePlaylistItem{
		PlaylistID:       playlistID,
		Order:            item.Order,
		LanguageID:       variant.LanguageID,
		MediaComponentID: variant.MediaComponentID,
		Type:             item.Type,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}

	existing, err := r.stores.Items.FindByOrder(ctx, playlistID, item.Order)
	if err != nil {
		return "", err
	}
	if cur, ok := existing.Get(); ok {
		row.ID = cur.ID
	} else {
		row.ID = shared.GenerateID()
	}
	// Ledger rows may carry null item timestamps.
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}

	if err := r.stores.Items.Upsert(ctx, row); err != nil {
		return "", err
	}
	return variant.ID, nil
}

func (r *Reconciler) recordItem(unit string, err error, payload any) {
	r.logger.Warn("playlist item skipped", "file", unit, "err", err)
	if r.sink == nil {
		return
	}
	if serr := r.sink.Record(models.CategoryPlaylists, unit, err, payload); serr != nil {
		r.logger.Error("failed to write error artifact", "file", unit, "err", serr)
	}
}
