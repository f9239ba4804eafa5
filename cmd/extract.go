package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/docmigrate/internal/cache"
	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/services"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// documentTypes maps each category onto the legacy document type field.
var documentTypes = map[models.Category]string{
	models.CategoryUsers:     "profile",
	models.CategoryPlaylists: "playlist",
}

// Extract pages through the legacy store and writes each document into the cache,
// one file per document keyed by its owner field.
func (r *Runner) Extract(ctx context.Context, cmd *cli.Command) error {
	categories := models.Categories
	if name := cmd.String("category"); name != "" {
		category, err := models.ParseCategory(name)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		categories = []models.Category{category}
	}

	cfg := r.config.Source
	if size := cmd.Int("page-size"); size > 0 {
		cfg.PageSize = size
	}

	store, err := services.NewDocumentStore(cfg, r.httpClient, shared.WithLogger(r.logger, "service", "source"))
	if err != nil {
		return err
	}
	cacheStore := cache.NewStore(r.config.Cache.Dir)

	for _, category := range categories {
		count, err := store.Each(ctx, documentTypes[category], func(doc map[string]any) error {
			return writeCached(cacheStore, category, doc)
		})
		if err != nil {
			return fmt.Errorf("extract %s: %w", category, err)
		}
		r.logger.Info("extracted documents", "category", category, "count", count, "dir", cacheStore.Dir(category))
		r.writePlain("✓ %s: %d documents cached\n", category, count)
	}
	return nil
}

// writeCached strips the store key from doc and writes it under its owner.
func writeCached(store *cache.Store, category models.Category, doc map[string]any) error {
	key, _ := doc["_id"].(string)
	delete(doc, "_id")
	if owner, ok := doc["owner"].(string); ok && owner != "" {
		key = owner
	}
	if key == "" {
		return fmt.Errorf("%w: %s document without owner or key", shared.ErrInvalidDocument, category)
	}
	_, err := store.Write(category, key, doc)
	return err
}
