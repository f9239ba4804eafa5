package tasks

import (
	"context"
	"fmt"
	"sort"

	"github.com/desertthunder/docmigrate/internal/cache"
	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/services"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// ResetResult counts the work of a [Engine.Reset].
type ResetResult struct {
	Emails   int `json:"emails"`
	Resolved int `json:"resolved"`
	Deleted  int `json:"deleted"`
	Failed   int `json:"failed"`
}

// Reset deletes every auth provider account matching a cached user email.
//
// Emails are resolved in bulk; a failing bulk lookup falls back to one lookup per email.
// Accounts are then deleted in batches. This is destructive and meant for non-production
// environments only.
func (e *Engine) Reset(ctx context.Context, progress chan<- ProgressUpdate) (*ResetResult, error) {
	if e.auth == nil {
		return nil, fmt.Errorf("%w: reset needs an auth client", shared.ErrMissingCredentials)
	}

	emails, err := e.cachedEmails()
	if err != nil {
		return nil, err
	}
	result := &ResetResult{Emails: len(emails)}

	uids := e.resolveAccounts(ctx, emails, progress)
	result.Resolved = len(uids)

	batches := batch(uids, services.MaxBatchLookup)
	for i, chunk := range batches {
		sendProgress(progress, deleteAccountsUpdate(i+1, len(batches)))
		res, err := e.auth.DeleteMany(ctx, chunk)
		if err != nil {
			e.logger.Error("bulk delete failed", "batch", i+1, "accounts", len(chunk), "err", err)
			result.Failed += len(chunk)
			continue
		}
		result.Deleted += res.SuccessCount
		result.Failed += res.FailureCount
		for _, de := range res.Errors {
			e.logger.Warn("account not deleted", "uid", de.LocalID, "reason", de.Message)
		}
	}

	sendProgress(progress, finishedUpdate(result.Resolved, fmt.Sprintf("%d accounts deleted", result.Deleted)))
	e.logger.Info("reset finished", "emails", result.Emails, "resolved", result.Resolved, "deleted", result.Deleted, "failed", result.Failed)
	return result, nil
}

// cachedEmails returns the distinct, normalized emails of the cached user documents.
func (e *Engine) cachedEmails() ([]string, error) {
	files, err := e.cache.ListFiles(models.CategoryUsers, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		doc, err := e.cache.ReadJSON(f)
		if err != nil {
			e.logger.Warn("skipping unreadable document", "file", cache.UnitID(f), "err", err)
			continue
		}
		raw, _ := doc["email"].(string)
		if email := shared.NormalizeEmail(raw); email != "" {
			seen[email] = struct{}{}
		}
	}

	emails := make([]string, 0, len(seen))
	for email := range seen {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails, nil
}

func (e *Engine) resolveAccounts(ctx context.Context, emails []string, progress chan<- ProgressUpdate) []string {
	var uids []string
	batches := batch(emails, services.MaxBatchLookup)
	for i, chunk := range batches {
		sendProgress(progress, resolveAccountsUpdate(i+1, len(batches)))

		accounts, err := e.auth.GetMany(ctx, chunk)
		if err == nil {
			for _, a := range accounts {
				uids = append(uids, a.LocalID)
			}
			continue
		}

		e.logger.Warn("bulk lookup failed, resolving one by one", "batch", i+1, "err", err)
		for _, email := range chunk {
			found, err := e.auth.GetByEmail(ctx, email)
			if err != nil {
				e.logger.Warn("lookup failed", "email", email, "err", err)
				continue
			}
			if a, ok := found.Get(); ok {
				uids = append(uids, a.LocalID)
			}
		}
	}
	return uids
}

func batch[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}
