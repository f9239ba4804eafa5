package models

import (
	"fmt"
	"time"
)

// IdentityMapping links a legacy owner id to a Core user. Rows are inserted once and never updated.
type IdentityMapping struct {
	OwnerID   string
	Email     string
	SSOGuid   string
	CoreID    string
	Secondary bool
	CreatedAt time.Time
}

func (m *IdentityMapping) Key() string { return m.OwnerID }

func (m *IdentityMapping) Validate() error {
	if m.OwnerID == "" || m.Email == "" || m.SSOGuid == "" || m.CoreID == "" {
		return fmt.Errorf("%w: mapping requires owner id, email, sso guid and core id", ErrInvalidModel)
	}
	return nil
}

// CoreUser is a user row in the Core store. UserID is the auth provider uid.
type CoreUser struct {
	ID            string
	UserID        string
	FirstName     string
	LastName      string
	Email         string
	EmailVerified bool
	SuperAdmin    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *CoreUser) Key() string { return u.ID }

func (u *CoreUser) Validate() error {
	if u.ID == "" || u.UserID == "" || u.Email == "" {
		return fmt.Errorf("%w: core user requires id, user id and email", ErrInvalidModel)
	}
	return nil
}

// CorePlaylist is a playlist header row in the Core store.
type CorePlaylist struct {
	ID            string
	Name          string
	Note          string
	NoteUpdatedAt *time.Time
	OwnerID       string
	Slug          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *CorePlaylist) Key() string { return p.ID }

func (p *CorePlaylist) Validate() error {
	if p.ID == "" || p.Name == "" || p.OwnerID == "" || p.Slug == "" {
		return fmt.Errorf("%w: core playlist requires id, name, owner and slug", ErrInvalidModel)
	}
	return nil
}

// CorePlaylistItem is a playlist item row. (PlaylistID, Order) is unique.
type CorePlaylistItem struct {
	ID               string
	PlaylistID       string
	Order            int
	LanguageID       string
	MediaComponentID string
	Type             string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (i *CorePlaylistItem) Key() string { return i.ID }

func (i *CorePlaylistItem) Validate() error {
	if i.ID == "" || i.PlaylistID == "" || i.LanguageID == "" || i.MediaComponentID == "" {
		return fmt.Errorf("%w: playlist item requires id, playlist, language and media component", ErrInvalidModel)
	}
	if i.Order < 0 {
		return fmt.Errorf("%w: playlist item order cannot be negative", ErrInvalidModel)
	}
	return nil
}

// VideoVariant is a catalog entry, unique by (LanguageID, MediaComponentID).
type VideoVariant struct {
	ID               string
	VideoID          string
	MediaComponentID string
	LanguageID       string
}

func (v *VideoVariant) Key() string { return v.ID }

func (v *VideoVariant) Validate() error {
	if v.ID == "" || v.LanguageID == "" || v.MediaComponentID == "" {
		return fmt.Errorf("%w: video variant requires id, language and media component", ErrInvalidModel)
	}
	return nil
}

// RunStatus is the lifecycle state of an [IngestRun].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IngestRun is one recorded invocation of the orchestrator.
type IngestRun struct {
	ID         string
	Sequence   int
	Category   Category
	DryRun     bool
	Status     RunStatus
	Processed  int
	Skipped    int
	Errored    int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

func (r *IngestRun) Key() string { return r.ID }

func (r *IngestRun) Validate() error {
	if r.Category == "" {
		return fmt.Errorf("%w: run requires a category", ErrInvalidModel)
	}
	switch r.Status {
	case RunRunning, RunCompleted, RunFailed:
		return nil
	default:
		return fmt.Errorf("%w: unknown run status %q", ErrInvalidModel, r.Status)
	}
}

// SkippedItem is a playlist item whose catalog entry was missing when it was last ingested.
type SkippedItem struct {
	PlaylistID       string
	Order            int
	OwnerID          string
	MediaComponentID string
	LanguageID       string
	Type             string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Reason           string
	RecordedAt       time.Time
}

func (s *SkippedItem) Key() string { return fmt.Sprintf("%s#%d", s.PlaylistID, s.Order) }

func (s *SkippedItem) Validate() error {
	if s.PlaylistID == "" || s.MediaComponentID == "" || s.LanguageID == "" {
		return fmt.Errorf("%w: skipped item requires playlist, language and media component", ErrInvalidModel)
	}
	return nil
}

// Item rebuilds the cached item the ledger row was recorded from.
func (s *SkippedItem) Item() PlaylistItem {
	return PlaylistItem{
		Order:            s.Order,
		MediaComponentID: s.MediaComponentID,
		LanguageID:       s.LanguageID,
		Type:             s.Type,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
