package models

import "time"

const (
	ProfileType  = "profile"
	PlaylistType = "playlist"
)

// SyncMeta is the legacy store's replication metadata. It is carried, never interpreted.
type SyncMeta struct {
	Rev       string `json:"rev"`
	Sequence  int64  `json:"sequence"`
	TimeSaved string `json:"time_saved"`
}

// UserProfile is a validated cached user document.
type UserProfile struct {
	Type      string   `json:"type" validate:"required,eq=profile"`
	Owner     string   `json:"owner" validate:"required"`
	Email     string   `json:"email" validate:"required"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	SSOGuid   string   `json:"ssoGuid" validate:"required"`
	CAS       string   `json:"cas"`
	Sync      SyncMeta `json:"_sync"`
}

// Playlist is a validated cached playlist document.
//
// ID comes from the cache filename, which is the document's owner field.
// UserID must resolve to an [IdentityMapping].
type Playlist struct {
	ID             string         `json:"-"`
	Type           string         `json:"type" validate:"required,eq=playlist"`
	Owner          string         `json:"owner" validate:"required"`
	UserID         string         `json:"userId" validate:"required"`
	Name           string         `json:"name" validate:"required"`
	DisplayName    string         `json:"displayName"`
	Note           string         `json:"note"`
	NoteModifiedAt *time.Time     `json:"noteModifiedAt"`
	CreatedAt      time.Time      `json:"createdAt" validate:"required"`
	UpdatedAt      time.Time      `json:"updatedAt" validate:"required"`
	CAS            string         `json:"cas"`
	Deleted        bool           `json:"_deleted"`
	Items          []PlaylistItem `json:"playlistItems" validate:"dive"`
}

// Title returns the display name, falling back to the name.
func (p *Playlist) Title() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// PlaylistItem is one entry of a cached playlist. Order is its zero-based position.
type PlaylistItem struct {
	Order            int       `json:"-"`
	MediaComponentID string    `json:"mediaComponentId" validate:"required"`
	LanguageID       string    `json:"languageId" validate:"required"`
	Type             string    `json:"type"`
	CreatedAt        time.Time `json:"createdAt" validate:"required"`
	UpdatedAt        time.Time `json:"updatedAt" validate:"required"`
}
