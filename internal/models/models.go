package models

import "errors"

// ErrInvalidModel is wrapped by every [Model.Validate] failure.
var ErrInvalidModel = errors.New("invalid model")

// Model defines the base interface for persistent entities.
type Model interface {
	Key() string     // Key returns the primary identifier of the row
	Validate() error // Validate checks required fields before a write
}

// Category names a class of cached documents. It doubles as the cache and error sink subdirectory.
type Category string

const (
	CategoryUsers     Category = "users"
	CategoryPlaylists Category = "playlists"
)

// Categories lists every category in ingestion order; playlists depend on user mappings.
var Categories = []Category{CategoryUsers, CategoryPlaylists}

// ParseCategory converts a command-line name into a [Category].
func ParseCategory(name string) (Category, error) {
	switch Category(name) {
	case CategoryUsers, CategoryPlaylists:
		return Category(name), nil
	default:
		return "", errors.New("unknown category: " + name)
	}
}

func (c Category) String() string { return string(c) }
