package ui

import (
	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/docmigrate/internal/models"
)

var (
	_ list.Item = fileErrorItem{}
)

// fileErrorItem wraps [models.FileError] to implement [list.Item].
type fileErrorItem struct {
	fe models.FileError
}

func (i fileErrorItem) FilterValue() string { return i.fe.File }
func (i fileErrorItem) Title() string       { return i.fe.File }
func (i fileErrorItem) Description() string { return i.fe.Error }

func errorItems(errs []models.FileError) []list.Item {
	items := make([]list.Item, len(errs))
	for i, fe := range errs {
		items[i] = fileErrorItem{fe: fe}
	}
	return items
}
