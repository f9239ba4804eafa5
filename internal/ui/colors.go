package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/docmigrate/internal/models"
)

var styles = NewPalette(Colors{
	Title:   "#7D56F4",
	Success: "#04B575",
	Error:   "#FF0000",
	Skipped: "#FFA500",
	Muted:   "#626262",
})

// Colors names the hex colors of a [Palette].
type Colors struct {
	Title, Success, Error, Skipped, Muted string
}

// Painter renders run counters and headings.
type Painter interface {
	Count(kind models.OutcomeKind, n int) string
	Heading(s string) string
}

// Palette maps each outcome kind onto a [lipgloss.Style].
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

var _ Painter = (*Palette)(nil)

func NewPalette(c Colors) *Palette {
	return &Palette{
		title: NewBold(c.Title).MarginBottom(1),
		ok:    NewBold(c.Success),
		err:   NewBold(c.Error),
		warn:  NewStyle(c.Skipped),
		help:  NewEm(c.Muted),
	}
}

// Count renders n with the symbol and color of kind.
func (p *Palette) Count(kind models.OutcomeKind, n int) string {
	switch kind {
	case models.OutcomeSuccess:
		return p.ok.Render(fmt.Sprintf("✓ %d", n))
	case models.OutcomeSkipped:
		return p.warn.Render(fmt.Sprintf("- %d", n))
	default:
		return p.err.Render(fmt.Sprintf("✗ %d", n))
	}
}

func (p *Palette) Heading(s string) string {
	return p.title.Render(s)
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
