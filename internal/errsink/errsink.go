// Package errsink writes one artifact per failed unit so failures can be inspected offline.
package errsink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// Artifact is the JSON document written for a failed unit.
type Artifact struct {
	Unit       string    `json:"unit"`
	Category   string    `json:"category"`
	Error      string    `json:"error"`
	Details    any       `json:"details,omitempty"`
	Payload    any       `json:"payload"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Detailer is implemented by errors that carry structured detail for the artifact.
type Detailer interface {
	Details() any
}

// Sink stores artifacts under <root>/<category>/<unit>.json.
type Sink struct {
	root   string
	logger *log.Logger
}

// New creates a [Sink] rooted at root.
func New(root string, logger *log.Logger) *Sink {
	return &Sink{root: root, logger: logger}
}

// Dir returns the artifact directory for category.
func (s *Sink) Dir(category models.Category) string {
	return filepath.Join(s.root, string(category))
}

// Clear removes every artifact of category and recreates its empty directory.
func (s *Sink) Clear(category models.Category) error {
	dir := s.Dir(category)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear error directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create error directory %s: %w", dir, err)
	}
	return nil
}

// Record writes the artifact for one failed unit, replacing an earlier one with the same id.
func (s *Sink) Record(category models.Category, unit string, cause error, payload any) error {
	artifact := Artifact{
		Unit:       unit,
		Category:   string(category),
		Payload:    payload,
		RecordedAt: time.Now().UTC(),
	}
	if cause != nil {
		artifact.Error = cause.Error()
		var d Detailer
		if errors.As(cause, &d) {
			artifact.Details = d.Details()
		}
	}

	data, err := shared.MarshalJSON(artifact, true)
	if err != nil {
		return fmt.Errorf("failed to encode artifact for %s: %w", unit, err)
	}

	dir := s.Dir(category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create error directory: %w", err)
	}

	path := filepath.Join(dir, shared.SanitizeFilename(unit)+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}

	if s.logger != nil {
		s.logger.Debug("recorded failure", "category", category, "unit", unit, "path", path)
	}
	return nil
}

// List returns the unit names with an artifact in category, sorted.
func (s *Sink) List(category models.Category) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(category))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read error directory: %w", err)
	}

	var units []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			units = append(units, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(units)
	return units, nil
}
