// Package cache reads and writes the on-disk document cache.
//
// Documents live at <root>/<category>/<id>.json, one document per file.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/shared"
)

const ext = ".json"

// Store is the cache rooted at a directory.
type Store struct {
	root string
}

// NewStore creates a [Store] rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir returns the directory holding documents of category.
func (s *Store) Dir(category models.Category) string {
	return filepath.Join(s.root, string(category))
}

// ListFiles returns the sorted document paths of category.
//
// When single is set only that file is returned; the ".json" suffix is optional.
// A missing category directory or single file wraps [shared.ErrSourceMissing].
func (s *Store) ListFiles(category models.Category, single string) ([]string, error) {
	dir := s.Dir(category)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSourceMissing, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat cache directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", shared.ErrSourceMissing, dir)
	}

	if single != "" {
		name := filepath.Base(single)
		if !strings.HasSuffix(name, ext) {
			name += ext
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrSourceMissing, path)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadJSON decodes the document at path into a generic map.
//
// Numbers are kept as [json.Number] so large cas values survive intact.
func (s *Store) ReadJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidDocument, filepath.Base(path), err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s: not a JSON object", shared.ErrInvalidDocument, filepath.Base(path))
	}
	return doc, nil
}

// Write stores doc as <category>/<id>.json, replacing any previous copy.
func (s *Store) Write(category models.Category, id string, doc any) (string, error) {
	dir := s.Dir(category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := shared.MarshalJSON(doc, true)
	if err != nil {
		return "", fmt.Errorf("failed to encode document %s: %w", id, err)
	}

	path := filepath.Join(dir, shared.SanitizeFilename(id)+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write document %s: %w", id, err)
	}
	return path, nil
}

// UnitID returns the document identifier encoded in a cache path.
func UnitID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ext)
}
