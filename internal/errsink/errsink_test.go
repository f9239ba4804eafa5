package errsink

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/docmigrate/internal/models"
	tu "github.com/desertthunder/docmigrate/internal/testing"
)

type detailedErr struct{ fields []string }

func (e *detailedErr) Error() string { return "invalid: " + strings.Join(e.fields, ",") }
func (e *detailedErr) Details() any  { return e.fields }

func TestSink(t *testing.T) {
	t.Run("Record writes artifact", func(t *testing.T) {
		root := t.TempDir()
		sink := New(root, nil)

		payload := map[string]any{"owner": "u/1"}
		if err := sink.Record(models.CategoryUsers, "u/1", errors.New("directory: not found"), payload); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		path := filepath.Join(root, "users", "u_1.json")
		tu.AssertFileExists(t, path)

		var artifact Artifact
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &artifact); err != nil {
			t.Fatalf("artifact is not valid JSON: %v", err)
		}
		if artifact.Error != "directory: not found" || artifact.Unit != "u/1" {
			t.Errorf("unexpected artifact %+v", artifact)
		}
		if artifact.Payload.(map[string]any)["owner"] != "u/1" {
			t.Errorf("payload not preserved: %+v", artifact.Payload)
		}
	})

	t.Run("Record includes error details", func(t *testing.T) {
		root := t.TempDir()
		sink := New(root, nil)
		cause := &detailedErr{fields: []string{"email", "ssoGuid"}}

		if err := sink.Record(models.CategoryUsers, "x", cause, nil); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		content := tu.MustReadFile(t, filepath.Join(root, "users", "x.json"))
		if !strings.Contains(content, `"ssoGuid"`) {
			t.Errorf("expected details in artifact, got %s", content)
		}
	})

	t.Run("Clear removes stale artifacts", func(t *testing.T) {
		root := t.TempDir()
		sink := New(root, nil)
		sink.Record(models.CategoryPlaylists, "old", errors.New("stale"), nil)
		sink.Record(models.CategoryUsers, "keep", errors.New("other category"), nil)

		if err := sink.Clear(models.CategoryPlaylists); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}

		units, _ := sink.List(models.CategoryPlaylists)
		if len(units) != 0 {
			t.Errorf("expected no playlist artifacts after clear, got %v", units)
		}
		tu.AssertDirExists(t, sink.Dir(models.CategoryPlaylists))

		users, _ := sink.List(models.CategoryUsers)
		if len(users) != 1 {
			t.Errorf("clear must not touch other categories, got %v", users)
		}
	})

	t.Run("List missing directory", func(t *testing.T) {
		units, err := New(t.TempDir(), nil).List(models.CategoryUsers)
		if err != nil || units != nil {
			t.Errorf("List() = %v, %v", units, err)
		}
	})
}
