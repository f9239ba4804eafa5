package formatter

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/shared"
	th "github.com/desertthunder/docmigrate/internal/testing"
)

func playlistSummary() *models.Summary {
	s := models.NewSummary(models.CategoryPlaylists, false)
	items := models.NewItemStats()
	items.RecordSaved("v1", "529")
	items.RecordSaved("v2", "529")
	items.RecordSaved("v1", "496")
	items.SkippedMissingCatalog = 2

	ok := models.Success("pl-1", nil)
	ok.Items = items
	s.Add(ok)
	s.Add(models.Skipped("pl-2", models.SkipDeleted))
	s.Add(models.Failed("pl-3", errors.New("owner missing"), nil))
	s.Duration = 1500 * time.Millisecond
	return s
}

func TestFormatters(t *testing.T) {
	t.Run("SummaryToText", func(t *testing.T) {
		output := string(SummaryToText(playlistSummary()))

		for _, want := range []string{
			"Ingestion summary: playlists",
			"Processed: 1",
			"deleted-marker",
			"Errored:   1",
			"saved:                   3",
			"skipped missing catalog: 2",
			"unique catalog entries:  2",
			"pl-3: owner missing",
			"Duration:  1.5s",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q:\n%s", want, output)
			}
		}
		if strings.Index(output, "529") > strings.Index(output, "496") {
			t.Error("languages should be sorted by count")
		}
	})

	t.Run("SummaryToText dry run users", func(t *testing.T) {
		s := models.NewSummary(models.CategoryUsers, true)
		s.Add(models.Skipped("u1", models.SkipDryRun))
		output := string(SummaryToText(s))

		if !strings.Contains(output, "users (dry run)") {
			t.Errorf("missing dry run marker:\n%s", output)
		}
		if strings.Contains(output, "Items") {
			t.Error("user summaries have no item section")
		}
	})

	t.Run("SummaryToJSON", func(t *testing.T) {
		data, err := SummaryToJSON(playlistSummary())
		if err != nil {
			t.Fatalf("SummaryToJSON failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["category"] != "playlists" || decoded["processed"] != float64(1) {
			t.Errorf("unexpected counters: %v", decoded)
		}
		if decoded["unique_catalog_entries"] != float64(2) {
			t.Errorf("expected 2 unique entries, got %v", decoded["unique_catalog_entries"])
		}
		dist, ok := decoded["language_distribution"].([]any)
		if !ok || len(dist) != 2 {
			t.Errorf("unexpected distribution %v", decoded["language_distribution"])
		}
	})

	t.Run("SummaryToCSV", func(t *testing.T) {
		data, err := SummaryToCSV(playlistSummary())
		if err != nil {
			t.Fatalf("SummaryToCSV failed: %v", err)
		}
		want := "language_id,count\n529,2\n496,1\n"
		if string(data) != want {
			t.Errorf("got %q, want %q", data, want)
		}
	})

	t.Run("SummaryToCSV without items", func(t *testing.T) {
		s := models.NewSummary(models.CategoryUsers, false)
		s.Add(models.Success("u1", nil))
		data, _ := SummaryToCSV(s)
		if !strings.HasPrefix(string(data), "metric,value\ntotal,1\nprocessed,1\n") {
			t.Errorf("unexpected CSV %q", data)
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("formats", func(t *testing.T) {
		for _, f := range []Format{FormatText, FormatJSON, FormatCSV} {
			var buf bytes.Buffer
			if err := Render(&buf, playlistSummary(), f); err != nil {
				t.Errorf("Render(%s) error = %v", f, err)
			}
			if buf.Len() == 0 {
				t.Errorf("Render(%s) wrote nothing", f)
			}
		}
	})

	t.Run("write failure", func(t *testing.T) {
		if err := Render(&th.FWriter{}, playlistSummary(), FormatText); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("ParseFormat", func(t *testing.T) {
		tests := []struct {
			in      string
			want    Format
			wantErr bool
		}{
			{"", FormatText, false},
			{"text", FormatText, false},
			{"json", FormatJSON, false},
			{"csv", FormatCSV, false},
			{"xml", "", true},
		}
		for _, tt := range tests {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
			if tt.wantErr && !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		}
	})
}

func TestWriteManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "errors")

	path, err := WriteManifest(playlistSummary(), dir)
	if err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}
	if filepath.Base(path) != "playlists_manifest.json" {
		t.Errorf("unexpected manifest name %s", path)
	}
	content := th.MustReadFile(t, path)
	if !strings.Contains(content, `"duration_text": "1.5s"`) {
		t.Errorf("manifest missing duration: %s", content)
	}
}

func TestRunsToText(t *testing.T) {
	if got := string(RunsToText(nil)); !strings.Contains(got, "No ingestion runs") {
		t.Errorf("unexpected empty output %q", got)
	}

	started := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(2 * time.Second)
	runs := []*models.IngestRun{
		{Sequence: 2, Category: models.CategoryPlaylists, Status: models.RunRunning, StartedAt: started},
		{Sequence: 1, Category: models.CategoryUsers, Status: models.RunCompleted, Processed: 4, StartedAt: started, FinishedAt: &finished},
	}
	output := string(RunsToText(runs))

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "SEQ") {
		t.Fatalf("unexpected table:\n%s", output)
	}
	if !strings.Contains(lines[2], "2s") || !strings.Contains(lines[1], "-") {
		t.Errorf("unexpected durations:\n%s", output)
	}
}
