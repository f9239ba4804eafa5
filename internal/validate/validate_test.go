package validate

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/docmigrate/internal/shared"
)

func userDoc() map[string]any {
	return map[string]any{
		"type":      "profile",
		"owner":     "owner-1",
		"email":     "Someone@Example.com",
		"firstName": "Some",
		"lastName":  "One",
		"ssoGuid":   "guid-1",
		"cas":       json.Number("1567445896584216576"),
		"_sync": map[string]any{
			"rev":        "3-abc",
			"sequence":   json.Number("42"),
			"time_saved": "2019-09-02T12:00:00Z",
		},
	}
}

func playlistDoc() map[string]any {
	return map[string]any{
		"type":      "playlist",
		"owner":     "pl-1",
		"userId":    "owner-1",
		"name":      "favorites",
		"note":      "hello",
		"createdAt": "2020-01-01T00:00:00Z",
		"updatedAt": "2020-02-01T00:00:00Z",
		"cas":       json.Number("99"),
		"playlistItems": []any{
			map[string]any{"mediaComponentId": "1_jf-0-0", "languageId": "529", "type": "video", "createdAt": "2020-01-01T00:00:00Z", "updatedAt": "2020-01-01T00:00:00Z"},
			map[string]any{"mediaComponentId": "2_jf-0-0", "languageId": "496", "createdAt": "2020-01-02T00:00:00Z", "updatedAt": "2020-01-02T00:00:00Z"},
		},
	}
}

func violationFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	fields := make([]string, 0, len(verr.Violations))
	for _, v := range verr.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestUser(t *testing.T) {
	v := New(nil)

	t.Run("valid", func(t *testing.T) {
		profile, err := v.User("owner-1", userDoc())
		if err != nil {
			t.Fatalf("User() error = %v", err)
		}
		if profile.SSOGuid != "guid-1" || profile.Owner != "owner-1" {
			t.Errorf("unexpected profile %+v", profile)
		}
		if profile.CAS != "1567445896584216576" {
			t.Errorf("cas lost precision: %s", profile.CAS)
		}
		if profile.Sync.Sequence != 42 {
			t.Errorf("expected sync sequence 42, got %d", profile.Sync.Sequence)
		}
	})

	t.Run("lists every violation", func(t *testing.T) {
		doc := userDoc()
		delete(doc, "email")
		doc["ssoGuid"] = ""
		doc["firstName"] = true
		doc["type"] = "playlist"

		_, err := v.User("owner-1", doc)
		if !errors.Is(err, shared.ErrInvalidDocument) {
			t.Fatalf("expected ErrInvalidDocument, got %v", err)
		}

		fields := strings.Join(violationFields(t, err), ",")
		for _, want := range []string{"email", "ssoGuid", "firstName", "type"} {
			if !strings.Contains(fields, want) {
				t.Errorf("expected violation for %s, got %s", want, fields)
			}
		}
	})

	t.Run("blank email and ssoGuid are rejected", func(t *testing.T) {
		doc := userDoc()
		doc["email"] = "   "
		doc["ssoGuid"] = " \t "

		profile, err := v.User("owner-1", doc)
		if !errors.Is(err, shared.ErrInvalidDocument) {
			t.Fatalf("expected ErrInvalidDocument, got %v (profile %+v)", err, profile)
		}
		fields := strings.Join(violationFields(t, err), ",")
		for _, want := range []string{"email", "ssoGuid"} {
			if !strings.Contains(fields, want) {
				t.Errorf("expected violation for %s, got %s", want, fields)
			}
		}
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		doc := userDoc()
		doc["email"] = "  ada@example.com "
		doc["ssoGuid"] = "\tguid-1 "

		profile, err := v.User("owner-1", doc)
		if err != nil {
			t.Fatalf("User() error = %v", err)
		}
		if profile.Email != "ada@example.com" || profile.SSOGuid != "guid-1" {
			t.Errorf("expected trimmed fields, got email=%q ssoGuid=%q", profile.Email, profile.SSOGuid)
		}
	})

	t.Run("numbers are not strings", func(t *testing.T) {
		doc := userDoc()
		doc["email"] = json.Number("12")
		_, err := v.User("owner-1", doc)
		if fields := violationFields(t, err); len(fields) != 1 || fields[0] != "email" {
			t.Errorf("expected a single email violation, got %v", fields)
		}
	})

	t.Run("skip list runs before structure", func(t *testing.T) {
		skipping := New(map[string]struct{}{"1567445896584216576": {}})
		doc := userDoc()
		delete(doc, "email")

		_, err := skipping.User("owner-1", doc)
		if !errors.Is(err, ErrSkipListed) {
			t.Errorf("expected ErrSkipListed, got %v", err)
		}
	})
}

func TestPlaylist(t *testing.T) {
	v := New(nil)

	t.Run("valid", func(t *testing.T) {
		playlist, err := v.Playlist("pl-1", playlistDoc())
		if err != nil {
			t.Fatalf("Playlist() error = %v", err)
		}
		if playlist.ID != "pl-1" {
			t.Errorf("expected id from unit, got %s", playlist.ID)
		}
		if playlist.DisplayName != "favorites" {
			t.Errorf("display name should default to name, got %q", playlist.DisplayName)
		}
		if len(playlist.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(playlist.Items))
		}
		for i, item := range playlist.Items {
			if item.Order != i {
				t.Errorf("item %d has order %d", i, item.Order)
			}
		}
		if playlist.NoteModifiedAt != nil {
			t.Error("absent noteModifiedAt should stay nil")
		}
	})

	t.Run("note timestamp", func(t *testing.T) {
		doc := playlistDoc()
		doc["noteModifiedAt"] = "2020-03-01T10:00:00Z"
		playlist, err := v.Playlist("pl-1", doc)
		if err != nil {
			t.Fatalf("Playlist() error = %v", err)
		}
		if playlist.NoteModifiedAt == nil || playlist.NoteModifiedAt.Month() != 3 {
			t.Errorf("unexpected note timestamp %v", playlist.NoteModifiedAt)
		}
	})

	t.Run("deleted marker", func(t *testing.T) {
		_, err := v.Playlist("pl-1", map[string]any{"_deleted": true})
		if !errors.Is(err, ErrDeleted) {
			t.Errorf("expected ErrDeleted, got %v", err)
		}
	})

	t.Run("item violations carry position", func(t *testing.T) {
		doc := playlistDoc()
		items := doc["playlistItems"].([]any)
		delete(items[1].(map[string]any), "languageId")
		items[0].(map[string]any)["createdAt"] = "yesterday"

		_, err := v.Playlist("pl-1", doc)
		fields := strings.Join(violationFields(t, err), ",")
		if !strings.Contains(fields, "playlistItems[1].languageId") {
			t.Errorf("expected languageId violation on item 1, got %s", fields)
		}
		if !strings.Contains(fields, "playlistItems[0].createdAt") {
			t.Errorf("expected createdAt violation on item 0, got %s", fields)
		}
	})
}
