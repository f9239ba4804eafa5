package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/docmigrate/internal/shared"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func directoryRecord(guid, email string) DirectoryRecord {
	return DirectoryRecord{
		ID:      "00u" + guid,
		Status:  "ACTIVE",
		Profile: DirectoryProfile{Login: email, Email: email, FirstName: "Ada", LastName: "Lovelace"},
		Credentials: DirectoryCredentials{Emails: []DirectoryEmail{
			{Value: "alt@example.com", Status: "VERIFIED", Type: "SECONDARY"},
			{Value: email, Status: "VERIFIED", Type: "PRIMARY"},
		}},
	}
}

func TestDirectoryClient(t *testing.T) {
	t.Run("Search sends filter and token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/users" {
				t.Errorf("expected path /api/v1/users, got %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("search"); got != `profile.ssoGuid eq "guid-1"` {
				t.Errorf("unexpected search filter %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "SSWS token-a" {
				t.Errorf("unexpected authorization header %q", got)
			}
			json.NewEncoder(w).Encode([]DirectoryRecord{directoryRecord("guid-1", "ada@example.com")})
		}))
		defer server.Close()

		client := NewDirectoryClient(DirectoryOptions{BaseURL: server.URL, Token: "token-a"})
		records, err := client.Search(context.Background(), "guid-1")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}

		primary, ok := records[0].PrimaryEmail()
		if !ok || primary.Value != "ada@example.com" || !primary.Verified() {
			t.Errorf("unexpected primary email %+v", primary)
		}
		if records[0].Name() != "Ada Lovelace" {
			t.Errorf("expected composed name, got %q", records[0].Name())
		}
	})

	t.Run("Search honors rate limit reset header", func(t *testing.T) {
		now := time.Unix(1_700_000_000, 0)
		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("X-Rate-Limit-Reset", strconv.FormatInt(now.Add(3*time.Second).Unix(), 10))
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			json.NewEncoder(w).Encode([]DirectoryRecord{})
		}))
		defer server.Close()

		rec := &sleepRecorder{}
		client := NewDirectoryClient(DirectoryOptions{
			BaseURL:     server.URL,
			MaxRetries:  5,
			ResetBuffer: time.Second,
			Sleep:       rec.sleep,
			Now:         func() time.Time { return now },
		})

		if _, err := client.Search(context.Background(), "guid-1"); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", calls.Load())
		}
		if len(rec.waits) != 1 || rec.waits[0] != 4*time.Second {
			t.Errorf("expected a single 3s+1s wait, got %v", rec.waits)
		}
	})

	t.Run("Search backs off exponentially without header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		rec := &sleepRecorder{}
		client := NewDirectoryClient(DirectoryOptions{
			BaseURL:     server.URL,
			MaxRetries:  3,
			BackoffBase: 2 * time.Second,
			Sleep:       rec.sleep,
		})

		_, err := client.Search(context.Background(), "guid-1")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
		if len(rec.waits) != len(want) {
			t.Fatalf("expected %d waits, got %v", len(want), rec.waits)
		}
		for i := range want {
			if rec.waits[i] != want[i] {
				t.Errorf("wait %d = %v, want %v", i, rec.waits[i], want[i])
			}
		}
	})

	t.Run("Search does not retry other errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		rec := &sleepRecorder{}
		client := NewDirectoryClient(DirectoryOptions{BaseURL: server.URL, MaxRetries: 5, Sleep: rec.sleep})

		_, err := client.Search(context.Background(), "guid-1")
		var se *StatusError
		if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
			t.Fatalf("expected StatusError 500, got %v", err)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("StatusError should match ErrAPIRequest")
		}
		if calls.Load() != 1 || len(rec.waits) != 0 {
			t.Errorf("expected one call and no waits, got %d calls, waits %v", calls.Load(), rec.waits)
		}
	})

	t.Run("PrimaryEmail missing", func(t *testing.T) {
		record := DirectoryRecord{Credentials: DirectoryCredentials{Emails: []DirectoryEmail{{Value: "x@example.com", Type: "SECONDARY"}}}}
		if _, ok := record.PrimaryEmail(); ok {
			t.Error("expected no primary email")
		}
	})
}

func TestNewDirectoryPool(t *testing.T) {
	t.Run("one client per token", func(t *testing.T) {
		cfg := shared.DirectoryConfig{BaseURL: "http://example.com", Tokens: []string{"a", "", "b"}}
		pool, err := NewDirectoryPool(cfg, shared.NewLogger(nil))
		if err != nil {
			t.Fatalf("NewDirectoryPool() error = %v", err)
		}
		if pool.Size() != 2 {
			t.Errorf("expected 2 clients, got %d", pool.Size())
		}
	})

	t.Run("no tokens", func(t *testing.T) {
		_, err := NewDirectoryPool(shared.DirectoryConfig{}, shared.NewLogger(nil))
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
