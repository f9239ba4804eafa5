package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/docmigrate/internal/shared"
)

func TestDocumentStore(t *testing.T) {
	t.Run("NewDocumentStore requires url and bucket", func(t *testing.T) {
		if _, err := NewDocumentStore(shared.SourceConfig{}, nil, nil); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Each pages until a short page", func(t *testing.T) {
		docs := []string{"a", "b", "c", "d", "e"}
		var offsets []int

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/query/service" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if user, _, ok := r.BasicAuth(); !ok || user != "admin" {
				t.Errorf("expected basic auth for admin")
			}

			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			if req["$type"] != "profile" {
				t.Errorf("unexpected type parameter %v", req["$type"])
			}
			offset := int(req["$offset"].(float64))
			limit := int(req["$limit"].(float64))
			offsets = append(offsets, offset)

			var results []map[string]any
			for i := offset; i < len(docs) && i < offset+limit; i++ {
				results = append(results, map[string]any{"_id": docs[i], "cas": 1567445896584216576, "owner": docs[i]})
			}
			json.NewEncoder(w).Encode(map[string]any{"status": "success", "results": results})
		}))
		defer server.Close()

		store, err := NewDocumentStore(shared.SourceConfig{URL: server.URL, Bucket: "legacy", Username: "admin", PageSize: 2}, server.Client(), nil)
		if err != nil {
			t.Fatalf("NewDocumentStore() error = %v", err)
		}

		var seen []string
		total, err := store.Each(context.Background(), "profile", func(doc map[string]any) error {
			seen = append(seen, doc["_id"].(string))
			if cas := doc["cas"].(json.Number).String(); cas != "1567445896584216576" {
				t.Errorf("cas lost precision: %s", cas)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Each() error = %v", err)
		}
		if total != 5 || len(seen) != 5 {
			t.Errorf("expected 5 documents, got %d", total)
		}
		if len(offsets) != 3 {
			t.Errorf("expected 3 pages, got offsets %v", offsets)
		}
	})

	t.Run("Query surfaces query errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"status": "errors", "errors": []map[string]any{{"code": 12003, "msg": "keyspace not found"}}})
		}))
		defer server.Close()

		store, _ := NewDocumentStore(shared.SourceConfig{URL: server.URL, Bucket: "legacy"}, server.Client(), nil)
		if _, err := store.Query(context.Background(), "playlist", 10, 0); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
