package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/docmigrate/internal/shared"
)

// fakeAuthServer serves the Identity Toolkit endpoints from an in-memory account table.
type fakeAuthServer struct {
	accounts map[string]*AuthAccount
	calls    map[string]int
	failWith int
}

func newFakeAuthServer() *fakeAuthServer {
	return &fakeAuthServer{accounts: map[string]*AuthAccount{}, calls: map[string]int{}}
}

func (f *fakeAuthServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		action := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		f.calls[action]++
		if f.failWith != 0 {
			http.Error(w, "unavailable", f.failWith)
			return
		}

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		json.Unmarshal(body, &req)

		switch action {
		case "accounts:lookup":
			var users []AuthAccount
			for _, e := range req["email"].([]any) {
				for _, acct := range f.accounts {
					if acct.Email == e.(string) {
						users = append(users, *acct)
					}
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"users": users})
		case "accounts":
			uid := "uid-" + req["email"].(string)
			f.accounts[uid] = &AuthAccount{LocalID: uid, Email: req["email"].(string), EmailVerified: req["emailVerified"].(bool)}
			json.NewEncoder(w).Encode(map[string]any{"localId": uid})
		case "accounts:update":
			acct, ok := f.accounts[req["localId"].(string)]
			if !ok {
				http.Error(w, "USER_NOT_FOUND", http.StatusBadRequest)
				return
			}
			link := req["linkProviderUserInfo"].(map[string]any)
			acct.ProviderUserInfo = append(acct.ProviderUserInfo, ProviderInfo{ProviderID: link["providerId"].(string), RawID: link["rawId"].(string)})
			json.NewEncoder(w).Encode(map[string]any{"localId": acct.LocalID})
		case "accounts:batchDelete":
			var errs []DeleteError
			for i, id := range req["localIds"].([]any) {
				if _, ok := f.accounts[id.(string)]; !ok {
					errs = append(errs, DeleteError{Index: i, LocalID: id.(string), Message: "NOT_FOUND"})
					continue
				}
				delete(f.accounts, id.(string))
			}
			json.NewEncoder(w).Encode(map[string]any{"errors": errs})
		default:
			t.Errorf("unexpected action %s", action)
		}
	})
}

func TestAuthProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("NewAuthProvider requires credentials", func(t *testing.T) {
		_, err := NewAuthProvider(ctx, shared.AuthConfig{}, nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		fake := newFakeAuthServer()
		fake.accounts["uid-1"] = &AuthAccount{LocalID: "uid-1", Email: "ada@example.com"}
		server := httptest.NewServer(fake.handler(t))
		defer server.Close()

		auth := NewAuthProviderWithClient(server.URL, "proj", server.Client(), nil)

		found, err := auth.GetByEmail(ctx, "ada@example.com")
		if err != nil {
			t.Fatalf("GetByEmail() error = %v", err)
		}
		if acct, ok := found.Get(); !ok || acct.LocalID != "uid-1" {
			t.Errorf("expected uid-1, got %+v", found)
		}

		missing, err := auth.GetByEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("GetByEmail() error = %v", err)
		}
		if missing.IsFound() {
			t.Error("expected NotFound")
		}
	})

	t.Run("Create then link", func(t *testing.T) {
		fake := newFakeAuthServer()
		server := httptest.NewServer(fake.handler(t))
		defer server.Close()

		auth := NewAuthProviderWithClient(server.URL, "proj", server.Client(), nil)
		acct, err := auth.Create(ctx, "new@example.com", true, "New User")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if acct.LocalID != "uid-new@example.com" || !acct.EmailVerified {
			t.Errorf("unexpected account %+v", acct)
		}

		if err := auth.LinkFederatedProvider(ctx, acct.LocalID, "oidc.sso", "guid-9", "New User", "new@example.com"); err != nil {
			t.Fatalf("LinkFederatedProvider() error = %v", err)
		}
		if !fake.accounts[acct.LocalID].HasProvider("oidc.sso", "guid-9") {
			t.Error("expected provider to be linked")
		}
		if fake.calls["accounts"] != 1 || fake.calls["accounts:update"] != 1 {
			t.Errorf("expected one create and one update call, got %v", fake.calls)
		}
	})

	t.Run("GetMany limit", func(t *testing.T) {
		auth := NewAuthProviderWithClient("http://unused", "proj", nil, nil)
		emails := make([]string, MaxBatchLookup+1)
		if _, err := auth.GetMany(ctx, emails); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("DeleteMany counts failures", func(t *testing.T) {
		fake := newFakeAuthServer()
		fake.accounts["a"] = &AuthAccount{LocalID: "a"}
		fake.accounts["b"] = &AuthAccount{LocalID: "b"}
		server := httptest.NewServer(fake.handler(t))
		defer server.Close()

		auth := NewAuthProviderWithClient(server.URL, "proj", server.Client(), nil)
		result, err := auth.DeleteMany(ctx, []string{"a", "b", "ghost"})
		if err != nil {
			t.Fatalf("DeleteMany() error = %v", err)
		}
		if result.SuccessCount != 2 || result.FailureCount != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		if len(fake.accounts) != 0 {
			t.Errorf("expected all accounts removed, %d left", len(fake.accounts))
		}
	})

	t.Run("client errors do not trip the breaker", func(t *testing.T) {
		fake := newFakeAuthServer()
		server := httptest.NewServer(fake.handler(t))
		defer server.Close()

		auth := NewAuthProviderWithClient(server.URL, "proj", server.Client(), nil)
		for range 10 {
			err := auth.LinkFederatedProvider(ctx, "missing", "oidc.sso", "g", "", "")
			var se *StatusError
			if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
				t.Fatalf("expected 400 StatusError, got %v", err)
			}
		}
	})

	t.Run("server errors open the breaker", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer server.Close()

		auth := NewAuthProviderWithClient(server.URL, "proj", server.Client(), nil)
		var lastErr error
		for range 8 {
			_, lastErr = auth.GetMany(ctx, []string{"x@example.com"})
		}
		if !errors.Is(lastErr, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable once open, got %v", lastErr)
		}
		if hits.Load() != 5 {
			t.Errorf("expected breaker to stop traffic after 5 failures, got %d requests", hits.Load())
		}
	})
}
