package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/desertthunder/docmigrate/internal/shared"
)

// MaxBatchLookup is the most emails one bulk lookup accepts.
const MaxBatchLookup = 100

// IdentityProvider manages accounts in the auth provider.
type IdentityProvider interface {
	GetByEmail(ctx context.Context, email string) (Lookup[AuthAccount], error)
	Create(ctx context.Context, email string, verified bool, displayName string) (*AuthAccount, error)
	LinkFederatedProvider(ctx context.Context, uid, providerID, externalUID, displayName, email string) error
	GetMany(ctx context.Context, emails []string) ([]AuthAccount, error)
	DeleteMany(ctx context.Context, uids []string) (*DeleteResult, error)
}

// AuthAccount is an auth provider account.
type AuthAccount struct {
	LocalID          string         `json:"localId"`
	Email            string         `json:"email"`
	EmailVerified    bool           `json:"emailVerified"`
	DisplayName      string         `json:"displayName"`
	ProviderUserInfo []ProviderInfo `json:"providerUserInfo"`
}

// ProviderInfo is a federated identity linked to an [AuthAccount].
type ProviderInfo struct {
	ProviderID  string `json:"providerId"`
	RawID       string `json:"rawId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// HasProvider reports whether the account already links providerID with rawID.
func (a AuthAccount) HasProvider(providerID, rawID string) bool {
	for _, p := range a.ProviderUserInfo {
		if p.ProviderID == providerID && p.RawID == rawID {
			return true
		}
	}
	return false
}

// DeleteResult summarizes a bulk delete.
type DeleteResult struct {
	SuccessCount int
	FailureCount int
	Errors       []DeleteError
}

type DeleteError struct {
	Index   int    `json:"index"`
	LocalID string `json:"localId"`
	Message string `json:"message"`
}

// AuthProvider talks to an Identity Toolkit style REST API. Calls go through a circuit
// breaker so a failing provider stops receiving traffic for a while.
type AuthProvider struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *log.Logger
}

// NewAuthProvider creates a provider client authenticated with the OAuth2 client credentials grant.
func NewAuthProvider(ctx context.Context, cfg shared.AuthConfig, logger *log.Logger) (*AuthProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("%w: auth client_id, client_secret and token_url are required", shared.ErrMissingCredentials)
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return NewAuthProviderWithClient(cfg.BaseURL, cfg.ProjectID, cc.Client(ctx), logger), nil
}

// NewAuthProviderWithClient creates a provider client using an already authenticated HTTP client.
func NewAuthProviderWithClient(baseURL, projectID string, client *http.Client, logger *log.Logger) *AuthProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	a := &AuthProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		httpClient: client,
		logger:     logger,
	}
	a.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "auth-provider",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return a
}

// breakerSuccess only counts server-side failures against the breaker.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status < 500 && se.Status != http.StatusTooManyRequests
	}
	return false
}

func (a *AuthProvider) endpoint(action string) string {
	return fmt.Sprintf("%s/v1/projects/%s/%s", a.baseURL, a.projectID, action)
}

// doRequest posts body as JSON through the breaker and decodes the response into result.
func (a *AuthProvider) doRequest(ctx context.Context, action string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	data, err := a.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(action), bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{Service: "auth", Status: resp.StatusCode, Body: string(respBody)}
		}
		return respBody, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: auth provider: %v", shared.ErrServiceUnavailable, err)
	}
	if err != nil {
		return err
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

type lookupResponse struct {
	Users []AuthAccount `json:"users"`
}

// GetByEmail looks up the account registered to email.
func (a *AuthProvider) GetByEmail(ctx context.Context, email string) (Lookup[AuthAccount], error) {
	accounts, err := a.GetMany(ctx, []string{email})
	if err != nil {
		return NotFound[AuthAccount](), err
	}
	want := shared.NormalizeEmail(email)
	for _, acct := range accounts {
		if shared.NormalizeEmail(acct.Email) == want {
			return Found(acct), nil
		}
	}
	return NotFound[AuthAccount](), nil
}

// GetMany resolves up to [MaxBatchLookup] emails. Unknown emails are simply absent from the result.
func (a *AuthProvider) GetMany(ctx context.Context, emails []string) ([]AuthAccount, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	if len(emails) > MaxBatchLookup {
		return nil, fmt.Errorf("%w: at most %d emails per lookup, got %d", shared.ErrInvalidArgument, MaxBatchLookup, len(emails))
	}

	var resp lookupResponse
	if err := a.doRequest(ctx, "accounts:lookup", map[string]any{"email": emails}, &resp); err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	return resp.Users, nil
}

// Create registers a new account for email.
func (a *AuthProvider) Create(ctx context.Context, email string, verified bool, displayName string) (*AuthAccount, error) {
	body := map[string]any{
		"email":         email,
		"emailVerified": verified,
		"displayName":   displayName,
	}

	var resp AuthAccount
	if err := a.doRequest(ctx, "accounts", body, &resp); err != nil {
		return nil, fmt.Errorf("account create failed: %w", err)
	}
	if resp.LocalID == "" {
		return nil, fmt.Errorf("%w: account create returned no id", shared.ErrAPIRequest)
	}
	resp.Email = email
	resp.EmailVerified = verified
	resp.DisplayName = displayName
	return &resp, nil
}

// LinkFederatedProvider attaches the external identity to account uid.
func (a *AuthProvider) LinkFederatedProvider(ctx context.Context, uid, providerID, externalUID, displayName, email string) error {
	body := map[string]any{
		"localId": uid,
		"linkProviderUserInfo": ProviderInfo{
			ProviderID:  providerID,
			RawID:       externalUID,
			DisplayName: displayName,
			Email:       email,
		},
	}
	if err := a.doRequest(ctx, "accounts:update", body, nil); err != nil {
		return fmt.Errorf("provider link failed for %s: %w", uid, err)
	}
	return nil
}

// DeleteMany force-deletes accounts by uid.
func (a *AuthProvider) DeleteMany(ctx context.Context, uids []string) (*DeleteResult, error) {
	if len(uids) == 0 {
		return &DeleteResult{}, nil
	}

	var resp struct {
		Errors []DeleteError `json:"errors"`
	}
	body := map[string]any{"localIds": uids, "force": true}
	if err := a.doRequest(ctx, "accounts:batchDelete", body, &resp); err != nil {
		return nil, fmt.Errorf("batch delete failed: %w", err)
	}

	return &DeleteResult{
		SuccessCount: len(uids) - len(resp.Errors),
		FailureCount: len(resp.Errors),
		Errors:       resp.Errors,
	}, nil
}
