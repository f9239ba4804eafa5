package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/desertthunder/docmigrate/internal/shared"
)

const rateLimitResetHeader = "X-Rate-Limit-Reset"

// Directory searches the SSO directory by stable external id.
type Directory interface {
	Search(ctx context.Context, externalID string) ([]DirectoryRecord, error)
}

// DirectoryRecord is one user in the SSO directory.
type DirectoryRecord struct {
	ID          string               `json:"id"`
	Status      string               `json:"status"`
	Profile     DirectoryProfile     `json:"profile"`
	Credentials DirectoryCredentials `json:"credentials"`
}

type DirectoryProfile struct {
	Login       string `json:"login"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
}

type DirectoryCredentials struct {
	Emails []DirectoryEmail `json:"emails"`
}

type DirectoryEmail struct {
	Value  string `json:"value"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// Verified reports whether the directory has verified the address.
func (e DirectoryEmail) Verified() bool {
	return strings.EqualFold(e.Status, "VERIFIED")
}

// PrimaryEmail returns the email flagged as primary.
func (r DirectoryRecord) PrimaryEmail() (DirectoryEmail, bool) {
	for _, e := range r.Credentials.Emails {
		if strings.EqualFold(e.Type, "PRIMARY") && e.Value != "" {
			return e, true
		}
	}
	return DirectoryEmail{}, false
}

// Name returns the display name, composing it from first and last name when absent.
func (r DirectoryRecord) Name() string {
	if r.Profile.DisplayName != "" {
		return r.Profile.DisplayName
	}
	return strings.TrimSpace(r.Profile.FirstName + " " + r.Profile.LastName)
}

// DirectoryOptions configures a [DirectoryClient].
type DirectoryOptions struct {
	BaseURL           string
	Token             string
	SearchAttribute   string
	RequestsPerSecond float64
	MaxRetries        int
	BackoffBase       time.Duration
	ResetBuffer       time.Duration
	HTTPClient        *http.Client
	Logger            *log.Logger

	// Sleep and Now default to real time.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// DirectoryClient queries one SSO directory credential. Quota responses are retried
// until the server's reset time; other failures are returned as-is.
type DirectoryClient struct {
	baseURL     string
	token       string
	attribute   string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
	resetBuffer time.Duration
	logger      *log.Logger
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

// NewDirectoryClient creates a client for a single credential.
func NewDirectoryClient(opts DirectoryOptions) *DirectoryClient {
	c := &DirectoryClient{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		token:       opts.Token,
		attribute:   opts.SearchAttribute,
		httpClient:  opts.HTTPClient,
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		resetBuffer: opts.ResetBuffer,
		logger:      opts.Logger,
		sleep:       opts.Sleep,
		now:         opts.Now,
	}
	if c.attribute == "" {
		c.attribute = "profile.ssoGuid"
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.backoffBase <= 0 {
		c.backoffBase = 2 * time.Second
	}
	if c.resetBuffer <= 0 {
		c.resetBuffer = time.Second
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return c
}

// NewDirectoryPool builds one client per configured token.
func NewDirectoryPool(cfg shared.DirectoryConfig, logger *log.Logger) (*CredentialPool[Directory], error) {
	clients := make([]Directory, 0, len(cfg.Tokens))
	for i, token := range cfg.Tokens {
		if token == "" {
			continue
		}
		clients = append(clients, NewDirectoryClient(DirectoryOptions{
			BaseURL:           cfg.BaseURL,
			Token:             token,
			SearchAttribute:   cfg.SearchAttribute,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        cfg.MaxRetries,
			BackoffBase:       cfg.BackoffBase,
			ResetBuffer:       cfg.ResetBuffer,
			Logger:            shared.WithLogger(logger, "credential", i),
		}))
	}
	return NewCredentialPool(clients...)
}

// Search finds directory users whose search attribute equals externalID.
func (c *DirectoryClient) Search(ctx context.Context, externalID string) ([]DirectoryRecord, error) {
	query := url.Values{}
	query.Set("search", fmt.Sprintf("%s eq %q", c.attribute, externalID))
	endpoint := c.baseURL + "/api/v1/users?" + query.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var records []DirectoryRecord
		retryAfter, err := c.doRequest(ctx, endpoint, &records)
		if err == nil {
			return records, nil
		}
		if !errors.Is(err, shared.ErrRateLimited) {
			return nil, err
		}
		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w: gave up after %d retries", err, attempt)
		}

		wait := retryAfter
		if wait <= 0 {
			wait = c.backoffBase << attempt
		}
		c.logger.Warn("directory quota exceeded", "attempt", attempt+1, "wait", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// doRequest performs one GET. On a quota response it returns [shared.ErrRateLimited] and the
// wait derived from the reset header, or zero when the header is absent.
func (c *DirectoryClient) doRequest(ctx context.Context, endpoint string, result any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "SSWS "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return c.resetWait(resp.Header.Get(rateLimitResetHeader)), shared.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, &StatusError{Service: "directory", Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return 0, nil
}

// resetWait converts an epoch-seconds reset header into a wait from now plus the buffer.
func (c *DirectoryClient) resetWait(header string) time.Duration {
	if header == "" {
		return 0
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(header), 10, 64)
	if err != nil {
		return 0
	}
	wait := time.Unix(epoch, 0).Sub(c.now())
	if wait < 0 {
		wait = 0
	}
	return wait + c.resetBuffer
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusError is a non-2xx response from an external API.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.Status, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("%s API error: status %d", e.Service, e.Status)
}

func (e *StatusError) Unwrap() error { return shared.ErrAPIRequest }
