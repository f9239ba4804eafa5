// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/docmigrate/internal/services"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// FakeDirectory is a test double for [services.Directory] keyed by external id.
type FakeDirectory struct {
	mu      sync.Mutex
	Records map[string][]services.DirectoryRecord
	Err     error
	calls   []string
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{Records: map[string][]services.DirectoryRecord{}}
}

// Add registers a single directory match for guid with a verified primary email.
func (d *FakeDirectory) Add(guid, email, displayName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Records[guid] = append(d.Records[guid], services.DirectoryRecord{
		ID:      "dir-" + guid,
		Status:  "ACTIVE",
		Profile: services.DirectoryProfile{Email: email, DisplayName: displayName},
		Credentials: services.DirectoryCredentials{Emails: []services.DirectoryEmail{
			{Value: email, Status: "VERIFIED", Type: "PRIMARY"},
		}},
	})
}

func (d *FakeDirectory) Search(ctx context.Context, externalID string) ([]services.DirectoryRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, externalID)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Records[externalID], nil
}

// Calls returns the external ids searched so far.
func (d *FakeDirectory) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// FakeIdentityProvider is an in-memory [services.IdentityProvider].
type FakeIdentityProvider struct {
	mu       sync.Mutex
	accounts map[string]*services.AuthAccount
	calls    map[string]int
	deleted  []string

	GetManyErr    error
	GetByEmailErr error
	CreateErr     error
	LinkErr       error
}

func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{accounts: map[string]*services.AuthAccount{}, calls: map[string]int{}}
}

// Seed stores an existing account and returns its uid.
func (p *FakeIdentityProvider) Seed(email, displayName string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	uid := "uid-" + email
	p.accounts[email] = &services.AuthAccount{LocalID: uid, Email: email, EmailVerified: true, DisplayName: displayName}
	return uid
}

// Account returns a copy of the account stored for email.
func (p *FakeIdentityProvider) Account(email string) (services.AuthAccount, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.accounts[email]
	if !ok {
		return services.AuthAccount{}, false
	}
	return *a, true
}

// Calls returns how many times op was invoked.
func (p *FakeIdentityProvider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// Deleted returns every uid passed to DeleteMany.
func (p *FakeIdentityProvider) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}

func (p *FakeIdentityProvider) GetByEmail(ctx context.Context, email string) (services.Lookup[services.AuthAccount], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["GetByEmail"]++
	if p.GetByEmailErr != nil {
		return services.NotFound[services.AuthAccount](), p.GetByEmailErr
	}
	if a, ok := p.accounts[email]; ok {
		return services.Found(*a), nil
	}
	return services.NotFound[services.AuthAccount](), nil
}

func (p *FakeIdentityProvider) Create(ctx context.Context, email string, verified bool, displayName string) (*services.AuthAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["Create"]++
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	if _, ok := p.accounts[email]; ok {
		return nil, fmt.Errorf("%w: EMAIL_EXISTS", shared.ErrAPIRequest)
	}
	a := &services.AuthAccount{LocalID: "uid-" + email, Email: email, EmailVerified: verified, DisplayName: displayName}
	p.accounts[email] = a
	out := *a
	return &out, nil
}

func (p *FakeIdentityProvider) LinkFederatedProvider(ctx context.Context, uid, providerID, externalUID, displayName, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["Link"]++
	if p.LinkErr != nil {
		return p.LinkErr
	}
	for _, a := range p.accounts {
		if a.LocalID == uid {
			a.ProviderUserInfo = append(a.ProviderUserInfo, services.ProviderInfo{
				ProviderID: providerID, RawID: externalUID, DisplayName: displayName, Email: email,
			})
			return nil
		}
	}
	return fmt.Errorf("%w: USER_NOT_FOUND", shared.ErrAPIRequest)
}

func (p *FakeIdentityProvider) GetMany(ctx context.Context, emails []string) ([]services.AuthAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["GetMany"]++
	if p.GetManyErr != nil {
		return nil, p.GetManyErr
	}
	var out []services.AuthAccount
	for _, e := range emails {
		if a, ok := p.accounts[e]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (p *FakeIdentityProvider) DeleteMany(ctx context.Context, uids []string) (*services.DeleteResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["DeleteMany"]++
	res := &services.DeleteResult{}
	for _, uid := range uids {
		found := false
		for email, a := range p.accounts {
			if a.LocalID == uid {
				delete(p.accounts, email)
				found = true
				break
			}
		}
		if found {
			res.SuccessCount++
			p.deleted = append(p.deleted, uid)
		} else {
			res.FailureCount++
			res.Errors = append(res.Errors, services.DeleteError{LocalID: uid, Message: "USER_NOT_FOUND"})
		}
	}
	return res, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// WriteDocument writes a cached document under root/category/name.json.
func WriteDocument(t *testing.T, root, category, name string, doc any) string {
	t.Helper()
	dir := filepath.Join(root, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	data, err := shared.MarshalJSON(doc, true)
	if err != nil {
		t.Fatalf("Failed to encode %s: %v", name, err)
	}
	path := filepath.Join(dir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
