package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"

	"github.com/desertthunder/docmigrate/internal/shared"
)

// DocumentStore pages through documents of the legacy store using its HTTP query service.
type DocumentStore struct {
	baseURL    string
	bucket     string
	username   string
	password   string
	pageSize   int
	timeout    time.Duration
	httpClient *http.Client
	logger     *log.Logger
}

// NewDocumentStore creates a store client from cfg. A nil client uses [http.DefaultClient].
func NewDocumentStore(cfg shared.SourceConfig, client *http.Client, logger *log.Logger) (*DocumentStore, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: source url and bucket are required", shared.ErrMissingConfig)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	return &DocumentStore{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		bucket:     cfg.Bucket,
		username:   cfg.Username,
		password:   cfg.Password,
		pageSize:   pageSize,
		timeout:    cfg.Timeout,
		httpClient: client,
		logger:     logger,
	}, nil
}

type queryResponse struct {
	Status  string           `json:"status"`
	Results []map[string]any `json:"results"`
	Errors  []struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"errors"`
}

// Query returns one page of documents whose type field equals docType, ordered by key.
// Each result carries its key as "_id" and its version token as "cas".
func (s *DocumentStore) Query(ctx context.Context, docType string, limit, offset int) ([]map[string]any, error) {
	ctx, cancel := shared.WithTimeout(ctx, s.timeout)
	defer cancel()

	statement := fmt.Sprintf(
		"SELECT META(d).id AS `_id`, META(d).cas AS cas, d.* FROM `%s` d WHERE d.type = $type ORDER BY META(d).id LIMIT $limit OFFSET $offset",
		s.bucket,
	)
	body, err := json.Marshal(map[string]any{
		"statement": statement,
		"$type":     docType,
		"$limit":    limit,
		"$offset":   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/query/service", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Service: "document store", Status: resp.StatusCode, Body: string(data)}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var qr queryResponse
	if err := dec.Decode(&qr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(qr.Errors) > 0 {
		return nil, fmt.Errorf("%w: query error %d: %s", shared.ErrAPIRequest, qr.Errors[0].Code, qr.Errors[0].Msg)
	}
	return qr.Results, nil
}

// Each calls fn for every document of docType, one page at a time, and returns how many were visited.
func (s *DocumentStore) Each(ctx context.Context, docType string, fn func(doc map[string]any) error) (int, error) {
	total := 0
	for offset := 0; ; offset += s.pageSize {
		page, err := s.Query(ctx, docType, s.pageSize, offset)
		if err != nil {
			return total, err
		}
		for _, doc := range page {
			if err := fn(doc); err != nil {
				return total, err
			}
			total++
		}
		s.logger.Debug("fetched page", "type", docType, "offset", offset, "count", len(page))
		if len(page) < s.pageSize {
			return total, nil
		}
	}
}
