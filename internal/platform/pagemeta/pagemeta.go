// Package pagemeta provides a client for the page-metadata extraction
// service used to enrich resources asynchronously. The service is an external
// collaborator; failures talking to it are expected and non-fatal to the
// enrichment job.
package pagemeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/listas/listas-api/internal/config"
)

// Metadata is the parsed extraction result for a URL. Empty fields mean the
// extractor had nothing to report for them.
type Metadata struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Content      string `json:"content"`
	Excerpt      string `json:"excerpt"`
	Text         string `json:"text"`
	LeadImageURL string `json:"lead_image_url"`
	WordCount    int    `json:"word_count"`
	Domain       string `json:"domain"`
}

// isEmpty reports whether the extractor returned nothing usable.
func (m *Metadata) isEmpty() bool {
	return m.Title == "" && m.Author == "" && m.Content == "" &&
		m.Excerpt == "" && m.Text == "" && m.LeadImageURL == "" &&
		m.WordCount == 0 && m.Domain == ""
}

// Fetcher is the interface the enrichment job consumes.
type Fetcher interface {
	// Fetch retrieves metadata for the given URL.
	// Returns ErrNoMetadata when the extractor has nothing for the URL, and a
	// *ClientError for transport or non-2xx failures.
	Fetch(ctx context.Context, rawURL string) (*Metadata, error)
}

// Client talks to the extraction service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a metadata extraction client from the enrichment
// configuration. If logger is nil, the default logger is used.
func NewClient(cfg config.EnrichmentConfig, logger *slog.Logger) (*Client, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger.With("component", "pagemeta_client"),
	}, nil
}

// Ensure Client implements Fetcher
var _ Fetcher = (*Client)(nil)

// Fetch implements Fetcher against the /parser endpoint.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	endpoint := fmt.Sprintf("%s/parser?url=%s", c.baseURL, url.QueryEscape(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Operation: "fetch", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The extractor knows the URL but has nothing for it.
		return nil, ErrNoMetadata
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &ClientError{
			Operation:  "fetch",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, &ClientError{Operation: "decode", Err: err}
	}

	if meta.isEmpty() {
		return nil, ErrNoMetadata
	}

	c.logger.Debug("fetched page metadata",
		"url", rawURL,
		"word_count", meta.WordCount)
	return &meta, nil
}

// validateConfig checks the enrichment configuration before constructing a client.
func validateConfig(cfg config.EnrichmentConfig) error {
	if cfg.BaseURL == "" {
		return errors.New("enrichment base URL cannot be empty")
	}
	if cfg.TimeoutSeconds <= 0 {
		return errors.New("enrichment timeout must be positive")
	}
	return nil
}
