// Package docstore uploads the land document to an nft.storage-compatible
// content-addressed store and returns the content identifier recorded
// on-chain.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ipfs/go-cid"
	"golang.org/x/time/rate"
)

// The document is packaged under a fixed logical identity; the registry
// only ever stores one document for the land.
const (
	documentName        = "Land document"
	documentDescription = "This document carries the ownership details of this land"
	documentFileName    = "land.pdf"
	documentContentType = "application/pdf"
)

// Config holds configuration for the document store client. The service
// credential comes from process configuration, never from code.
type Config struct {
	// BaseURL is the base URL of the storage service API.
	BaseURL string `env:"NFT_STORAGE_URL" envDefault:"https://api.nft.storage"`

	// Token is the bearer credential for the storage service.
	Token string `env:"NFT_STORAGE_KEY"`

	// Timeout is the HTTP request timeout. Uploads can be slow; default
	// is generous.
	Timeout time.Duration `env:"NFT_STORAGE_TIMEOUT" envDefault:"120s"`

	// RateLimit is the number of requests per second allowed.
	// Default: 2
	RateLimit int `env:"-"`

	// Logger for upload events. Defaults to slog.Default().
	Logger *slog.Logger `env:"-"`
}

// ConfigFromEnv loads the client configuration from the environment.
func ConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse docstore env: %w", err)
	}
	return &cfg, nil
}

// Client is an HTTP client for the storage service with rate limiting.
// Failed uploads are not retried; a publish failure aborts the enclosing
// transaction and the user decides whether to try again.
type Client struct {
	cfg *Config
	log *slog.Logger

	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a new storage service client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("storage credential required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg: cfg,
		log: logger.With("component", "docstore"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
	}, nil
}

// storeResponse is the service's reply to a store request.
type storeResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		IPNFT string `json:"ipnft"`
	} `json:"value"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish uploads the document and returns its content identifier. Every
// failure mode (network error, service rejection, malformed identifier)
// wraps ErrPublishFailure so callers can short-circuit the chain write.
func (c *Client) Publish(ctx context.Context, document io.Reader) (cid.Cid, error) {
	if document == nil {
		return cid.Undef, fmt.Errorf("%w: no document", ErrPublishFailure)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return cid.Undef, fmt.Errorf("%w: rate limiter: %v", ErrPublishFailure, err)
	}

	body, contentType, err := encodeStoreRequest(document)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrPublishFailure, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.cfg.BaseURL+"/store", body,
	)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrPublishFailure, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: upload: %v", ErrPublishFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: read response: %v", ErrPublishFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cid.Undef, fmt.Errorf("%w: service returned %d: %s",
			ErrPublishFailure, resp.StatusCode, respBody)
	}

	var parsed storeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return cid.Undef, fmt.Errorf("%w: decode response: %v", ErrPublishFailure, err)
	}
	if !parsed.OK || parsed.Value.IPNFT == "" {
		return cid.Undef, fmt.Errorf("%w: service rejected upload: %s",
			ErrPublishFailure, parsed.Error.Message)
	}

	id, err := cid.Decode(parsed.Value.IPNFT)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: service returned malformed identifier %q: %v",
			ErrPublishFailure, parsed.Value.IPNFT, err)
	}

	c.log.Info("document published", "cid", id)

	return id, nil
}

// encodeStoreRequest builds the multipart store request: a meta part
// describing the token plus the document bytes under the fixed file name.
func encodeStoreRequest(document io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta := map[string]string{
		"name":        documentName,
		"description": documentDescription,
		"image":       documentFileName,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode meta: %w", err)
	}
	if err := mw.WriteField("meta", string(metaJSON)); err != nil {
		return nil, "", fmt.Errorf("failed to write meta part: %w", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image"; filename=%q`, documentFileName))
	header.Set("Content-Type", documentContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, document); err != nil {
		return nil, "", fmt.Errorf("failed to copy document: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}
