// Package chain provides a client for the block-indexer API that anchors the
// fairness protocol. A game's public seed is the hash of a block that did not
// exist when the server seed was committed, so neither the house nor a player
// can steer outcomes by choosing it.
//
// The indexer is an external service and may be down. Every call here degrades
// to a deterministic fallback instead of blocking a game; callers surface the
// degraded trust model to clients via the fairness record's fallback flag.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds configuration for the block-indexer client.
type Config struct {
	// BaseURL is the indexer API root, e.g. "https://indexer.example.com/v1".
	BaseURL string

	// Lead is how many blocks past the current height the reveal block is
	// chosen. Defaults to 5 if zero.
	Lead int64

	// PollAttempts is how many times AwaitReveal asks for the target block
	// before falling back. Defaults to 3 if zero.
	PollAttempts int

	// PollBackoff is the fixed delay between poll attempts.
	// Defaults to 1.5 seconds if zero.
	PollBackoff time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// Defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

// Client talks to the block-indexer API.
type Client struct {
	config Config
	http   *http.Client
}

// Block is one produced block as reported by the indexer.
type Block struct {
	Height int64  `json:"height"`
	Hash   string `json:"hash"`
}

// ErrBlockNotFound means the requested height has not been produced yet.
var ErrBlockNotFound = errors.New("chain: block not found")

// NewClient creates a new indexer client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.Lead == 0 {
		cfg.Lead = 5
	}
	if cfg.PollAttempts == 0 {
		cfg.PollAttempts = 3
	}
	if cfg.PollBackoff == 0 {
		cfg.PollBackoff = 1500 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{config: cfg, http: httpClient}
}

// Health checks indexer availability. Exposed separately from block fetches so
// the fallback decision can be made proactively.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &out); err != nil {
		return err
	}
	if out.Status != "" && out.Status != "ok" {
		return fmt.Errorf("chain: indexer unhealthy: %s", out.Status)
	}
	return nil
}

// Block fetches one block by height. Returns ErrBlockNotFound while the
// height is still in the future.
func (c *Client) Block(ctx context.Context, height int64) (Block, error) {
	var b Block
	if err := c.get(ctx, fmt.Sprintf("/blocks/%d", height), &b); err != nil {
		return Block{}, err
	}
	if b.Hash == "" {
		return Block{}, fmt.Errorf("chain: block %d has empty hash", height)
	}
	return b, nil
}

// LatestHeight fetches the current chain tip height.
func (c *Client) LatestHeight(ctx context.Context) (int64, error) {
	var b Block
	if err := c.get(ctx, "/blocks/latest", &b); err != nil {
		return 0, err
	}
	return b.Height, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("chain: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chain: %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrBlockNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chain: %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chain: decode %s: %w", path, err)
	}
	return nil
}
