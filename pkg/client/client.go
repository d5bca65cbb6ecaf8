package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned by AppStats when the daemon has no entry for the name.
var ErrNotFound = errors.New("app not found")

// Client provides HTTP client functionality to communicate with a playtrack daemon
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8088/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new playtrack API client
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/running-set", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode == http.StatusOK
	c.logger.Debug("Daemon reachability check", "reachable", ok, "status", resp.StatusCode)
	return ok
}

// Running returns live processes that match the daemon's catalog.
func (c *Client) Running(ctx context.Context) ([]string, error) {
	var out AppsResponse
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/running", &out); err != nil {
		return nil, err
	}
	return out.Apps, nil
}

// RunningSet returns the names the tracker currently considers running.
func (c *Client) RunningSet(ctx context.Context) ([]string, error) {
	var out AppsResponse
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/running-set", &out); err != nil {
		return nil, err
	}
	return out.Apps, nil
}

// Stats returns the full stats map.
func (c *Client) Stats(ctx context.Context) (map[string]AppStats, error) {
	out := map[string]AppStats{}
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/stats", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppStats returns the entry for one executable name, or ErrNotFound.
func (c *Client) AppStats(ctx context.Context, name string) (AppStats, error) {
	var out AppStats
	u := c.baseURL + "/stats?name=" + url.QueryEscape(name)
	if err := c.doRequest(ctx, http.MethodGet, u, &out); err != nil {
		return AppStats{}, err
	}
	return out, nil
}

// Catalog returns the daemon's last catalog scan.
func (c *Client) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	var out []CatalogEntry
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/catalog", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rescan asks the daemon to rescan its library roots.
func (c *Client) Rescan(ctx context.Context) ([]CatalogEntry, error) {
	c.logger.Debug("Requesting catalog rescan")
	var out []CatalogEntry
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/catalog/rescan", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// doRequest performs HTTP request with common error handling and decodes a 200 body into out.
func (c *Client) doRequest(ctx context.Context, method, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", url)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, errorResp.Error)
	}
	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
