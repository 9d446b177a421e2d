// Package octoprint fetches the job and printer status documents from an
// OctoPrint-compatible print server.
package octoprint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/rook-computer/octolcd/internal/state"
)

const (
	jobPath     = "/api/job"
	printerPath = "/api/printer"

	apiKeyHeader = "X-Api-Key"

	// DefaultTimeout bounds a single document fetch.
	DefaultTimeout = 4 * time.Second

	maxBodyBytes = 1 << 20
)

// ErrFetch wraps every failure to obtain a document: transport errors,
// timeouts, unexpected status codes and undecodable bodies alike.
var ErrFetch = errors.New("octoprint: fetch failed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source is what the poller needs from a print server.
type Source interface {
	FetchJob(ctx context.Context) (*state.JobDoc, error)
	FetchPrinter(ctx context.Context) (*state.PrinterDoc, error)
}

// Client talks to a single print server.
type Client struct {
	// Host is "host[:port]" or a base URL with scheme.
	Host       string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(host, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		Host:       host,
		APIKey:     apiKey,
		Timeout:    timeout,
		HTTPClient: &http.Client{},
	}
}

// BaseURL returns the server root, defaulting to plain http.
func (c *Client) BaseURL() string {
	host := strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

func (c *Client) FetchJob(ctx context.Context) (*state.JobDoc, error) {
	var doc *state.JobDoc
	if err := c.getJSON(ctx, jobPath, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: decode %s: null document", ErrFetch, jobPath)
	}
	return doc, nil
}

func (c *Client) FetchPrinter(ctx context.Context) (*state.PrinterDoc, error) {
	var doc *state.PrinterDoc
	if err := c.getJSON(ctx, printerPath, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: decode %s: null document", ErrFetch, printerPath)
	}
	return doc, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL()+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request %s: %v", ErrFetch, path, err)
	}
	req.Header.Set(apiKeyHeader, c.APIKey)
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrFetch, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrFetch, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s: status %d", ErrFetch, path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrFetch, path, err)
	}
	return nil
}
