// Package issues finds the GitHub issue that holds the comments for a
// page and tracks the API rate limits observed along the way.
package issues

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"charm.land/log/v2"
)

const (
	// DefaultAPIBase is the GitHub REST API root. It must end in a slash.
	DefaultAPIBase = "https://api.github.com/"

	// restV3 is the media type GitHub expects for v3 REST requests.
	restV3 = "application/vnd.github.v3+json"

	userAgent = "commentlink"
)

// Repo identifies the repository whose issues serve as threads.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Options configures a Client.
type Options struct {
	APIBase    string        // defaults to DefaultAPIBase
	Token      string        // optional; raises the rate limits
	Timeout    time.Duration // 0 = no client timeout
	HTTPClient *http.Client  // overrides Timeout when set
	Logger     *log.Logger
}

// Client issues GitHub API requests and routes every response through
// its rate limit tracker.
type Client struct {
	base   string
	token  string
	http   *http.Client
	limits *RateLimits
	logger *log.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	base := opts.APIBase
	if base == "" {
		base = DefaultAPIBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		base:   base,
		token:  opts.Token,
		http:   hc,
		limits: NewRateLimits(logger),
		logger: logger,
	}
}

// RateLimits returns the tracker fed by this client's responses.
func (c *Client) RateLimits() *RateLimits {
	return c.limits
}

// newRequest builds a GET for a path relative to the API base. The
// request always asks for a fresh response.
func (c *Client) newRequest(ctx context.Context, relativeURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+relativeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", restV3)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and records the rate limit headers of whatever response
// comes back, successful or not.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	c.logger.Debug("GitHub request", "url", req.URL.String())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	c.limits.Record(resp)
	return resp, nil
}
