// Package tracker is a small client for the issue tracker's v3 REST API:
// queues, issue search and issue comments.
package tracker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/ytbs/bettersearch/internal/cache"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.tracker.yandex.net/v3"

	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 30 * time.Second

	// DefaultCacheTTL is how long a queue listing is reused.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultWebURL is the user-facing tracker, used for issue links.
	DefaultWebURL = "https://tracker.yandex.ru"

	maxPerPage = 100

	orgHeader = "X-Cloud-Org-ID"
)

// APIError is returned when the tracker answers with a 4xx or 5xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracker API error %d: %s", e.StatusCode, e.Body)
}

// Client talks to the tracker on behalf of one organization.
type Client struct {
	httpClient *http.Client
	baseURL    string
	webURL     string
	orgID      string
	pageSize   int
	queues     *cache.Cache[[]Queue]
}

type options struct {
	baseURL  string
	webURL   string
	timeout  time.Duration
	cacheTTL time.Duration
}

// Option customizes a Client.
type Option func(*options)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithWebURL sets the root of the issue links built by the sync.
func WithWebURL(u string) Option {
	return func(o *options) { o.webURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCacheTTL sets how long queue listings are cached.
func WithCacheTTL(d time.Duration) Option {
	return func(o *options) { o.cacheTTL = d }
}

// NewClient creates a client authenticating with an OAuth token for the
// given cloud organization. It performs no network I/O.
func NewClient(token, orgID string, opts ...Option) *Client {
	o := options{
		baseURL:  DefaultBaseURL,
		webURL:   DefaultWebURL,
		timeout:  DefaultTimeout,
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// The tracker expects "Authorization: OAuth <token>" rather than Bearer.
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "OAuth",
	})

	return &Client{
		httpClient: &http.Client{
			Timeout:   o.timeout,
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		},
		baseURL:  o.baseURL,
		webURL:   o.webURL,
		orgID:    orgID,
		pageSize: maxPerPage,
		queues:   cache.New[[]Queue](o.cacheTTL),
	}
}

// doRequest sends a JSON request and returns the raw body and headers of a
// successful response.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, http.Header, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, errors.Wrap(err, "marshal request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create request")
	}
	req.Header.Set(orgHeader, c.orgID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, resp.Header, nil
}
