// Package youtube resolves channel names and fetches recent uploads from the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the YouTube Data API
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// DefaultPageURL is the public site used to scrape channel pages when no API key is set
	DefaultPageURL = "https://www.youtube.com"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 5

	// DefaultMaxResults is how many recent videos Fetch returns
	DefaultMaxResults = 10

	userAgent = "Mozilla/5.0 (compatible; tube-insights/1.0)"
)

// Client talks to the YouTube Data API and, without an API key, to public channel pages
type Client struct {
	baseURL    string
	pageURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom API base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithPageURL sets a custom public site URL
func WithPageURL(pageURL string) ClientOption {
	return func(c *Client) {
		c.pageURL = pageURL
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithMaxResults sets how many recent videos are fetched, between 1 and 50
func WithMaxResults(n int) ClientOption {
	return func(c *Client) {
		if n > 0 && n <= 50 {
			c.maxResults = n
		}
	}
}

// NewClient creates a new YouTube client
func NewClient(apiKey string, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		pageURL:    DefaultPageURL,
		apiKey:     apiKey,
		maxResults: DefaultMaxResults,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 response from YouTube
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// apiErrorBody is the error envelope returned by Google APIs
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// get performs a GET request against the Data API and decodes the JSON response
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)

	resp, err := c.do(ctx, c.baseURL+path+"?"+params.Encode(), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := string(body)
		var envelope apiErrorBody
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Endpoint: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// page fetches a public HTML page and parses it
func (c *Client) page(ctx context.Context, path string) (*goquery.Document, error) {
	resp, err := c.do(ctx, c.pageURL+path, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Endpoint: path}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel page: %w", err)
	}
	return doc, nil
}

func (c *Client) do(ctx context.Context, reqURL, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	c.logger.Debug("YouTube request",
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(started)),
	)
	return resp, nil
}
