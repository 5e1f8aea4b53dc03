// Package fundgz provides a client for the authoritative fund NAV endpoint
package fundgz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
)

const (
	DefaultBaseURL   = "http://fundgz.1234567.com.cn"
	DefaultTimeout   = 8 * time.Second
	DefaultRateLimit = 10 // requests per second
	defaultUserAgent = "Mozilla/5.0"
	maxBodyBytes     = 1 << 20
)

// Client fetches callback-wrapped JSON reference snapshots.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new reference snapshot client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchReferenceSnapshot retrieves the published NAV for code. The rt query
// parameter defeats upstream caching.
func (c *Client) FetchReferenceSnapshot(ctx context.Context, code string) (*models.ReferenceSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/js/%s.js?rt=%s", c.baseURL, code, strconv.FormatInt(c.now().UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("code", code).Dur("elapsed", elapsed).Msg("Reference request failed")
		return nil, fmt.Errorf("%w: reference %s: %v", models.ErrSourceUnavailable, code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("code", code).Int("status", resp.StatusCode).Msg("Reference non-OK response")
		return nil, fmt.Errorf("%w: reference %s: status %d", models.ErrSourceUnavailable, code, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reference %s: %v", models.ErrSourceUnavailable, code, err)
	}

	c.logger.Debug().Str("code", code).Dur("elapsed", elapsed).Int("bytes", len(body)).Msg("Reference response")

	snap, err := ParseReference(body)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", code, err)
	}
	if snap.Code == "" {
		snap.Code = code
	}
	return snap, nil
}

var _ interfaces.ReferenceSource = (*Client)(nil)
