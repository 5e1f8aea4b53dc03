// Package eastmoney scrapes fund holdings and asset allocation pages.
package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
)

const (
	DefaultBaseURL     = "https://fundf10.eastmoney.com"
	DefaultTimeout     = 8 * time.Second
	DefaultRateLimit   = 10 // requests per second
	DefaultMaxHoldings = 10
	DefaultStockWeight = 88.0
	DefaultBondWeight  = 0.0
	defaultUserAgent   = "Mozilla/5.0"
	maxBodyBytes       = 2 << 20
)

// Client implements HoldingsSource and WeightsSource.
type Client struct {
	baseURL      string
	userAgent    string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
	maxHoldings  int
	stockDefault float64
	bondDefault  float64
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

// WithMaxHoldings caps the number of holdings returned
func WithMaxHoldings(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxHoldings = n
		}
	}
}

// WithDefaultWeights sets the percentages used when the allocation page lacks a row
func WithDefaultWeights(stock, bond float64) ClientOption {
	return func(c *Client) {
		c.stockDefault = stock
		c.bondDefault = bond
	}
}

// NewClient creates a new holdings client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:       common.NewSilentLogger(),
		maxHoldings:  DefaultMaxHoldings,
		stockDefault: DefaultStockWeight,
		bondDefault:  DefaultBondWeight,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchHoldings returns the top holdings of the latest disclosed quarter.
// An empty list is not an error.
func (c *Client) FetchHoldings(ctx context.Context, code string) ([]models.Holding, error) {
	params := url.Values{}
	params.Set("type", "jjcc")
	params.Set("code", code)
	params.Set("topline", "10")

	body, err := c.get(ctx, "/FundArchivesDatas.aspx?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("holdings %s: %w", code, err)
	}

	holdings := ParseHoldings(body, c.maxHoldings)
	c.logger.Debug().Str("code", code).Int("holdings", len(holdings)).Msg("Parsed holdings")
	return holdings, nil
}

// FetchAssetWeights returns the stock and bond share of net assets.
func (c *Client) FetchAssetWeights(ctx context.Context, code string) (*models.AssetWeights, error) {
	body, err := c.get(ctx, "/zcpz_"+url.PathEscape(code)+".html")
	if err != nil {
		return nil, fmt.Errorf("asset weights %s: %w", code, err)
	}

	w := ParseAssetWeights(body, c.stockDefault, c.bondDefault)
	if w.StockDefault || w.BondDefault {
		c.logger.Debug().Str("code", code).
			Bool("stock_default", w.StockDefault).
			Bool("bond_default", w.BondDefault).
			Msg("Allocation row missing, using default weight")
	}
	return w, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Dur("elapsed", elapsed).Msg("Holdings request failed")
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", models.ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	return body, nil
}

var (
	_ interfaces.HoldingsSource = (*Client)(nil)
	_ interfaces.WeightsSource  = (*Client)(nil)
)
