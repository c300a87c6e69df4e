// Package kis provides a market data gateway over the Korea Investment &
// Securities (KIS) Open API.
package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/metrics"
)

const (
	// DefaultBaseURL is the paper-trading (mock) environment
	DefaultBaseURL = "https://openapivts.koreainvestment.com:29443"
	// DefaultMinInterval keeps calls under the API's per-second quota
	DefaultMinInterval = 300 * time.Millisecond

	tokenLifetime = 23 * time.Hour

	pathToken      = "/oauth2/tokenP"
	pathPrice      = "/uapi/domestic-stock/v1/quotations/inquire-price"
	pathDailyPrice = "/uapi/domestic-stock/v1/quotations/inquire-daily-price"

	trIDPrice      = "FHKST01010100"
	trIDDailyPrice = "FHKST01010400"
)

// Config holds client configuration
type Config struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	MinInterval time.Duration
	Timeout     time.Duration
}

// Client implements domain.MarketDataGateway. Calls are paced to one per
// MinInterval and guarded by a circuit breaker.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Registry
	now        func() time.Time
	log        zerolog.Logger

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
}

// NewClient creates a KIS client. metricsRegistry may be nil.
func NewClient(cfg Config, metricsRegistry *metrics.Registry, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:     "kis",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a well-formed "no data" answer means the API is healthy
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrDataUnavailable)
		},
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		metrics:    metricsRegistry,
		now:        time.Now,
		log:        log.With().Str("client", "kis").Logger(),
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
	}
	c.breaker = gobreaker.NewCircuitBreaker(settings)
	return c
}

// GetCurrentPrice returns the last traded price for a ticker
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (int64, error) {
	started := time.Now()
	price, err := c.getCurrentPrice(ctx, ticker)
	c.metrics.ObserveGatewayCall("current_price", started, err)
	return price, err
}

func (c *Client) getCurrentPrice(ctx context.Context, ticker string) (int64, error) {
	params := url.Values{}
	params.Set("FID_COND_MRKT_DIV_CODE", "J")
	params.Set("FID_INPUT_ISCD", ticker)

	var resp priceResponse
	if err := c.get(ctx, pathPrice, trIDPrice, params, &resp); err != nil {
		return 0, fmt.Errorf("current price %s: %w", ticker, err)
	}
	if err := resp.check(); err != nil {
		return 0, fmt.Errorf("current price %s: %w", ticker, err)
	}

	price, err := parseInt(resp.Output.Price)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("current price %s: %w: bad price %q", ticker, domain.ErrDataUnavailable, resp.Output.Price)
	}
	return price, nil
}

// GetDailyBars returns up to days daily bars, newest first as delivered by
// the API.
func (c *Client) GetDailyBars(ctx context.Context, ticker string, days int) (domain.PriceSeries, error) {
	started := time.Now()
	bars, err := c.getDailyBars(ctx, ticker, days)
	c.metrics.ObserveGatewayCall("daily_bars", started, err)
	return bars, err
}

func (c *Client) getDailyBars(ctx context.Context, ticker string, days int) (domain.PriceSeries, error) {
	params := url.Values{}
	params.Set("FID_COND_MRKT_DIV_CODE", "J")
	params.Set("FID_INPUT_ISCD", ticker)
	params.Set("FID_PERIOD_DIV_CODE", "D")
	params.Set("FID_ORG_ADJ_PRC", "0")

	var resp dailyPriceResponse
	if err := c.get(ctx, pathDailyPrice, trIDDailyPrice, params, &resp); err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", ticker, err)
	}
	if err := resp.check(); err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", ticker, err)
	}

	rows := resp.Output
	if days > 0 && len(rows) > days {
		rows = rows[:days]
	}

	bars := make(domain.PriceSeries, 0, len(rows))
	for _, row := range rows {
		bar, err := row.toBar()
		if err != nil {
			c.log.Debug().Err(err).Str("ticker", ticker).Msg("Skipping malformed daily row")
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("daily bars %s: %w: empty series", ticker, domain.ErrDataUnavailable)
	}
	return bars, nil
}

// get performs a paced, authenticated GET and decodes the JSON body into out
func (c *Client) get(ctx context.Context, path, trID string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.Header.Set("authorization", "Bearer "+token)
		req.Header.Set("appkey", c.cfg.AppKey)
		req.Header.Set("appsecret", c.cfg.AppSecret)
		req.Header.Set("tr_id", trID)
		req.Header.Set("custtype", "P")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			c.invalidateToken()
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	return err
}

// accessToken returns the cached OAuth token, requesting a new one when it
// is missing or expired.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpires) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+pathToken, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token request rejected (status %d): %s", resp.StatusCode, tr.ErrorDescription)
	}

	c.token = tr.AccessToken
	c.tokenExpires = c.now().Add(tokenLifetime)
	c.log.Info().Time("expires", c.tokenExpires).Msg("Access token issued")
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpires = time.Time{}
	c.mu.Unlock()
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
