package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const dateLayout = "2006-01-02"

// Client fetches daily OHLCV bars from the configured market-data provider.
// It implements the engine's BarSource.
type Client struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ journal.BarSource = (*Client)(nil)

// NewClient creates a new market-data client.
func NewClient(cfg *config.MarketData, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		apiKey:  cfg.ApiKey,
		logger:  logger,
		limiter: limiter,
	}
}

// barPayload is one daily bar as the provider returns it. OHLCV fields are
// nullable: providers deliver partial rows around halts and IPO days.
type barPayload struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

// historyResponse is the provider's daily-history envelope.
type historyResponse struct {
	Symbol string       `json:"symbol"`
	Bars   []barPayload `json:"bars"`
}

// GetBars fetches a symbol's daily bars from the given date onward, ascending
// by date.
func (c *Client) GetBars(ctx context.Context, symbol string, from time.Time) ([]models.PriceBar, error) {
	var history historyResponse

	req := c.client.R().
		SetContext(ctx).
		SetResult(&history).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("symbol", symbol).
		SetQueryParam("from", from.Format(dateLayout))
	if c.apiKey != "" {
		req.SetHeader("X-Api-Key", c.apiKey)
	}

	if _, err := c.doRequest(ctx, "GET", "/v1/daily", req); err != nil {
		return nil, fmt.Errorf("failed to get daily bars for %s: %w", symbol, err)
	}

	bars := make([]models.PriceBar, 0, len(history.Bars))
	for _, payload := range history.Bars {
		date, err := time.Parse(dateLayout, payload.Date)
		if err != nil {
			c.logger.Warn("Skipping bar with unparseable date",
				zap.String("symbol", symbol), zap.String("date", payload.Date))
			continue
		}
		bars = append(bars, models.PriceBar{
			Ticker: symbol,
			Date:   date,
			Open:   payload.Open,
			High:   payload.High,
			Low:    payload.Low,
			Close:  payload.Close,
			Volume: payload.Volume,
		})
	}
	return bars, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
