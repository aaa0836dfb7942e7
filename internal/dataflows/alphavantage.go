package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/models"
)

const (
	avFunctionDaily           = "TIME_SERIES_DAILY"
	avFunctionBalanceSheet    = "BALANCE_SHEET"
	avFunctionIncomeStatement = "INCOME_STATEMENT"
)

// AlphaVantageClient handles Alpha Vantage API operations
type AlphaVantageClient struct {
	client  *resty.Client
	cache   *PayloadCache
	limiter *rate.Limiter
	apiKey  string
	log     *logger.Logger
}

// NewAlphaVantageClient creates a new Alpha Vantage client. Statements are
// cached on disk; daily bars are always fetched live.
func NewAlphaVantageClient(cfg *config.Config, log *logger.Logger) *AlphaVantageClient {
	if log == nil {
		log = logger.Nop()
	}
	cache := NewPayloadCache(filepath.Join(cfg.CacheDir(), "alphavantage"), cfg.Market.CacheTTL, cfg.Market.CacheEnabled)

	client := resty.New()
	client.SetBaseURL(cfg.Market.AlphaVantageBaseURL)
	client.SetTimeout(cfg.Market.HTTPTimeout)

	rpm := cfg.Market.RequestsPerMinute
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}

	return &AlphaVantageClient{
		client:  client,
		cache:   cache,
		limiter: limiter,
		apiKey:  cfg.Market.AlphaVantageAPIKey,
		log:     log.Component("alphavantage"),
	}
}

type avDailyResponse struct {
	Series       map[string]avDailyBar `json:"Time Series (Daily)"`
	ErrorMessage string                `json:"Error Message"`
	Note         string                `json:"Note"`
	Information  string                `json:"Information"`
}

type avDailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type avStatus struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (s avStatus) err(symbol string) error {
	switch {
	case s.ErrorMessage != "":
		return fmt.Errorf("%w: %s: %s", ErrNoData, symbol, s.ErrorMessage)
	case s.Note != "":
		return fmt.Errorf("%w: %s", ErrRateLimited, s.Note)
	case s.Information != "":
		return fmt.Errorf("%w: %s", ErrRateLimited, s.Information)
	}
	return nil
}

func (c *AlphaVantageClient) query(ctx context.Context, function, symbol string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("alpha vantage: %w", ErrMissingAPIKey)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("alpha vantage limiter: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": function,
			"symbol":   symbol,
			"apikey":   c.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("alpha vantage %s %s: %w", function, symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("alpha vantage %s %s: HTTP %d", function, symbol, resp.StatusCode())
	}
	return resp.Body(), nil
}

// DailyQuote returns the most recent bar of TIME_SERIES_DAILY.
func (c *AlphaVantageClient) DailyQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	body, err := c.query(ctx, avFunctionDaily, symbol)
	if err != nil {
		return nil, err
	}

	var payload avDailyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode daily series for %s: %w", symbol, err)
	}
	status := avStatus{ErrorMessage: payload.ErrorMessage, Note: payload.Note, Information: payload.Information}
	if err := status.err(symbol); err != nil {
		return nil, err
	}
	if len(payload.Series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	dates := make([]string, 0, len(payload.Series))
	for d := range payload.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	latest := dates[len(dates)-1]
	bar := payload.Series[latest]

	open, err := decimal.NewFromString(bar.Open)
	if err != nil {
		return nil, fmt.Errorf("parse open for %s: %w", symbol, err)
	}
	high, err := decimal.NewFromString(bar.High)
	if err != nil {
		return nil, fmt.Errorf("parse high for %s: %w", symbol, err)
	}
	low, err := decimal.NewFromString(bar.Low)
	if err != nil {
		return nil, fmt.Errorf("parse low for %s: %w", symbol, err)
	}
	closePrice, err := decimal.NewFromString(bar.Close)
	if err != nil {
		return nil, fmt.Errorf("parse close for %s: %w", symbol, err)
	}
	volume, err := decimal.NewFromString(strings.TrimSpace(bar.Volume))
	if err != nil {
		return nil, fmt.Errorf("parse volume for %s: %w", symbol, err)
	}

	c.log.Debugw("daily quote", "symbol", symbol, "date", latest)
	return BuildQuote(symbol, latest, open, high, low, closePrice, volume.IntPart(), "alphavantage"), nil
}

// BalanceSheet returns the BALANCE_SHEET payload verbatim.
func (c *AlphaVantageClient) BalanceSheet(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.statement(ctx, avFunctionBalanceSheet, symbol)
}

// IncomeStatement returns the INCOME_STATEMENT payload verbatim.
func (c *AlphaVantageClient) IncomeStatement(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.statement(ctx, avFunctionIncomeStatement, symbol)
}

func (c *AlphaVantageClient) statement(ctx context.Context, function, symbol string) (json.RawMessage, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	if cached, ok := c.cache.Load(function, symbol); ok {
		return cached, nil
	}

	body, err := c.query(ctx, function, symbol)
	if err != nil {
		return nil, err
	}

	var status avStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode %s for %s: %w", strings.ToLower(function), symbol, err)
	}
	if err := status.err(symbol); err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed == "{}" || trimmed == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	raw := json.RawMessage(body)
	if err := c.cache.Store(function, symbol, raw); err != nil {
		c.log.Warnw("cache write failed", "function", function, "symbol", symbol, "error", err)
	}
	return raw, nil
}
