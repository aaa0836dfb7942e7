package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/finreact/config"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{DataDir: t.TempDir()},
		Market: config.MarketConfig{
			AlphaVantageAPIKey:  "demo",
			AlphaVantageBaseURL: baseURL,
			HTTPTimeout:         5 * time.Second,
			CacheEnabled:        true,
			CacheTTL:            time.Hour,
		},
		Search: config.SearchConfig{
			Provider:          config.SearchSerpAPI,
			SerpAPIKey:        "serp-key",
			SerpAPIBaseURL:    baseURL,
			DuckDuckGoBaseURL: baseURL,
			MaxResults:        3,
		},
	}
}

const dailyFixture = `{
  "Meta Data": {"2. Symbol": "QQQ"},
  "Time Series (Daily)": {
    "2024-03-14": {"1. open": "440.0000", "2. high": "445.1000", "3. low": "438.0000", "4. close": "441.5000", "5. volume": "39000000"},
    "2024-03-15": {"1. open": "439.5000", "2. high": "440.2000", "3. low": "433.9000", "4. close": "435.1000", "5. volume": "41234567"}
  }
}`

func TestDailyQuoteUsesLatestBar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "QQQ", r.URL.Query().Get("symbol"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(dailyFixture))
	}))
	defer srv.Close()

	c := NewAlphaVantageClient(testConfig(t, srv.URL), nil)
	q, err := c.DailyQuote(context.Background(), "qqq")
	require.NoError(t, err)

	assert.Equal(t, "QQQ", q.Symbol)
	assert.Equal(t, "2024-03-15", q.Date)
	assert.Equal(t, 439.5, q.Open)
	assert.Equal(t, 435.1, q.Close)
	assert.Equal(t, int64(41234567), q.Volume)
	assert.InDelta(t, q.Close-q.Open, q.Change, 1e-9)
	assert.InDelta(t, q.Change/q.Open*100, q.ChangePercent, 1e-9)
}

func TestDailyQuoteProviderMessages(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"unknown symbol", `{"Error Message": "Invalid API call."}`, ErrNoData},
		{"throttled", `{"Note": "Thank you for using Alpha Vantage!"}`, ErrRateLimited},
		{"daily cap", `{"Information": "standard API rate limit is 25 requests per day"}`, ErrRateLimited},
		{"empty series", `{"Meta Data": {}}`, ErrNoData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewAlphaVantageClient(testConfig(t, srv.URL), nil).DailyQuote(context.Background(), "ZZZZ")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMissingAPIKeyMakesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Market.AlphaVantageAPIKey = ""
	_, err := NewAlphaVantageClient(cfg, nil).DailyQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestStatementsArePassedThroughAndCached(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Query().Get("function") {
		case "BALANCE_SHEET":
			_, _ = w.Write([]byte(`{"symbol":"IBM","annualReports":[{"totalAssets":"100"}]}`))
		case "INCOME_STATEMENT":
			_, _ = w.Write([]byte(`{"symbol":"IBM","annualReports":[{"netIncome":"7"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewAlphaVantageClient(testConfig(t, srv.URL), nil)
	ctx := context.Background()

	bs, err := c.BalanceSheet(ctx, "ibm")
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"IBM","annualReports":[{"totalAssets":"100"}]}`, string(bs))

	again, err := c.BalanceSheet(ctx, "IBM")
	require.NoError(t, err)
	assert.JSONEq(t, string(bs), string(again))

	is, err := c.IncomeStatement(ctx, "IBM")
	require.NoError(t, err)
	assert.Contains(t, string(is), "netIncome")

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestStatementEmptyObjectIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewAlphaVantageClient(testConfig(t, srv.URL), nil).IncomeStatement(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNoData)
}
