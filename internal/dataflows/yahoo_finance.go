package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"github.com/dyike/finreact/internal/models"
)

// YahooFinanceClient reads daily bars from Yahoo Finance's chart endpoint
type YahooFinanceClient struct {
	lookback time.Duration
	now      func() time.Time
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient() *YahooFinanceClient {
	return &YahooFinanceClient{
		lookback: 10 * 24 * time.Hour,
		now:      time.Now,
	}
}

// DailyQuote returns the last daily bar within the lookback window.
func (yf *YahooFinanceClient) DailyQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := yf.now()
	start := end.Add(-yf.lookback)
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var last *models.StockQuote
	for iter.Next() {
		bar := iter.Bar()
		if bar == nil || bar.Close.IsZero() {
			continue
		}
		date := time.Unix(int64(bar.Timestamp), 0).Format("2006-01-02")
		last = BuildQuote(symbol, date, bar.Open, bar.High, bar.Low, bar.Close, int64(bar.Volume), "yahoo")
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if last == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	return last, nil
}
