package dataflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/models"
)

var hundred = decimal.NewFromInt(100)

// BuildQuote derives change = close - open and change_percent = change / open * 100.
func BuildQuote(symbol, date string, open, high, low, closePrice decimal.Decimal, volume int64, source string) *models.StockQuote {
	change := closePrice.Sub(open)
	pct := decimal.Zero
	if !open.IsZero() {
		pct = change.Div(open).Mul(hundred)
	}

	q := &models.StockQuote{
		Symbol: symbol,
		Date:   date,
		Volume: volume,
		Source: source,
	}
	q.Open, _ = open.Float64()
	q.High, _ = high.Float64()
	q.Low, _ = low.Float64()
	q.Close, _ = closePrice.Float64()
	q.Change, _ = change.Float64()
	q.ChangePercent, _ = pct.Float64()
	return q
}

// FallbackQuotes asks the primary source first and the fallback only when
// the primary fails.
type FallbackQuotes struct {
	primary  QuoteSource
	fallback QuoteSource
	log      *logger.Logger
}

func NewFallbackQuotes(primary, fallback QuoteSource, log *logger.Logger) *FallbackQuotes {
	if log == nil {
		log = logger.Nop()
	}
	return &FallbackQuotes{primary: primary, fallback: fallback, log: log.Component("quotes")}
}

func (f *FallbackQuotes) DailyQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	q, err := f.primary.DailyQuote(ctx, symbol)
	if err == nil || f.fallback == nil {
		return q, err
	}
	if ctx.Err() != nil {
		return nil, err
	}

	f.log.Warnw("primary quote source failed, trying fallback", "symbol", symbol, "error", err)
	q, fbErr := f.fallback.DailyQuote(ctx, symbol)
	if fbErr != nil {
		return nil, fmt.Errorf("%w (fallback: %v)", err, fbErr)
	}
	return q, nil
}

// NewQuoteSource wires Alpha Vantage with the optional Yahoo fallback.
func NewQuoteSource(cfg *config.Config, av *AlphaVantageClient, log *logger.Logger) QuoteSource {
	if !cfg.Market.YahooFallback {
		return av
	}
	return NewFallbackQuotes(av, NewYahooFinanceClient(), log)
}

// IsNoData reports whether err means the provider has no series for a symbol.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}
