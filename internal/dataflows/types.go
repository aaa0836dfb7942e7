package dataflows

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dyike/finreact/internal/models"
)

var (
	// ErrNoData means the provider answered but has no series for the symbol.
	ErrNoData = errors.New("no data for symbol")
	// ErrRateLimited is returned when the provider answered with a throttling note.
	ErrRateLimited = errors.New("provider rate limit reached")
	// ErrMissingAPIKey is returned before any request is made.
	ErrMissingAPIKey = errors.New("api key not configured")
)

// QuoteSource fetches the most recent daily bar for a symbol.
type QuoteSource interface {
	DailyQuote(ctx context.Context, symbol string) (*models.StockQuote, error)
}

// StatementSource fetches raw financial statements.
type StatementSource interface {
	BalanceSheet(ctx context.Context, symbol string) (json.RawMessage, error)
	IncomeStatement(ctx context.Context, symbol string) (json.RawMessage, error)
}

// Searcher runs a free-text web search and returns newline-delimited results.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}
