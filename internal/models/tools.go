package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UserID accepts 42, 42.0 and "42"; models are not consistent about which
// they emit for integer arguments.
type UserID int64

func (u *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*u = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*u = UserID(n)
		return nil
	}
	// 42.0 and 4.2e1 are fine, 42.5 is not
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("user_id must be an integer: %w", err)
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return fmt.Errorf("user_id must be an integer, got %s", b)
	}
	*u = UserID(int64(f))
	return nil
}

type SymbolInput struct {
	Symbol string `json:"symbol"`
}

type SearchInput struct {
	Query string `json:"query"`
}

type UserInput struct {
	UserID UserID `json:"user_id"`
}

type FavoriteInput struct {
	UserID             UserID   `json:"user_id"`
	StockSymbol        string   `json:"stock_symbol"`
	PriceThresholdLow  *float64 `json:"price_threshold_low,omitempty"`
	PriceThresholdHigh *float64 `json:"price_threshold_high,omitempty"`
}

type RemoveFavoriteInput struct {
	UserID      UserID `json:"user_id"`
	StockSymbol string `json:"stock_symbol"`
}

type HistoryInput struct {
	UserID UserID `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type EmailInput struct {
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

// ActionResult is the {success, message} payload returned by mutating tools.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (r ActionResult) JSON() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// ErrorPayload is what a read tool returns instead of failing the loop.
type ErrorPayload struct {
	Symbol string `json:"symbol,omitempty"`
	Error  string `json:"error"`
}
