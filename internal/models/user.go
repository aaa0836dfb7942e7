package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type User struct {
	ID        int64     `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type FavoriteStock struct {
	ID                 int64     `db:"favorite_id" json:"-"`
	UserID             int64     `db:"user_id" json:"-"`
	Symbol             string    `db:"stock_symbol" json:"stock_symbol"`
	PriceThresholdLow  *float64  `db:"price_threshold_low" json:"price_threshold_low"`
	PriceThresholdHigh *float64  `db:"price_threshold_high" json:"price_threshold_high"`
	AddedAt            time.Time `db:"added_at" json:"added_at"`
}

type Query struct {
	ID        int64     `db:"query_id" json:"query_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Text      string    `db:"query_text" json:"query_text"`
	Timestamp time.Time `db:"query_timestamp" json:"query_timestamp"`
	Type      string    `db:"query_type" json:"query_type"`
}

type Response struct {
	ID              int64     `db:"response_id" json:"response_id"`
	QueryID         int64     `db:"query_id" json:"query_id"`
	Text            string    `db:"response_text" json:"response_text"`
	Timestamp       time.Time `db:"response_timestamp" json:"response_timestamp"`
	ToolsUsed       ToolList  `db:"tools_used" json:"tools_used"`
	ExecutionTimeMS int64     `db:"execution_time_ms" json:"execution_time_ms"`
}

// HistoryEntry joins a query with its response.
type HistoryEntry struct {
	QueryText       string    `db:"query_text" json:"query_text"`
	QueryTimestamp  time.Time `db:"query_timestamp" json:"query_timestamp"`
	ResponseText    string    `db:"response_text" json:"response_text"`
	ToolsUsed       ToolList  `db:"tools_used" json:"tools_used"`
	ExecutionTimeMS int64     `db:"execution_time_ms" json:"execution_time_ms"`
}

// ToolList is an ordered list of tool names stored as a JSON array in TEXT.
type ToolList []string

func (t ToolList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *ToolList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("tool list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*t = nil
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return fmt.Errorf("tool list: %w", err)
	}
	*t = names
	return nil
}
