package models

// StockQuote is the most recent daily bar for a symbol together with the
// intraday move (close - open) and that move as a percentage of open.
type StockQuote struct {
	Symbol        string  `json:"symbol"`
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Source        string  `json:"source,omitempty"`
}
