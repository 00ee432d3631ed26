package dto

import "time"

// GetPricesParam identifies the symbols to resolve in one batch.
type GetPricesParam struct {
	Tickers []string `json:"tickers"`
}

// GetPeriodReturnParam identifies a symbol and window for a period return.
type GetPeriodReturnParam struct {
	Ticker string    `json:"ticker"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Headline is one news item feeding the market context.
type Headline struct {
	Title          string    `json:"title"`
	Link           string    `json:"link,omitempty"`
	Published      time.Time `json:"published"`
	SentimentScore float64   `json:"sentiment_score"`
}

// TickerNews groups headlines per symbol with an aggregate score.
type TickerNews struct {
	Ticker         string     `json:"ticker"`
	Headlines      []Headline `json:"headlines"`
	SentimentScore float64    `json:"sentiment_score"`
}

// MarketContext is the external-signal bundle passed to the
// recommendation prompt.
type MarketContext struct {
	BenchmarkTicker    string       `json:"benchmark_ticker"`
	BenchmarkReturnPct float64      `json:"benchmark_return_pct"`
	News               []TickerNews `json:"news,omitempty"`
}
