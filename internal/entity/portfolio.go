package entity

import "time"

// HoldingStatus tracks where a position is in its lifecycle for the
// current period.
type HoldingStatus string

const (
	HoldingStatusHold          HoldingStatus = "HOLD"
	HoldingStatusBuy           HoldingStatus = "BUY"
	HoldingStatusAdd           HoldingStatus = "ADD"
	HoldingStatusTrim          HoldingStatus = "TRIM"
	HoldingStatusStopLossHit   HoldingStatus = "STOP_LOSS_HIT"
	HoldingStatusTargetReached HoldingStatus = "TARGET_REACHED"
)

// AddEvent records a single top-up of an existing position. The log is
// append-only so cost basis changes stay auditable.
type AddEvent struct {
	Date      time.Time `json:"date"`
	AmountUSD float64   `json:"amount_usd"`
	AddedPct  float64   `json:"added_pct"`
	Price     float64   `json:"price"`
}

// Holding is one open position in the portfolio.
type Holding struct {
	Ticker           string        `json:"ticker"`
	CompanyName      string        `json:"company_name,omitempty"`
	Sector           string        `json:"sector,omitempty"`
	RecommendedDate  time.Time     `json:"recommended_date"`
	RecommendedPrice float64       `json:"recommended_price"` // cost basis, mutated only by adds
	CurrentPrice     float64       `json:"current_price"`
	GainLossPct      float64       `json:"gain_loss_pct"`
	PriceStale       bool          `json:"price_stale"`
	AllocationPct    float64       `json:"allocation_pct"`
	InvestmentAmount float64       `json:"investment_amount"`
	Shares           float64       `json:"shares"`
	StopLoss         float64       `json:"stop_loss"`
	PriceTarget      float64       `json:"price_target"`
	Thesis           string        `json:"thesis,omitempty"`
	RiskLevel        string        `json:"risk_level,omitempty"`
	Status           HoldingStatus `json:"status"`
	LastReviewed     time.Time     `json:"last_reviewed"`
	AddHistory       []AddEvent    `json:"add_history,omitempty"`
}

// Cash is the uninvested sleeve. AllocationPct is always derived as
// 100 minus the sum of holding allocations, never set directly.
type Cash struct {
	AllocationPct float64 `json:"allocation_pct"`
	Vehicle       string  `json:"vehicle,omitempty"`
	YieldPct      float64 `json:"yield_pct"`
}

// AlertType distinguishes the two price triggers a holding can hit.
type AlertType string

const (
	AlertTypeStopLoss AlertType = "stop_loss"
	AlertTypeTarget   AlertType = "target"
)

// Alert is emitted when a holding crosses its stop loss or price target.
type Alert struct {
	Ticker        string    `json:"ticker"`
	Type          AlertType `json:"type"`
	TriggerPrice  float64   `json:"trigger_price"`
	CurrentPrice  float64   `json:"current_price"`
	GainLossPct   float64   `json:"gain_loss_pct"`
	AllocationPct float64   `json:"allocation_pct"`
}
