package entity

// ActionType records how a position was exited.
type ActionType string

const (
	ActionTypeFullSell ActionType = "FULL_SELL"
	ActionTypeTrim     ActionType = "TRIM"
)

// ClosedPosition is the immutable record of a full sell or a partial trim.
// ReturnPct is fixed at creation and never recomputed, except by the
// integrity repair pass when SellPrice was left null by an earlier failure.
type ClosedPosition struct {
	Ticker         string     `json:"ticker"`
	BuyPrice       float64    `json:"buy_price"`
	SellPrice      *float64   `json:"sell_price"`
	ReturnPct      float64    `json:"return_pct"`
	HoldPeriodDays int        `json:"hold_period_days"`
	ActionType     ActionType `json:"action_type"`
	Reason         string     `json:"reason,omitempty"`
	ClosedPeriod   string     `json:"closed_period,omitempty"`
}
