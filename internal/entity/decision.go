package entity

// SellDecision fully exits a held position.
type SellDecision struct {
	Ticker    string   `json:"ticker"`
	SellPrice *float64 `json:"sell_price,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// TrimDecision reduces a position to NewAllocationPct without closing it.
type TrimDecision struct {
	Ticker           string  `json:"ticker"`
	NewAllocationPct float64 `json:"new_allocation_pct"`
	Reason           string  `json:"reason,omitempty"`
}

// AddDecision tops up an existing position. Exactly one of AmountUSD or
// AddedPct should be set; the percentage path is converted to dollars
// against the current portfolio value before the cost basis is reweighted.
type AddDecision struct {
	Ticker    string  `json:"ticker"`
	AmountUSD float64 `json:"amount_usd,omitempty"`
	AddedPct  float64 `json:"added_pct,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// HoldDecision explicitly confirms an unchanged position.
type HoldDecision struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason,omitempty"`
}

// BuyDecision opens a new position. InvestmentAmount is preferred over
// AllocationPct when both are present.
type BuyDecision struct {
	Ticker           string  `json:"ticker"`
	CompanyName      string  `json:"company_name,omitempty"`
	Sector           string  `json:"sector,omitempty"`
	InvestmentAmount float64 `json:"investment_amount,omitempty"`
	AllocationPct    float64 `json:"allocation_pct,omitempty"`
	RecommendedPrice float64 `json:"recommended_price,omitempty"`
	EntryZoneLow     float64 `json:"entry_zone_low,omitempty"`
	EntryZoneHigh    float64 `json:"entry_zone_high,omitempty"`
	StopLoss         float64 `json:"stop_loss"`
	PriceTarget      float64 `json:"price_target"`
	Thesis           string  `json:"thesis,omitempty"`
	RiskLevel        string  `json:"risk_level,omitempty"`
}

// DecisionSet is one period's proposed actions, grouped by kind so the
// ledger can apply them in its fixed order.
type DecisionSet struct {
	Sells   []SellDecision `json:"sells"`
	Trims   []TrimDecision `json:"trims"`
	Adds    []AddDecision  `json:"adds"`
	Holds   []HoldDecision `json:"holds"`
	NewBuys []BuyDecision  `json:"new_buys"`
}

// IsEmpty reports whether the set proposes no action at all.
func (d DecisionSet) IsEmpty() bool {
	return len(d.Sells) == 0 && len(d.Trims) == 0 && len(d.Adds) == 0 &&
		len(d.Holds) == 0 && len(d.NewBuys) == 0
}
