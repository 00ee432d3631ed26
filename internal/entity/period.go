package entity

// MonthlyRecord is one completed advisory period. Records are append-only
// and keyed by Period; EndingValue must equal
// StartingValue * (1 + PortfolioReturnPct/100).
type MonthlyRecord struct {
	Period             string  `json:"period"`
	StartingValue      float64 `json:"starting_value"`
	EndingValue        float64 `json:"ending_value"`
	PortfolioReturnPct float64 `json:"portfolio_return_pct"`
	BenchmarkReturnPct float64 `json:"benchmark_return_pct"`
	AlphaPct           float64 `json:"alpha_pct"`
	CashPct            float64 `json:"cash_pct"`
	PositionCount      int     `json:"position_count"`
}

// PerformanceSummary is derived state, recomputed from scratch from the
// full period history and closed-position log after every change.
type PerformanceSummary struct {
	TotalReturnPct       float64 `json:"total_return_pct"`
	BenchmarkReturnPct   float64 `json:"benchmark_return_pct"`
	AlphaPct             float64 `json:"alpha_pct"`
	CurrentValue         float64 `json:"current_value"`
	PeakValue            float64 `json:"peak_value"`
	DrawdownPct          float64 `json:"drawdown_pct"`
	Wins                 int     `json:"wins"`
	Losses               int     `json:"losses"`
	Breakevens           int     `json:"breakevens"`
	WinRatePct           float64 `json:"win_rate_pct"`
	ConsecutiveLosses    int     `json:"consecutive_losses"`
	BestTradeTicker      string  `json:"best_trade_ticker,omitempty"`
	BestTradeReturnPct   float64 `json:"best_trade_return_pct"`
	WorstTradeTicker     string  `json:"worst_trade_ticker,omitempty"`
	WorstTradeReturnPct  float64 `json:"worst_trade_return_pct"`
	AvgTradeReturnPct    float64 `json:"avg_trade_return_pct"`
	ClosedPositionsCount int     `json:"closed_positions_count"`
	PeriodsCompleted     int     `json:"periods_completed"`
}
