package entity

// RiskMode is the portfolio-wide risk posture, ordered by severity.
type RiskMode int

const (
	RiskModeNormal RiskMode = iota
	RiskModeCaution
	RiskModeDefensive
	RiskModeCritical
)

func (m RiskMode) String() string {
	switch m {
	case RiskModeNormal:
		return "NORMAL"
	case RiskModeCaution:
		return "CAUTION"
	case RiskModeDefensive:
		return "DEFENSIVE"
	case RiskModeCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// RiskRules are the position-sizing constraints a risk mode imposes.
type RiskRules struct {
	MaxPositionPct       float64 `json:"max_position_pct"`
	MinCashPct           float64 `json:"min_cash_pct"`
	MaxNewPositions      int     `json:"max_new_positions"`
	AllowSpeculative     bool    `json:"allow_speculative"`
	AllowAggressiveEntry bool    `json:"allow_aggressive_entry"`
}

// RiskState is the current posture plus the signals that produced it.
type RiskState struct {
	Mode              RiskMode  `json:"mode"`
	ModeName          string    `json:"mode_name"`
	Rules             RiskRules `json:"rules"`
	Reasons           []string  `json:"reasons,omitempty"`
	DrawdownPct       float64   `json:"drawdown_pct"`
	WinRatePct        float64   `json:"win_rate_pct"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	AlphaPct          float64   `json:"alpha_pct"`
}

// RiskThresholds are the escalation boundaries per signal. Each signal
// escalates independently; the resulting mode is the worst one triggered.
type RiskThresholds struct {
	DrawdownCautionPct    float64 `json:"drawdown_caution_pct" mapstructure:"drawdown_caution_pct"`
	DrawdownDefensivePct  float64 `json:"drawdown_defensive_pct" mapstructure:"drawdown_defensive_pct"`
	DrawdownCriticalPct   float64 `json:"drawdown_critical_pct" mapstructure:"drawdown_critical_pct"`
	WinRateCautionPct     float64 `json:"win_rate_caution_pct" mapstructure:"win_rate_caution_pct"`
	WinRateDefensivePct   float64 `json:"win_rate_defensive_pct" mapstructure:"win_rate_defensive_pct"`
	MinTradesForWinRate   int     `json:"min_trades_for_win_rate" mapstructure:"min_trades_for_win_rate"`
	StreakCautionCount    int     `json:"streak_caution_count" mapstructure:"streak_caution_count"`
	StreakDefensiveCount  int     `json:"streak_defensive_count" mapstructure:"streak_defensive_count"`
	AlphaCautionPct       float64 `json:"alpha_caution_pct" mapstructure:"alpha_caution_pct"`
	MinTradesForAlphaRule int     `json:"min_trades_for_alpha_rule" mapstructure:"min_trades_for_alpha_rule"`
}

// DefaultRiskThresholds returns the standard escalation boundaries.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
		DrawdownCautionPct:    -10,
		DrawdownDefensivePct:  -15,
		DrawdownCriticalPct:   -20,
		WinRateCautionPct:     40,
		WinRateDefensivePct:   30,
		MinTradesForWinRate:   5,
		StreakCautionCount:    3,
		StreakDefensiveCount:  4,
		AlphaCautionPct:       -10,
		MinTradesForAlphaRule: 3,
	}
}

// RulesForMode returns the policy constants attached to each risk mode.
func RulesForMode(mode RiskMode) RiskRules {
	switch mode {
	case RiskModeCritical:
		return RiskRules{MaxPositionPct: 5, MinCashPct: 40, MaxNewPositions: 1}
	case RiskModeDefensive:
		return RiskRules{MaxPositionPct: 7, MinCashPct: 25, MaxNewPositions: 2}
	case RiskModeCaution:
		return RiskRules{MaxPositionPct: 10, MinCashPct: 15, MaxNewPositions: 3, AllowAggressiveEntry: true}
	default:
		return RiskRules{MaxPositionPct: 15, MinCashPct: 5, MaxNewPositions: 5, AllowSpeculative: true, AllowAggressiveEntry: true}
	}
}
