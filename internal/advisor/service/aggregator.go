package service

import (
	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/utils"
)

const breakevenBandPct = 0.5

// Aggregator owns the derived performance and risk state: it closes
// periods, compounds history into the summary, and classifies the risk
// mode. Historical records are never mutated.
type Aggregator interface {
	ClosePeriod(oldHoldings []entity.Holding, cash entity.Cash, startingValue float64, benchmarkReturnPct float64, period string) entity.MonthlyRecord
	RecomputeSummary(startingCapital float64, records []entity.MonthlyRecord, closed []entity.ClosedPosition) entity.PerformanceSummary
	ComputeRiskState(summary entity.PerformanceSummary, thresholds entity.RiskThresholds) entity.RiskState
}

type aggregator struct {
	logger *logger.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(log *logger.Logger) Aggregator {
	return &aggregator{logger: log}
}

// ClosePeriod computes the period return as a cash-weighted blend over the
// pre-transition holdings: each holding contributes weight times its gain,
// the cash sleeve contributes weight times one month of its annual yield.
// The ending value compounds off the starting value, never off starting
// capital.
func (a *aggregator) ClosePeriod(oldHoldings []entity.Holding, cash entity.Cash, startingValue float64, benchmarkReturnPct float64, period string) entity.MonthlyRecord {
	weighted := 0.0
	for _, h := range oldHoldings {
		weighted += h.AllocationPct * h.GainLossPct
	}
	weighted += cash.AllocationPct * (cash.YieldPct / 12)

	returnPct := utils.RoundFloat(weighted/100, 4)
	endingValue := utils.RoundFloat(startingValue*(1+returnPct/100), 2)

	return entity.MonthlyRecord{
		Period:             period,
		StartingValue:      startingValue,
		EndingValue:        endingValue,
		PortfolioReturnPct: returnPct,
		BenchmarkReturnPct: utils.RoundFloat(benchmarkReturnPct, 4),
		AlphaPct:           utils.RoundFloat(returnPct-benchmarkReturnPct, 4),
		CashPct:            cash.AllocationPct,
		PositionCount:      len(oldHoldings),
	}
}

// RecomputeSummary rebuilds the performance summary from scratch. Returns
// compound multiplicatively, and trades inside the breakeven band count as
// neither win nor loss.
func (a *aggregator) RecomputeSummary(startingCapital float64, records []entity.MonthlyRecord, closed []entity.ClosedPosition) entity.PerformanceSummary {
	summary := entity.PerformanceSummary{
		CurrentValue:     startingCapital,
		PeakValue:        startingCapital,
		PeriodsCompleted: len(records),
	}

	portfolioFactor := 1.0
	benchmarkFactor := 1.0
	value := startingCapital
	peak := startingCapital
	for _, rec := range records {
		portfolioFactor *= 1 + rec.PortfolioReturnPct/100
		benchmarkFactor *= 1 + rec.BenchmarkReturnPct/100
		value = rec.EndingValue
		if value > peak {
			peak = value
		}
	}

	summary.TotalReturnPct = utils.RoundFloat((portfolioFactor-1)*100, 4)
	summary.BenchmarkReturnPct = utils.RoundFloat((benchmarkFactor-1)*100, 4)
	summary.AlphaPct = utils.RoundFloat(summary.TotalReturnPct-summary.BenchmarkReturnPct, 4)
	summary.CurrentValue = value
	summary.PeakValue = peak
	if peak > 0 {
		summary.DrawdownPct = utils.RoundFloat((value-peak)/peak*100, 4)
	}

	summary.ClosedPositionsCount = len(closed)
	best, worst := 0.0, 0.0
	totalReturn := 0.0
	streak := 0
	for _, cp := range closed {
		totalReturn += cp.ReturnPct
		switch {
		case cp.ReturnPct > breakevenBandPct:
			summary.Wins++
		case cp.ReturnPct < -breakevenBandPct:
			summary.Losses++
		default:
			summary.Breakevens++
		}

		// trailing consecutive losses over the append-only log
		if cp.ReturnPct < -breakevenBandPct {
			streak++
		} else {
			streak = 0
		}

		if summary.BestTradeTicker == "" || cp.ReturnPct > best {
			best = cp.ReturnPct
			summary.BestTradeTicker = cp.Ticker
			summary.BestTradeReturnPct = cp.ReturnPct
		}
		if summary.WorstTradeTicker == "" || cp.ReturnPct < worst {
			worst = cp.ReturnPct
			summary.WorstTradeTicker = cp.Ticker
			summary.WorstTradeReturnPct = cp.ReturnPct
		}
	}
	// the streak signal is the worse of the trailing losing-period streak
	// and the trailing losing-trade streak
	monthlyStreak := 0
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].PortfolioReturnPct >= 0 {
			break
		}
		monthlyStreak++
	}
	summary.ConsecutiveLosses = streak
	if monthlyStreak > summary.ConsecutiveLosses {
		summary.ConsecutiveLosses = monthlyStreak
	}

	if decided := summary.Wins + summary.Losses; decided > 0 {
		summary.WinRatePct = utils.RoundFloat(float64(summary.Wins)/float64(decided)*100, 2)
	}
	if len(closed) > 0 {
		summary.AvgTradeReturnPct = utils.RoundFloat(totalReturn/float64(len(closed)), 2)
	}

	return summary
}

// ComputeRiskState classifies the risk mode as the worst severity any
// single rule triggers. Rules never combine additively.
func (a *aggregator) ComputeRiskState(summary entity.PerformanceSummary, thresholds entity.RiskThresholds) entity.RiskState {
	mode := entity.RiskModeNormal
	var reasons []string

	escalate := func(to entity.RiskMode, reason string) {
		if to > mode {
			mode = to
		}
		reasons = append(reasons, reason)
	}

	dd := summary.DrawdownPct
	switch {
	case dd <= thresholds.DrawdownCriticalPct:
		escalate(entity.RiskModeCritical, "drawdown beyond critical threshold")
	case dd <= thresholds.DrawdownDefensivePct:
		escalate(entity.RiskModeDefensive, "drawdown beyond defensive threshold")
	case dd <= thresholds.DrawdownCautionPct:
		escalate(entity.RiskModeCaution, "drawdown beyond caution threshold")
	}

	decided := summary.Wins + summary.Losses
	if decided >= thresholds.MinTradesForWinRate {
		switch {
		case summary.WinRatePct < thresholds.WinRateDefensivePct:
			escalate(entity.RiskModeDefensive, "win rate below defensive threshold")
		case summary.WinRatePct < thresholds.WinRateCautionPct:
			escalate(entity.RiskModeCaution, "win rate below caution threshold")
		}
	}

	switch {
	case thresholds.StreakDefensiveCount > 0 && summary.ConsecutiveLosses >= thresholds.StreakDefensiveCount:
		escalate(entity.RiskModeDefensive, "consecutive loss streak at defensive threshold")
	case thresholds.StreakCautionCount > 0 && summary.ConsecutiveLosses >= thresholds.StreakCautionCount:
		escalate(entity.RiskModeCaution, "consecutive loss streak at caution threshold")
	}

	if decided >= thresholds.MinTradesForAlphaRule && summary.AlphaPct < thresholds.AlphaCautionPct {
		escalate(entity.RiskModeCaution, "underperforming benchmark")
	}

	state := entity.RiskState{
		Mode:              mode,
		ModeName:          mode.String(),
		Rules:             entity.RulesForMode(mode),
		Reasons:           reasons,
		DrawdownPct:       summary.DrawdownPct,
		WinRatePct:        summary.WinRatePct,
		ConsecutiveLosses: summary.ConsecutiveLosses,
		AlphaPct:          summary.AlphaPct,
	}

	if mode > entity.RiskModeNormal {
		a.logger.Warn("Risk mode elevated",
			logger.StringField("mode", state.ModeName),
			logger.Field("reasons", reasons),
		)
	}

	return state
}
