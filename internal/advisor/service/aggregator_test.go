package service

import (
	"testing"

	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(period string, start, ret, bench float64) entity.MonthlyRecord {
	return entity.MonthlyRecord{
		Period:             period,
		StartingValue:      start,
		EndingValue:        start * (1 + ret/100),
		PortfolioReturnPct: ret,
		BenchmarkReturnPct: bench,
		AlphaPct:           ret - bench,
	}
}

func closedTrade(ticker string, returnPct float64) entity.ClosedPosition {
	sell := 100 * (1 + returnPct/100)
	return entity.ClosedPosition{
		Ticker:     ticker,
		BuyPrice:   100,
		SellPrice:  &sell,
		ReturnPct:  returnPct,
		ActionType: entity.ActionTypeFullSell,
	}
}

func TestClosePeriodCashWeightedBlend(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	// one holding at 20% up 10%, cash 80% at 5% annual yield:
	// (20*10 + 80*(5/12)) / 100 = 2.33%
	holdings := []entity.Holding{{
		Ticker:           "AAPL",
		RecommendedPrice: 150,
		CurrentPrice:     165,
		GainLossPct:      10,
		AllocationPct:    20,
	}}
	cash := entity.Cash{AllocationPct: 80, YieldPct: 5}

	rec := a.ClosePeriod(holdings, cash, 100000, 1.0, "2026-08-1")

	assert.InDelta(t, 2.33, rec.PortfolioReturnPct, 0.01)
	assert.InDelta(t, 100000*(1+rec.PortfolioReturnPct/100), rec.EndingValue, 0.01)
	assert.InDelta(t, rec.PortfolioReturnPct-1.0, rec.AlphaPct, 0.001)
	assert.Equal(t, "2026-08-1", rec.Period)
	assert.Equal(t, 1, rec.PositionCount)
}

func TestClosePeriodCompoundsOffStartingValue(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	holdings := []entity.Holding{{Ticker: "AAPL", GainLossPct: 5, AllocationPct: 100}}
	rec := a.ClosePeriod(holdings, entity.Cash{}, 103950, 0, "2026-09-1")

	// ending compounds off the prior ending value, not starting capital
	assert.InDelta(t, 103950*1.05, rec.EndingValue, 0.01)
	assert.InDelta(t, 103950, rec.StartingValue, 0.001)
}

func TestRecomputeSummaryCompoundsMultiplicatively(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	// [10%, -10%, 5%] compounds to 3.95%, not the 5% simple sum
	records := []entity.MonthlyRecord{
		record("p1", 100000, 10, 2),
		record("p2", 110000, -10, -1),
		record("p3", 99000, 5, 3),
	}

	summary := a.RecomputeSummary(100000, records, nil)

	assert.InDelta(t, 3.95, summary.TotalReturnPct, 0.01)
	expectedBench := ((1.02 * 0.99 * 1.03) - 1) * 100
	assert.InDelta(t, expectedBench, summary.BenchmarkReturnPct, 0.01)
	assert.InDelta(t, summary.TotalReturnPct-expectedBench, summary.AlphaPct, 0.01)
	assert.Equal(t, 3, summary.PeriodsCompleted)
}

func TestRecomputeSummaryDrawdownFromRunningPeak(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	records := []entity.MonthlyRecord{
		record("p1", 100000, 20, 0),
		record("p2", 120000, -10, 0),
	}

	summary := a.RecomputeSummary(100000, records, nil)

	assert.InDelta(t, 120000, summary.PeakValue, 0.01)
	assert.InDelta(t, 108000, summary.CurrentValue, 0.01)
	assert.InDelta(t, -10, summary.DrawdownPct, 0.01)
	assert.LessOrEqual(t, summary.DrawdownPct, 0.0)
}

func TestRecomputeSummaryBreakevenBand(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	closed := []entity.ClosedPosition{
		closedTrade("W1", 12),
		closedTrade("B1", 0.3),
		closedTrade("B2", -0.4),
		closedTrade("L1", -5),
	}

	summary := a.RecomputeSummary(100000, nil, closed)

	assert.Equal(t, 1, summary.Wins)
	assert.Equal(t, 1, summary.Losses)
	assert.Equal(t, 2, summary.Breakevens)
	// win rate denominator excludes breakevens
	assert.InDelta(t, 50, summary.WinRatePct, 0.001)
	assert.Equal(t, "W1", summary.BestTradeTicker)
	assert.Equal(t, "L1", summary.WorstTradeTicker)
}

func TestRecomputeSummaryConsecutiveLossStreak(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	closed := []entity.ClosedPosition{
		closedTrade("A", -4),
		closedTrade("B", 8),
		closedTrade("C", -2),
		closedTrade("D", -6),
		closedTrade("E", -1),
	}

	summary := a.RecomputeSummary(100000, nil, closed)
	assert.Equal(t, 3, summary.ConsecutiveLosses)
}

func TestRecomputeSummaryLosingPeriodsCountTowardStreak(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	// four straight -2% periods with no exits: the slow bleed must still
	// register as a streak even though no trade ever closed
	records := []entity.MonthlyRecord{
		record("p1", 100000, -2, 0),
		record("p2", 98000, -2, 0),
		record("p3", 96040, -2, 0),
		record("p4", 94119.2, -2, 0),
	}

	summary := a.RecomputeSummary(100000, records, nil)
	assert.Equal(t, 4, summary.ConsecutiveLosses)
	assert.Greater(t, summary.DrawdownPct, -10.0, "drawdown alone stays under the caution bar")

	state := a.ComputeRiskState(summary, entity.DefaultRiskThresholds())
	assert.Equal(t, entity.RiskModeDefensive, state.Mode)
}

func TestRecomputeSummaryStreakTakesWorseOfPeriodsAndTrades(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	// two losing periods but three trailing losing trades
	records := []entity.MonthlyRecord{
		record("p1", 100000, 3, 0),
		record("p2", 103000, -1, 0),
		record("p3", 101970, -1, 0),
	}
	closed := []entity.ClosedPosition{
		closedTrade("A", -4),
		closedTrade("B", -2),
		closedTrade("C", -6),
	}

	summary := a.RecomputeSummary(100000, records, closed)
	assert.Equal(t, 3, summary.ConsecutiveLosses)

	// a winning latest period resets the period side; trades still count
	records[2] = record("p3", 101970, 2, 0)
	summary = a.RecomputeSummary(100000, records, closed)
	assert.Equal(t, 3, summary.ConsecutiveLosses)
}

func TestComputeRiskStateDrawdownAloneEscalates(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	// -16% drawdown alone forces DEFENSIVE even with healthy trades
	summary := entity.PerformanceSummary{
		DrawdownPct: -16,
		WinRatePct:  80,
		Wins:        8,
		Losses:      2,
	}

	state := a.ComputeRiskState(summary, entity.DefaultRiskThresholds())
	assert.Equal(t, entity.RiskModeDefensive, state.Mode)
	assert.Equal(t, "DEFENSIVE", state.ModeName)
}

func TestComputeRiskStateWorstRuleDominates(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	// -8% drawdown is below the caution bar, but 4 straight losses pushes
	// straight to DEFENSIVE
	summary := entity.PerformanceSummary{
		DrawdownPct:       -8,
		WinRatePct:        50,
		Wins:              4,
		Losses:            4,
		ConsecutiveLosses: 4,
	}

	state := a.ComputeRiskState(summary, entity.DefaultRiskThresholds())
	assert.Equal(t, entity.RiskModeDefensive, state.Mode)
}

func TestComputeRiskStateCriticalDrawdown(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	state := a.ComputeRiskState(entity.PerformanceSummary{DrawdownPct: -22}, entity.DefaultRiskThresholds())
	assert.Equal(t, entity.RiskModeCritical, state.Mode)
	assert.InDelta(t, 5, state.Rules.MaxPositionPct, 0.001)
	assert.InDelta(t, 40, state.Rules.MinCashPct, 0.001)
	assert.False(t, state.Rules.AllowSpeculative)
}

func TestComputeRiskStateWinRateNeedsMinTrades(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	// 1 win, 3 losses is a 25% win rate but only 4 decided trades
	summary := entity.PerformanceSummary{WinRatePct: 25, Wins: 1, Losses: 3}
	state := a.ComputeRiskState(summary, entity.DefaultRiskThresholds())
	assert.Equal(t, entity.RiskModeNormal, state.Mode)

	summary.Losses = 4
	summary.WinRatePct = 20
	state = a.ComputeRiskState(summary, entity.DefaultRiskThresholds())
	assert.Equal(t, entity.RiskModeDefensive, state.Mode)
}

func TestComputeRiskStateAlphaRule(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	summary := entity.PerformanceSummary{
		AlphaPct:   -12,
		Wins:       2,
		Losses:     1,
		WinRatePct: 66.67,
	}
	state := a.ComputeRiskState(summary, entity.DefaultRiskThresholds())
	require.Equal(t, entity.RiskModeCaution, state.Mode)
	assert.NotEmpty(t, state.Reasons)
}

func TestComputeRiskStateNormalRules(t *testing.T) {
	a := NewAggregator(logger.NewNop())

	state := a.ComputeRiskState(entity.PerformanceSummary{}, entity.DefaultRiskThresholds())
	assert.Equal(t, entity.RiskModeNormal, state.Mode)
	assert.InDelta(t, 15, state.Rules.MaxPositionPct, 0.001)
	assert.True(t, state.Rules.AllowSpeculative)
	assert.Equal(t, 5, state.Rules.MaxNewPositions)
}
