package service

import (
	"testing"

	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalRules() entity.RiskRules {
	return entity.RulesForMode(entity.RiskModeNormal)
}

func TestValidateClampsOversizedBuy(t *testing.T) {
	v := NewValidator(logger.NewNop())

	decisions := entity.DecisionSet{
		NewBuys: []entity.BuyDecision{{Ticker: "NVDA", InvestmentAmount: 2500}},
	}

	// 25% of a $10000 portfolio against a 15% cap
	result := v.Validate(decisions, nil, entity.Cash{AllocationPct: 100}, 10000, normalRules())

	assert.True(t, result.Valid, "clamping is a correction, not a blocking issue")
	require.Len(t, result.Corrections, 1)
	assert.InDelta(t, 15, result.CorrectedDecisions.NewBuys[0].AllocationPct, 0.001)
	assert.InDelta(t, 1500, result.CorrectedDecisions.NewBuys[0].InvestmentAmount, 0.001)

	// the caller's proposal is untouched
	assert.InDelta(t, 2500, decisions.NewBuys[0].InvestmentAmount, 0.001)
}

func TestValidateClampsAddOverCap(t *testing.T) {
	v := NewValidator(logger.NewNop())

	holdings := []entity.Holding{{Ticker: "NVDA", AllocationPct: 12}}
	decisions := entity.DecisionSet{
		Adds: []entity.AddDecision{{Ticker: "NVDA", AmountUSD: 800}},
	}

	// 12% + 8% would breach the 15% cap; only 3% fits
	result := v.Validate(decisions, holdings, entity.Cash{AllocationPct: 88}, 10000, normalRules())

	assert.True(t, result.Valid)
	require.Len(t, result.Corrections, 1)
	assert.InDelta(t, 3, result.CorrectedDecisions.Adds[0].AddedPct, 0.001)
	assert.InDelta(t, 300, result.CorrectedDecisions.Adds[0].AmountUSD, 0.001)
}

func TestValidateNegativeProjectedCashIsHardIssue(t *testing.T) {
	v := NewValidator(logger.NewNop())

	holdings := []entity.Holding{{Ticker: "AAPL", AllocationPct: 10}}
	decisions := entity.DecisionSet{
		NewBuys: []entity.BuyDecision{
			{Ticker: "MSFT", InvestmentAmount: 1000},
			{Ticker: "NVDA", InvestmentAmount: 500},
		},
	}

	// only 5% cash, buys need 15%
	result := v.Validate(decisions, holdings, entity.Cash{AllocationPct: 5}, 10000, normalRules())

	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Issues)
}

func TestValidateSellsAndTrimsFreeCash(t *testing.T) {
	v := NewValidator(logger.NewNop())

	holdings := []entity.Holding{
		{Ticker: "AAPL", AllocationPct: 10},
		{Ticker: "PLTR", AllocationPct: 8},
	}
	decisions := entity.DecisionSet{
		Sells:   []entity.SellDecision{{Ticker: "AAPL"}},
		Trims:   []entity.TrimDecision{{Ticker: "PLTR", NewAllocationPct: 4}},
		NewBuys: []entity.BuyDecision{{Ticker: "MSFT", InvestmentAmount: 1500}},
	}

	// 2% cash + 10% freed + 4% freed covers the 15% buy
	result := v.Validate(decisions, holdings, entity.Cash{AllocationPct: 2}, 10000, normalRules())
	assert.True(t, result.Valid)
}

func TestValidateSellOfUnheldIsHardIssue(t *testing.T) {
	v := NewValidator(logger.NewNop())

	decisions := entity.DecisionSet{Sells: []entity.SellDecision{{Ticker: "GME"}}}
	result := v.Validate(decisions, nil, entity.Cash{AllocationPct: 100}, 10000, normalRules())

	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "GME", result.Issues[0].Ticker)
}

func TestValidateDuplicateBuyIsWarningOnly(t *testing.T) {
	v := NewValidator(logger.NewNop())

	holdings := []entity.Holding{{Ticker: "AAPL", AllocationPct: 10}}
	decisions := entity.DecisionSet{
		NewBuys: []entity.BuyDecision{{Ticker: "AAPL", InvestmentAmount: 500}},
	}

	result := v.Validate(decisions, holdings, entity.Cash{AllocationPct: 90}, 10000, normalRules())

	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
	assert.Empty(t, result.Issues)
}

func TestValidateSpeculativeGatedByRiskMode(t *testing.T) {
	v := NewValidator(logger.NewNop())

	decisions := entity.DecisionSet{
		NewBuys: []entity.BuyDecision{{Ticker: "MEME", InvestmentAmount: 400, RiskLevel: "speculative"}},
	}

	result := v.Validate(decisions, nil, entity.Cash{AllocationPct: 100}, 10000, entity.RulesForMode(entity.RiskModeDefensive))
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)

	result = v.Validate(decisions, nil, entity.Cash{AllocationPct: 100}, 10000, normalRules())
	assert.Empty(t, result.Warnings)
}

func TestValidateMinCashFloorIsWarning(t *testing.T) {
	v := NewValidator(logger.NewNop())

	decisions := entity.DecisionSet{
		NewBuys: []entity.BuyDecision{{Ticker: "MSFT", InvestmentAmount: 300}},
	}

	// defensive mode wants 25% cash; projected 2% is allowed but flagged
	result := v.Validate(decisions, nil, entity.Cash{AllocationPct: 5}, 10000, entity.RulesForMode(entity.RiskModeDefensive))
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateSectorConcentrationWarning(t *testing.T) {
	v := NewValidator(logger.NewNop())

	holdings := []entity.Holding{
		{Ticker: "NVDA", Sector: "Technology", AllocationPct: 14},
		{Ticker: "MSFT", Sector: "Technology", AllocationPct: 14},
		{Ticker: "AAPL", Sector: "Technology", AllocationPct: 14},
	}
	decisions := entity.DecisionSet{}

	result := v.Validate(decisions, holdings, entity.Cash{AllocationPct: 58}, 10000, normalRules())
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
}
