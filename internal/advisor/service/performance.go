package service

import (
	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/utils"
)

// PerformanceEngine refreshes per-holding unrealized gain and detects
// stop-loss and target triggers.
type PerformanceEngine interface {
	Evaluate(holdings []entity.Holding, prices map[string]float64) ([]entity.Holding, []entity.Alert)
}

type performanceEngine struct {
	logger *logger.Logger
}

// NewPerformanceEngine creates a new PerformanceEngine.
func NewPerformanceEngine(log *logger.Logger) PerformanceEngine {
	return &performanceEngine{logger: log}
}

// Evaluate returns updated copies of the holdings plus any triggered alerts.
// A holding without a usable price is marked stale: gain reports 0 and
// trigger checks are skipped, so stale data can never fire a false alert.
func (e *performanceEngine) Evaluate(holdings []entity.Holding, prices map[string]float64) ([]entity.Holding, []entity.Alert) {
	updated := make([]entity.Holding, len(holdings))
	var alerts []entity.Alert
	staleCount := 0

	for i, h := range holdings {
		price, ok := prices[h.Ticker]
		if !ok || price <= 0 {
			h.PriceStale = true
			h.CurrentPrice = h.RecommendedPrice
			h.GainLossPct = 0
			staleCount++
			updated[i] = h
			continue
		}

		h.PriceStale = false
		h.CurrentPrice = price
		if h.RecommendedPrice > 0 {
			h.GainLossPct = utils.RoundFloat((price/h.RecommendedPrice-1)*100, 2)
		} else {
			h.GainLossPct = 0
		}

		// stop loss takes priority over target when both are crossed
		switch {
		case h.StopLoss > 0 && price <= h.StopLoss:
			h.Status = entity.HoldingStatusStopLossHit
			alerts = append(alerts, entity.Alert{
				Ticker:        h.Ticker,
				Type:          entity.AlertTypeStopLoss,
				TriggerPrice:  h.StopLoss,
				CurrentPrice:  price,
				GainLossPct:   h.GainLossPct,
				AllocationPct: h.AllocationPct,
			})
		case h.PriceTarget > 0 && price >= h.PriceTarget:
			h.Status = entity.HoldingStatusTargetReached
			alerts = append(alerts, entity.Alert{
				Ticker:        h.Ticker,
				Type:          entity.AlertTypeTarget,
				TriggerPrice:  h.PriceTarget,
				CurrentPrice:  price,
				GainLossPct:   h.GainLossPct,
				AllocationPct: h.AllocationPct,
			})
		}

		updated[i] = h
	}

	if staleCount > 0 {
		e.logger.Warn("Holdings with stale prices",
			logger.IntField("stale", staleCount),
			logger.IntField("total", len(holdings)),
		)
	}

	return updated, alerts
}
