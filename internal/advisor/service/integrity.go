package service

import (
	"context"

	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/advisor/repository"
	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/utils"
)

// IntegrityChecker repairs a loaded document before any aggregate is
// trusted: duplicate period records are removed, null sell prices are
// backfilled, and the summary is recomputed whenever anything changed.
type IntegrityChecker interface {
	Repair(ctx context.Context, doc *entity.PortfolioDocument) (bool, error)
}

type integrityChecker struct {
	logger     *logger.Logger
	priceRepo  repository.PriceRepository
	aggregator Aggregator
}

// NewIntegrityChecker creates a new IntegrityChecker. The price repository
// may be nil; backfill is then skipped.
func NewIntegrityChecker(log *logger.Logger, priceRepo repository.PriceRepository, aggregator Aggregator) IntegrityChecker {
	return &integrityChecker{
		logger:     log,
		priceRepo:  priceRepo,
		aggregator: aggregator,
	}
}

func (c *integrityChecker) Repair(ctx context.Context, doc *entity.PortfolioDocument) (bool, error) {
	repaired := false

	if c.dedupePeriods(doc) {
		repaired = true
	}
	if c.backfillSellPrices(ctx, doc) {
		repaired = true
	}

	if repaired {
		doc.PerformanceSummary = c.aggregator.RecomputeSummary(
			doc.Metadata.StartingCapital, doc.MonthlyHistory, doc.ClosedPositions)
		c.logger.Info("Performance summary recomputed after repair")
	}

	return repaired, nil
}

// dedupePeriods keeps the first record per period id and logs every
// removal.
func (c *integrityChecker) dedupePeriods(doc *entity.PortfolioDocument) bool {
	seen := make(map[string]bool, len(doc.MonthlyHistory))
	kept := doc.MonthlyHistory[:0]
	removed := 0

	for _, rec := range doc.MonthlyHistory {
		if seen[rec.Period] {
			c.logger.Warn("Removed duplicate period record",
				logger.StringField("period", rec.Period),
				logger.Float64Field("return_pct", rec.PortfolioReturnPct),
			)
			removed++
			continue
		}
		seen[rec.Period] = true
		kept = append(kept, rec)
	}

	doc.MonthlyHistory = kept
	return removed > 0
}

// backfillSellPrices resolves closed positions whose exit price was lost
// to a prior partial failure. Lookup failures leave the record untouched.
func (c *integrityChecker) backfillSellPrices(ctx context.Context, doc *entity.PortfolioDocument) bool {
	var missing []string
	for _, cp := range doc.ClosedPositions {
		if cp.SellPrice == nil {
			missing = append(missing, cp.Ticker)
		}
	}
	if len(missing) == 0 || c.priceRepo == nil {
		return false
	}

	prices, err := c.priceRepo.GetPrices(ctx, dto.GetPricesParam{Tickers: missing})
	if err != nil {
		c.logger.Error("Failed to fetch prices for sell-price backfill", logger.ErrorField(err))
		return false
	}

	changed := false
	for i, cp := range doc.ClosedPositions {
		if cp.SellPrice != nil {
			continue
		}
		price, ok := prices[cp.Ticker]
		if !ok || price <= 0 {
			c.logger.Warn("No price available to backfill closed position",
				logger.StringField("ticker", cp.Ticker))
			continue
		}

		doc.ClosedPositions[i].SellPrice = utils.ToPointer(price)
		if cp.BuyPrice > 0 {
			doc.ClosedPositions[i].ReturnPct = utils.RoundFloat((price/cp.BuyPrice-1)*100, 2)
		}
		c.logger.Info("Backfilled null sell price",
			logger.StringField("ticker", cp.Ticker),
			logger.Float64Field("sell_price", price),
		)
		changed = true
	}

	return changed
}
