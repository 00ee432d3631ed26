package service

import (
	"fmt"
	"math"
	"time"

	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/utils"
)

// Ledger is the portfolio state machine. Apply commits one period's
// decisions to produce the next snapshot. It is the only component that
// mutates holdings and cash.
type Ledger interface {
	Apply(holdings []entity.Holding, cash entity.Cash, portfolioValue float64, decisions entity.DecisionSet, prices map[string]float64, now time.Time) ([]entity.Holding, entity.Cash, []entity.ClosedPosition, error)
}

type ledger struct {
	logger *logger.Logger
}

// NewLedger creates a new Ledger.
func NewLedger(log *logger.Logger) Ledger {
	return &ledger{logger: log}
}

// Apply processes decisions in a fixed order: sells, trims, adds, implicit
// holds, then new buys. Cash is always derived from the remaining holdings,
// never set directly.
func (l *ledger) Apply(holdings []entity.Holding, cash entity.Cash, portfolioValue float64, decisions entity.DecisionSet, prices map[string]float64, now time.Time) ([]entity.Holding, entity.Cash, []entity.ClosedPosition, error) {
	if portfolioValue <= 0 {
		return nil, cash, nil, fmt.Errorf("portfolio value must be positive, got %.2f", portfolioValue)
	}

	working := make([]entity.Holding, len(holdings))
	copy(working, holdings)

	var closed []entity.ClosedPosition
	touched := make(map[string]bool)

	// 1. sells
	for _, sell := range decisions.Sells {
		idx := findHolding(working, sell.Ticker)
		if idx < 0 {
			l.logger.Warn("Sell for unheld ticker skipped", logger.StringField("ticker", sell.Ticker))
			continue
		}
		h := working[idx]
		sellPrice := resolveSellPrice(prices, sell, h)
		closed = append(closed, l.closePosition(h, sellPrice, entity.ActionTypeFullSell, sell.Reason, now))
		working = append(working[:idx], working[idx+1:]...)
		touched[sell.Ticker] = true
	}

	// 2. trims: the trimmed slice is closed before the holding is updated so
	// its P&L reflects the pre-trim cost basis
	for _, trim := range decisions.Trims {
		idx := findHolding(working, trim.Ticker)
		if idx < 0 {
			l.logger.Warn("Trim for unheld ticker skipped", logger.StringField("ticker", trim.Ticker))
			continue
		}
		h := working[idx]
		if trim.NewAllocationPct >= h.AllocationPct {
			l.logger.Warn("Trim does not reduce allocation, skipped",
				logger.StringField("ticker", trim.Ticker),
				logger.Float64Field("current_pct", h.AllocationPct),
				logger.Float64Field("new_pct", trim.NewAllocationPct),
			)
			continue
		}

		trimPrice := resolveMarketPrice(prices, h)
		closed = append(closed, l.closePosition(h, trimPrice, entity.ActionTypeTrim, trim.Reason, now))

		if trim.NewAllocationPct <= 0 {
			// a trim to zero is a full exit
			working = append(working[:idx], working[idx+1:]...)
			touched[trim.Ticker] = true
			continue
		}

		h.AllocationPct = trim.NewAllocationPct
		h.InvestmentAmount = utils.RoundFloat(trim.NewAllocationPct/100*portfolioValue, 2)
		if trimPrice > 0 {
			h.Shares = utils.RoundFloat(h.InvestmentAmount/trimPrice, 4)
		}
		h.Status = entity.HoldingStatusTrim
		h.LastReviewed = now
		working[idx] = h
		touched[trim.Ticker] = true
	}

	// 3. adds: cost basis becomes the share-weighted average of the old
	// stake and the top-up
	for _, add := range decisions.Adds {
		idx := findHolding(working, add.Ticker)
		if idx < 0 {
			l.logger.Warn("Add for unheld ticker skipped", logger.StringField("ticker", add.Ticker))
			continue
		}
		h := working[idx]

		amount := add.AmountUSD
		if amount <= 0 && add.AddedPct > 0 {
			amount = add.AddedPct / 100 * portfolioValue
		}
		if amount <= 0 {
			l.logger.Warn("Add with no amount skipped", logger.StringField("ticker", add.Ticker))
			continue
		}

		addPrice := resolveMarketPrice(prices, h)
		if addPrice <= 0 || h.RecommendedPrice <= 0 {
			l.logger.Warn("Add without usable prices skipped", logger.StringField("ticker", add.Ticker))
			continue
		}

		oldShares := h.InvestmentAmount / h.RecommendedPrice
		newShares := amount / addPrice
		totalShares := oldShares + newShares
		if totalShares <= 0 {
			continue
		}

		h.RecommendedPrice = utils.RoundFloat((h.InvestmentAmount+amount)/totalShares, 4)
		h.InvestmentAmount = utils.RoundFloat(h.InvestmentAmount+amount, 2)
		h.Shares = utils.RoundFloat(totalShares, 4)
		h.AllocationPct = utils.RoundFloat(h.AllocationPct+amount/portfolioValue*100, 4)
		h.Status = entity.HoldingStatusAdd
		h.LastReviewed = now
		h.AddHistory = append(h.AddHistory, entity.AddEvent{
			Date:      now,
			AmountUSD: utils.RoundFloat(amount, 2),
			AddedPct:  utils.RoundFloat(amount/portfolioValue*100, 4),
			Price:     addPrice,
		})
		working[idx] = h
		touched[add.Ticker] = true
	}

	// 4. implicit holds: anything not reviewed stays, never silently dropped
	for i := range working {
		if touched[working[i].Ticker] {
			continue
		}
		working[i].Status = entity.HoldingStatusHold
		working[i].LastReviewed = now
	}

	// 5. new buys
	for _, buy := range decisions.NewBuys {
		if findHolding(working, buy.Ticker) >= 0 {
			l.logger.Warn("Buy for already-held ticker skipped", logger.StringField("ticker", buy.Ticker))
			continue
		}

		entryPrice := resolveEntryPrice(prices, buy)
		if entryPrice <= 0 {
			l.logger.Warn("Buy without resolvable entry price skipped", logger.StringField("ticker", buy.Ticker))
			continue
		}

		amount := buy.InvestmentAmount
		allocationPct := buy.AllocationPct
		if amount > 0 {
			allocationPct = amount / portfolioValue * 100
		} else if allocationPct > 0 {
			amount = allocationPct / 100 * portfolioValue
		} else {
			l.logger.Warn("Buy without amount or allocation skipped", logger.StringField("ticker", buy.Ticker))
			continue
		}

		currentPrice := entryPrice
		if p, ok := prices[buy.Ticker]; ok && p > 0 {
			currentPrice = p
		}

		working = append(working, entity.Holding{
			Ticker:           buy.Ticker,
			CompanyName:      buy.CompanyName,
			Sector:           buy.Sector,
			RecommendedDate:  now,
			RecommendedPrice: entryPrice,
			CurrentPrice:     currentPrice,
			GainLossPct:      utils.RoundFloat((currentPrice/entryPrice-1)*100, 2),
			AllocationPct:    utils.RoundFloat(allocationPct, 4),
			InvestmentAmount: utils.RoundFloat(amount, 2),
			Shares:           math.Floor(amount / entryPrice),
			StopLoss:         buy.StopLoss,
			PriceTarget:      buy.PriceTarget,
			Thesis:           buy.Thesis,
			RiskLevel:        buy.RiskLevel,
			Status:           entity.HoldingStatusBuy,
			LastReviewed:     now,
		})
	}

	// cash is derived, clamped to zero
	totalAllocated := 0.0
	for _, h := range working {
		totalAllocated += h.AllocationPct
	}
	newCash := cash
	newCash.AllocationPct = utils.RoundFloat(100-totalAllocated, 4)
	if newCash.AllocationPct < 0 {
		newCash.AllocationPct = 0
	}

	return working, newCash, closed, nil
}

func (l *ledger) closePosition(h entity.Holding, sellPrice float64, action entity.ActionType, reason string, now time.Time) entity.ClosedPosition {
	returnPct := 0.0
	if h.RecommendedPrice > 0 && sellPrice > 0 {
		returnPct = utils.RoundFloat((sellPrice/h.RecommendedPrice-1)*100, 2)
	}
	return entity.ClosedPosition{
		Ticker:         h.Ticker,
		BuyPrice:       h.RecommendedPrice,
		SellPrice:      utils.ToPointer(sellPrice),
		ReturnPct:      returnPct,
		HoldPeriodDays: utils.DaysBetween(h.RecommendedDate, now),
		ActionType:     action,
		Reason:         reason,
	}
}

func findHolding(holdings []entity.Holding, ticker string) int {
	for i, h := range holdings {
		if h.Ticker == ticker {
			return i
		}
	}
	return -1
}

// resolveSellPrice tries, in order: live market price, the decision's
// stated sell price, the cost basis.
func resolveSellPrice(prices map[string]float64, sell entity.SellDecision, h entity.Holding) float64 {
	if p, ok := prices[h.Ticker]; ok && p > 0 {
		return p
	}
	if sell.SellPrice != nil && *sell.SellPrice > 0 {
		return *sell.SellPrice
	}
	return h.RecommendedPrice
}

// resolveMarketPrice tries the live price, then the holding's last known
// price, then the cost basis.
func resolveMarketPrice(prices map[string]float64, h entity.Holding) float64 {
	if p, ok := prices[h.Ticker]; ok && p > 0 {
		return p
	}
	if h.CurrentPrice > 0 {
		return h.CurrentPrice
	}
	return h.RecommendedPrice
}

// resolveEntryPrice tries, in order: the recommended price, the observed
// market price, the midpoint of the entry zone. The zone's low end is never
// used alone since that would overstate the position's potential gain.
func resolveEntryPrice(prices map[string]float64, buy entity.BuyDecision) float64 {
	if buy.RecommendedPrice > 0 {
		return buy.RecommendedPrice
	}
	if p, ok := prices[buy.Ticker]; ok && p > 0 {
		return p
	}
	if buy.EntryZoneLow > 0 && buy.EntryZoneHigh > 0 {
		return (buy.EntryZoneLow + buy.EntryZoneHigh) / 2
	}
	return 0
}
