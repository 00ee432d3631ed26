package service

import (
	"fmt"

	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/utils"
)

// Validator checks a proposed decision set against the active risk rules
// before the ledger commits it. Oversized positions are clamped and
// recorded as corrections; cash overdraw and selling unheld tickers are
// hard issues the caller must resolve.
type Validator interface {
	Validate(decisions entity.DecisionSet, holdings []entity.Holding, cash entity.Cash, portfolioValue float64, rules entity.RiskRules) dto.ValidationResult
}

type validator struct {
	logger *logger.Logger
}

// NewValidator creates a new Validator.
func NewValidator(log *logger.Logger) Validator {
	return &validator{logger: log}
}

func (v *validator) Validate(decisions entity.DecisionSet, holdings []entity.Holding, cash entity.Cash, portfolioValue float64, rules entity.RiskRules) dto.ValidationResult {
	result := dto.ValidationResult{CorrectedDecisions: cloneDecisions(decisions)}
	corrected := &result.CorrectedDecisions

	held := make(map[string]entity.Holding, len(holdings))
	for _, h := range holdings {
		held[h.Ticker] = h
	}

	// sells and trims of unheld tickers are hard issues
	for _, sell := range decisions.Sells {
		if _, ok := held[sell.Ticker]; !ok {
			result.Issues = append(result.Issues, dto.ValidationIssue{
				Ticker:  sell.Ticker,
				Message: "cannot sell a position that is not held",
			})
		}
	}
	for _, trim := range decisions.Trims {
		if _, ok := held[trim.Ticker]; !ok {
			result.Issues = append(result.Issues, dto.ValidationIssue{
				Ticker:  trim.Ticker,
				Message: "cannot trim a position that is not held",
			})
		}
	}
	for _, add := range decisions.Adds {
		if _, ok := held[add.Ticker]; !ok {
			result.Issues = append(result.Issues, dto.ValidationIssue{
				Ticker:  add.Ticker,
				Message: "cannot add to a position that is not held",
			})
		}
	}

	// clamp oversized new positions instead of dropping them
	for i, buy := range corrected.NewBuys {
		pct := buy.AllocationPct
		if buy.InvestmentAmount > 0 {
			pct = buy.InvestmentAmount / portfolioValue * 100
		}
		if pct > rules.MaxPositionPct {
			result.Corrections = append(result.Corrections, dto.ValidationIssue{
				Ticker:  buy.Ticker,
				Message: fmt.Sprintf("position size %.2f%% clamped to %.2f%% cap", pct, rules.MaxPositionPct),
			})
			corrected.NewBuys[i].AllocationPct = rules.MaxPositionPct
			corrected.NewBuys[i].InvestmentAmount = utils.RoundFloat(rules.MaxPositionPct/100*portfolioValue, 2)
		}

		if _, ok := held[buy.Ticker]; ok {
			result.Warnings = append(result.Warnings, dto.ValidationIssue{
				Ticker:  buy.Ticker,
				Message: "buy proposed for a ticker already held; expected an add",
			})
		}

		if buy.RiskLevel == "speculative" && !rules.AllowSpeculative {
			result.Warnings = append(result.Warnings, dto.ValidationIssue{
				Ticker:  buy.Ticker,
				Message: "speculative position proposed while risk mode forbids them",
			})
		}
		if buy.RiskLevel == "aggressive" && !rules.AllowAggressiveEntry {
			result.Warnings = append(result.Warnings, dto.ValidationIssue{
				Ticker:  buy.Ticker,
				Message: "aggressive entry proposed while risk mode forbids them",
			})
		}
	}

	// clamp adds that would push a holding over the cap
	for i, add := range corrected.Adds {
		h, ok := held[add.Ticker]
		if !ok {
			continue
		}
		addPct := add.AddedPct
		if add.AmountUSD > 0 {
			addPct = add.AmountUSD / portfolioValue * 100
		}
		if h.AllocationPct+addPct > rules.MaxPositionPct {
			allowedPct := rules.MaxPositionPct - h.AllocationPct
			if allowedPct < 0 {
				allowedPct = 0
			}
			result.Corrections = append(result.Corrections, dto.ValidationIssue{
				Ticker:  add.Ticker,
				Message: fmt.Sprintf("add of %.2f%% clamped to %.2f%% to respect %.2f%% cap", addPct, allowedPct, rules.MaxPositionPct),
			})
			corrected.Adds[i].AddedPct = utils.RoundFloat(allowedPct, 4)
			corrected.Adds[i].AmountUSD = utils.RoundFloat(allowedPct/100*portfolioValue, 2)
		}
	}

	if len(corrected.NewBuys) > rules.MaxNewPositions {
		result.Warnings = append(result.Warnings, dto.ValidationIssue{
			Message: fmt.Sprintf("%d new positions proposed, risk mode allows %d", len(corrected.NewBuys), rules.MaxNewPositions),
		})
	}

	// projected cash must not go negative
	projected := v.projectCash(*corrected, held, cash, portfolioValue)
	if projected < 0 {
		result.Issues = append(result.Issues, dto.ValidationIssue{
			Message: fmt.Sprintf("projected cash %.2f%% is negative", projected),
		})
	} else if projected < rules.MinCashPct {
		result.Warnings = append(result.Warnings, dto.ValidationIssue{
			Message: fmt.Sprintf("projected cash %.2f%% below %.2f%% floor for current risk mode", projected, rules.MinCashPct),
		})
	}

	v.diversificationWarnings(&result, *corrected, holdings, portfolioValue)

	result.Valid = len(result.Issues) == 0

	for _, w := range result.Warnings {
		v.logger.Warn("Validation warning", logger.StringField("ticker", w.Ticker), logger.StringField("message", w.Message))
	}

	return result
}

// cloneDecisions copies the slices so corrections never mutate the
// caller's proposal.
func cloneDecisions(d entity.DecisionSet) entity.DecisionSet {
	out := entity.DecisionSet{
		Sells:   make([]entity.SellDecision, len(d.Sells)),
		Trims:   make([]entity.TrimDecision, len(d.Trims)),
		Adds:    make([]entity.AddDecision, len(d.Adds)),
		Holds:   make([]entity.HoldDecision, len(d.Holds)),
		NewBuys: make([]entity.BuyDecision, len(d.NewBuys)),
	}
	copy(out.Sells, d.Sells)
	copy(out.Trims, d.Trims)
	copy(out.Adds, d.Adds)
	copy(out.Holds, d.Holds)
	copy(out.NewBuys, d.NewBuys)
	return out
}

// projectCash applies freed allocation from sells/trims and spent
// allocation from adds/buys to the current cash sleeve.
func (v *validator) projectCash(decisions entity.DecisionSet, held map[string]entity.Holding, cash entity.Cash, portfolioValue float64) float64 {
	projected := cash.AllocationPct

	for _, sell := range decisions.Sells {
		if h, ok := held[sell.Ticker]; ok {
			projected += h.AllocationPct
		}
	}
	for _, trim := range decisions.Trims {
		if h, ok := held[trim.Ticker]; ok && trim.NewAllocationPct < h.AllocationPct {
			projected += h.AllocationPct - trim.NewAllocationPct
		}
	}
	for _, add := range decisions.Adds {
		if add.AmountUSD > 0 {
			projected -= add.AmountUSD / portfolioValue * 100
		} else {
			projected -= add.AddedPct
		}
	}
	for _, buy := range decisions.NewBuys {
		if buy.InvestmentAmount > 0 {
			projected -= buy.InvestmentAmount / portfolioValue * 100
		} else {
			projected -= buy.AllocationPct
		}
	}

	return utils.RoundFloat(projected, 4)
}

func (v *validator) diversificationWarnings(result *dto.ValidationResult, decisions entity.DecisionSet, holdings []entity.Holding, portfolioValue float64) {
	const sectorCapPct = 40.0
	const maxPositions = 15

	sold := make(map[string]bool)
	for _, s := range decisions.Sells {
		sold[s.Ticker] = true
	}

	sectorPct := make(map[string]float64)
	positions := 0
	for _, h := range holdings {
		if sold[h.Ticker] {
			continue
		}
		positions++
		if h.Sector != "" {
			sectorPct[h.Sector] += h.AllocationPct
		}
	}
	for _, buy := range decisions.NewBuys {
		positions++
		pct := buy.AllocationPct
		if buy.InvestmentAmount > 0 {
			pct = buy.InvestmentAmount / portfolioValue * 100
		}
		if buy.Sector != "" {
			sectorPct[buy.Sector] += pct
		}
	}

	for sector, pct := range sectorPct {
		if pct > sectorCapPct {
			result.Warnings = append(result.Warnings, dto.ValidationIssue{
				Message: fmt.Sprintf("sector %s projected at %.1f%% of portfolio, above %.0f%% concentration guideline", sector, pct, sectorCapPct),
			})
		}
	}
	if positions > maxPositions {
		result.Warnings = append(result.Warnings, dto.ValidationIssue{
			Message: fmt.Sprintf("%d positions projected, above %d position guideline", positions, maxPositions),
		})
	}
}
