package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/entity"
)

// BuildRecommendationPrompt renders the portfolio snapshot, performance
// summary, risk posture and market context into the decision prompt.
func BuildRecommendationPrompt(doc *entity.PortfolioDocument, risk entity.RiskState, market dto.MarketContext) (string, error) {
	snapshot := map[string]interface{}{
		"total_value":         doc.TotalValue(),
		"cash":                doc.Cash,
		"holdings":            doc.CurrentPortfolio,
		"performance_summary": doc.PerformanceSummary,
	}
	snapshotJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal portfolio snapshot: %w", err)
	}

	marketJSON, err := json.MarshalIndent(market, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal market context: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are a disciplined portfolio advisor reviewing a US equity portfolio for its biweekly rebalance.\n\n")

	sb.WriteString("CURRENT PORTFOLIO:\n")
	sb.Write(snapshotJSON)
	sb.WriteString("\n\n")

	sb.WriteString("MARKET CONTEXT:\n")
	sb.Write(marketJSON)
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf(`RISK POSTURE: %s
- max single position: %.1f%% of portfolio
- minimum cash: %.1f%%
- max new positions this period: %d
- speculative positions allowed: %t
`,
		risk.ModeName,
		risk.Rules.MaxPositionPct,
		risk.Rules.MinCashPct,
		risk.Rules.MaxNewPositions,
		risk.Rules.AllowSpeculative,
	))
	if len(risk.Reasons) > 0 {
		sb.WriteString("- active risk signals: " + strings.Join(risk.Reasons, "; ") + "\n")
	}

	sb.WriteString(`
TASK:
Review every holding and decide this period's actions. You may fully sell,
trim to a lower allocation, add to a position, hold, or open new positions.
Respect the risk posture limits above. Prefer fewer, higher-conviction moves.

Respond with ONLY a JSON object in exactly this shape (no markdown fences,
no commentary outside the JSON):
{
  "market_outlook": "one short paragraph",
  "reasoning": "one short paragraph explaining the overall plan",
  "sells": [{"ticker": "XXXX", "reason": "..."}],
  "trims": [{"ticker": "XXXX", "new_allocation_pct": 5.0, "reason": "..."}],
  "adds": [{"ticker": "XXXX", "amount_usd": 1000, "reason": "..."}],
  "holds": [{"ticker": "XXXX", "reason": "..."}],
  "new_buys": [{
    "ticker": "XXXX",
    "company_name": "...",
    "sector": "...",
    "investment_amount": 1000,
    "recommended_price": 0,
    "entry_zone_low": 0,
    "entry_zone_high": 0,
    "stop_loss": 0,
    "price_target": 0,
    "thesis": "...",
    "risk_level": "conservative|moderate|aggressive|speculative"
  }]
}
Use empty arrays for action kinds with nothing to do. Every existing holding
you do not sell or trim should appear in "holds" or "adds".
`)

	return sb.String(), nil
}
