package telegram

import (
	"fmt"
	"strings"
	"time"

	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/utils"
)

// FormatTriggerAlert formats a stop-loss or target alert into a Markdown
// string for Telegram.
func FormatTriggerAlert(alert entity.Alert) string {
	var title, emoji string
	switch alert.Type {
	case entity.AlertTypeTarget:
		title = "Price Target Reached!"
		emoji = "🎯"
	case entity.AlertTypeStopLoss:
		title = "Stop Loss Triggered!"
		emoji = "⚠️"
	default:
		title = "Price Alert"
		emoji = "🔔"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s [%s] %s\n", emoji, alert.Ticker, title))
	builder.WriteString(fmt.Sprintf("💰 Price hit: $%.2f (trigger: $%.2f)\n", alert.CurrentPrice, alert.TriggerPrice))
	builder.WriteString(fmt.Sprintf("📊 Position: %.1f%% of portfolio, %+.2f%% since entry\n", alert.AllocationPct, alert.GainLossPct))
	builder.WriteString(fmt.Sprintf("%s\n", utils.PrettyDate(utils.TimeNowET())))
	return builder.String()
}

// FormatRunReport formats a pipeline run result into the period report.
func FormatRunReport(result *dto.RunResult) string {
	var builder strings.Builder

	statusIcon := "✅"
	if result.Status != "COMPLETED" {
		statusIcon = "🛑"
	}

	builder.WriteString(fmt.Sprintf("%s *Portfolio Review %s* %s\n\n", statusIcon, result.Period, statusIcon))

	if result.Reason != "" {
		builder.WriteString(fmt.Sprintf("⚠️ *Reason:* %s\n\n", result.Reason))
	}

	if result.Record != nil {
		builder.WriteString("📈 *Period:*\n")
		builder.WriteString(fmt.Sprintf("• Return: %+.2f%% (benchmark %+.2f%%, alpha %+.2f%%)\n",
			result.Record.PortfolioReturnPct, result.Record.BenchmarkReturnPct, result.Record.AlphaPct))
		builder.WriteString(fmt.Sprintf("• Value: $%.2f → $%.2f\n\n", result.Record.StartingValue, result.Record.EndingValue))
	}

	if actions := formatActionSummary(result.Decisions); actions != "" {
		builder.WriteString("🧾 *Actions:*\n")
		builder.WriteString(actions)
		builder.WriteString("\n")
	}

	if len(result.Alerts) > 0 {
		builder.WriteString("🔔 *Triggers:*\n")
		for _, alert := range result.Alerts {
			builder.WriteString(fmt.Sprintf("• %s %s at $%.2f\n", alert.Ticker, alert.Type, alert.CurrentPrice))
		}
		builder.WriteString("\n")
	}

	builder.WriteString("📊 *Cumulative:*\n")
	builder.WriteString(fmt.Sprintf("• Total return: %+.2f%% (alpha %+.2f%%)\n", result.Summary.TotalReturnPct, result.Summary.AlphaPct))
	builder.WriteString(fmt.Sprintf("• Drawdown: %.2f%% | Win rate: %.0f%% (%dW/%dL)\n",
		result.Summary.DrawdownPct, result.Summary.WinRatePct, result.Summary.Wins, result.Summary.Losses))
	builder.WriteString(fmt.Sprintf("• Risk mode: %s\n", result.RiskState.ModeName))

	if result.Validation != nil && len(result.Validation.Corrections) > 0 {
		builder.WriteString("\n🔧 *Corrections applied:*\n")
		for _, c := range result.Validation.Corrections {
			builder.WriteString(fmt.Sprintf("• %s %s\n", c.Ticker, c.Message))
		}
	}

	builder.WriteString(fmt.Sprintf("\n⏱ _%s, took %s_\n",
		utils.PrettyDate(result.StartedAt), result.Duration.Round(time.Millisecond)))

	return builder.String()
}

func formatActionSummary(decisions entity.DecisionSet) string {
	var builder strings.Builder
	for _, sell := range decisions.Sells {
		builder.WriteString(fmt.Sprintf("🔴 SELL %s", sell.Ticker))
		if sell.Reason != "" {
			builder.WriteString(" - " + sell.Reason)
		}
		builder.WriteString("\n")
	}
	for _, trim := range decisions.Trims {
		builder.WriteString(fmt.Sprintf("🟠 TRIM %s to %.1f%%\n", trim.Ticker, trim.NewAllocationPct))
	}
	for _, add := range decisions.Adds {
		if add.AmountUSD > 0 {
			builder.WriteString(fmt.Sprintf("🟢 ADD %s $%.0f\n", add.Ticker, add.AmountUSD))
		} else {
			builder.WriteString(fmt.Sprintf("🟢 ADD %s %.1f%%\n", add.Ticker, add.AddedPct))
		}
	}
	for _, buy := range decisions.NewBuys {
		if buy.InvestmentAmount > 0 {
			builder.WriteString(fmt.Sprintf("🟢 BUY %s $%.0f\n", buy.Ticker, buy.InvestmentAmount))
		} else {
			builder.WriteString(fmt.Sprintf("🟢 BUY %s %.1f%%\n", buy.Ticker, buy.AllocationPct))
		}
	}
	return builder.String()
}

// FormatErrorAlertMessage formats an operational error for the alert chat.
func FormatErrorAlertMessage(t time.Time, errType string, errMsg string, data string) string {
	return fmt.Sprintf(`📛 [ERROR ALERT]
%s
🔧 %s
⚠️ %s

📄 Data: %s
`, utils.PrettyDate(t), errType, errMsg, data)
}
