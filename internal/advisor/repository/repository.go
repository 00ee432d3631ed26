package repository

import (
	"context"

	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/entity"
)

// PortfolioRepository persists the portfolio document and run audit log.
type PortfolioRepository interface {
	Load(ctx context.Context, name string) (*entity.PortfolioDocument, error)
	Save(ctx context.Context, name string, doc *entity.PortfolioDocument) error
	RecordRun(ctx context.Context, run *entity.AdvisorRun) error
	GetRuns(ctx context.Context, limit int) ([]entity.AdvisorRun, error)
}

// PriceRepository resolves current prices and benchmark period returns.
// GetPrices may return partial results; a missing ticker means the price
// could not be resolved.
type PriceRepository interface {
	GetPrices(ctx context.Context, param dto.GetPricesParam) (map[string]float64, error)
	GetPeriodReturn(ctx context.Context, param dto.GetPeriodReturnParam) (float64, error)
}

// AIRepository produces the period recommendation from the portfolio
// snapshot and market context.
type AIRepository interface {
	Recommend(ctx context.Context, doc *entity.PortfolioDocument, risk entity.RiskState, market dto.MarketContext) (*dto.RecommendationResult, error)
}

// NewsRepository gathers headline context per ticker.
type NewsRepository interface {
	GetTickerNews(ctx context.Context, tickers []string) ([]dto.TickerNews, error)
}
