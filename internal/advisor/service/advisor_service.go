package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-insight-agent/internal/advisor/config"
	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/advisor/repository"
	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/common"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/telegram"
	"stock-insight-agent/pkg/utils"
)

// AdvisorService orchestrates one full pipeline run and exposes read
// access to the persisted state.
type AdvisorService interface {
	RunPeriod(ctx context.Context, opts dto.RunOptions) (*dto.RunResult, error)
	GetPortfolio(ctx context.Context) (*entity.PortfolioDocument, error)
	GetRiskState(ctx context.Context) (*entity.RiskState, error)
	GetRuns(ctx context.Context, limit int) ([]entity.AdvisorRun, error)
}

type advisorService struct {
	cfg           *config.Config
	logger        *logger.Logger
	portfolioRepo repository.PortfolioRepository
	priceRepo     repository.PriceRepository
	aiRepo        repository.AIRepository
	newsRepo      repository.NewsRepository
	engine        PerformanceEngine
	ledger        Ledger
	aggregator    Aggregator
	validator     Validator
	integrity     IntegrityChecker
	notifier      telegram.Notifier
}

// NewAdvisorService creates the pipeline orchestrator. newsRepo and
// notifier may be nil when those features are disabled.
func NewAdvisorService(
	cfg *config.Config,
	log *logger.Logger,
	portfolioRepo repository.PortfolioRepository,
	priceRepo repository.PriceRepository,
	aiRepo repository.AIRepository,
	newsRepo repository.NewsRepository,
	engine PerformanceEngine,
	ledger Ledger,
	aggregator Aggregator,
	validator Validator,
	integrity IntegrityChecker,
	notifier telegram.Notifier,
) AdvisorService {
	return &advisorService{
		cfg:           cfg,
		logger:        log,
		portfolioRepo: portfolioRepo,
		priceRepo:     priceRepo,
		aiRepo:        aiRepo,
		newsRepo:      newsRepo,
		engine:        engine,
		ledger:        ledger,
		aggregator:    aggregator,
		validator:     validator,
		integrity:     integrity,
		notifier:      notifier,
	}
}

// RunPeriod executes one advisory cycle. A recommendation failure or a
// hard validation issue aborts the run with the prior snapshot untouched.
func (s *advisorService) RunPeriod(ctx context.Context, opts dto.RunOptions) (*dto.RunResult, error) {
	started := utils.TimeNowET()
	period := utils.PeriodKey(started)

	result := &dto.RunResult{
		Period:    period,
		Trigger:   opts.Trigger,
		DryRun:    opts.DryRun,
		StartedAt: started,
	}

	s.logger.Info("Starting advisory run",
		logger.StringField("period", period),
		logger.StringField("trigger", opts.Trigger),
		logger.Field("dry_run", opts.DryRun),
	)

	doc, err := s.loadOrInitDocument(ctx)
	if err != nil {
		return s.finishRun(ctx, result, doc, common.RunStatusFailed, fmt.Sprintf("failed to load portfolio: %v", err))
	}

	for _, rec := range doc.MonthlyHistory {
		if rec.Period == period && !opts.DryRun {
			return s.finishRun(ctx, result, doc, common.RunStatusAborted, "period already closed")
		}
	}

	repaired, err := s.integrity.Repair(ctx, doc)
	if err != nil {
		return s.finishRun(ctx, result, doc, common.RunStatusFailed, fmt.Sprintf("integrity repair failed: %v", err))
	}
	if repaired && !opts.DryRun {
		// repairs are committed even if the rest of the run aborts later
		if err := s.portfolioRepo.Save(ctx, s.cfg.Portfolio.Name, doc); err != nil {
			return s.finishRun(ctx, result, doc, common.RunStatusFailed, fmt.Sprintf("failed to persist repairs: %v", err))
		}
	}

	tickers := make([]string, 0, len(doc.CurrentPortfolio))
	for _, h := range doc.CurrentPortfolio {
		tickers = append(tickers, h.Ticker)
	}

	prices := map[string]float64{}
	if len(tickers) > 0 {
		prices, err = s.priceRepo.GetPrices(ctx, dto.GetPricesParam{Tickers: tickers})
		if err != nil {
			return s.finishRun(ctx, result, doc, common.RunStatusFailed, fmt.Sprintf("price fetch failed: %v", err))
		}
	}

	evaluated, alerts := s.engine.Evaluate(doc.CurrentPortfolio, prices)
	result.Alerts = alerts
	s.sendTriggerAlerts(opts, alerts)

	market := s.buildMarketContext(ctx, started, tickers)
	result.RiskState = s.aggregator.ComputeRiskState(doc.PerformanceSummary, s.cfg.Risk.Thresholds)

	snapshot := *doc
	snapshot.CurrentPortfolio = evaluated

	recommendation, err := s.aiRepo.Recommend(ctx, &snapshot, result.RiskState, market)
	if err != nil {
		// fail safe: the prior snapshot stays untouched
		return s.finishRun(ctx, result, doc, common.RunStatusAborted, fmt.Sprintf("recommendation source failed: %v", err))
	}
	result.Decisions = recommendation.Decisions()

	portfolioValue := doc.TotalValue()
	validation := s.validator.Validate(result.Decisions, evaluated, doc.Cash, portfolioValue, result.RiskState.Rules)
	result.Validation = &validation
	if !validation.Valid {
		return s.finishRun(ctx, result, doc, common.RunStatusAborted, "decision set failed hard validation")
	}

	newHoldings, newCash, newlyClosed, err := s.ledger.Apply(
		evaluated, doc.Cash, portfolioValue, validation.CorrectedDecisions, prices, started)
	if err != nil {
		return s.finishRun(ctx, result, doc, common.RunStatusAborted, fmt.Sprintf("ledger rejected transition: %v", err))
	}

	record := s.aggregator.ClosePeriod(evaluated, doc.Cash, portfolioValue, market.BenchmarkReturnPct, period)
	result.Record = &record

	for i := range newlyClosed {
		newlyClosed[i].ClosedPeriod = period
	}

	doc.CurrentPortfolio = newHoldings
	doc.Cash = newCash
	doc.MonthlyHistory = append(doc.MonthlyHistory, record)
	doc.ClosedPositions = append(doc.ClosedPositions, newlyClosed...)
	doc.PerformanceSummary = s.aggregator.RecomputeSummary(
		doc.Metadata.StartingCapital, doc.MonthlyHistory, doc.ClosedPositions)
	doc.Metadata.LastUpdated = started

	result.Summary = doc.PerformanceSummary
	result.RiskState = s.aggregator.ComputeRiskState(doc.PerformanceSummary, s.cfg.Risk.Thresholds)

	if !opts.DryRun {
		if err := s.portfolioRepo.Save(ctx, s.cfg.Portfolio.Name, doc); err != nil {
			return s.finishRun(ctx, result, doc, common.RunStatusFailed, fmt.Sprintf("failed to persist portfolio: %v", err))
		}
	}

	return s.finishRun(ctx, result, doc, common.RunStatusCompleted, "")
}

// GetPortfolio returns the current document after an integrity pass.
func (s *advisorService) GetPortfolio(ctx context.Context) (*entity.PortfolioDocument, error) {
	doc, err := s.portfolioRepo.Load(ctx, s.cfg.Portfolio.Name)
	if err != nil {
		return nil, err
	}
	if _, err := s.integrity.Repair(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetRiskState derives the current risk posture from the stored summary.
func (s *advisorService) GetRiskState(ctx context.Context) (*entity.RiskState, error) {
	doc, err := s.GetPortfolio(ctx)
	if err != nil {
		return nil, err
	}
	state := s.aggregator.ComputeRiskState(doc.PerformanceSummary, s.cfg.Risk.Thresholds)
	return &state, nil
}

func (s *advisorService) GetRuns(ctx context.Context, limit int) ([]entity.AdvisorRun, error) {
	return s.portfolioRepo.GetRuns(ctx, limit)
}

func (s *advisorService) loadOrInitDocument(ctx context.Context) (*entity.PortfolioDocument, error) {
	doc, err := s.portfolioRepo.Load(ctx, s.cfg.Portfolio.Name)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, repository.ErrPortfolioNotFound) {
		return nil, err
	}

	s.logger.Info("No portfolio document found, starting fresh",
		logger.Float64Field("starting_capital", s.cfg.Portfolio.StartingCapital))

	now := utils.TimeNowET()
	return &entity.PortfolioDocument{
		Metadata: entity.Metadata{
			StartingCapital: s.cfg.Portfolio.StartingCapital,
			Created:         now,
			LastUpdated:     now,
		},
		Cash: entity.Cash{
			AllocationPct: 100,
			Vehicle:       s.cfg.Portfolio.CashVehicle,
			YieldPct:      s.cfg.Portfolio.CashYieldPct,
		},
	}, nil
}

func (s *advisorService) buildMarketContext(ctx context.Context, now time.Time, tickers []string) dto.MarketContext {
	market := dto.MarketContext{BenchmarkTicker: s.cfg.Portfolio.BenchmarkTicker}

	benchmark, err := s.priceRepo.GetPeriodReturn(ctx, dto.GetPeriodReturnParam{
		Ticker: s.cfg.Portfolio.BenchmarkTicker,
		Start:  now.AddDate(0, 0, -14),
		End:    now,
	})
	if err != nil {
		s.logger.Warn("Benchmark return unavailable, using 0", logger.ErrorField(err))
	} else {
		market.BenchmarkReturnPct = benchmark
	}

	if s.newsRepo != nil && s.cfg.News.Enabled && len(tickers) > 0 {
		news, err := s.newsRepo.GetTickerNews(ctx, tickers)
		if err != nil {
			s.logger.Warn("News context unavailable, continuing without", logger.ErrorField(err))
		} else {
			market.News = news
		}
	}

	return market
}

func (s *advisorService) sendTriggerAlerts(opts dto.RunOptions, alerts []entity.Alert) {
	if s.notifier == nil || opts.DryRun {
		return
	}
	for _, alert := range alerts {
		if err := s.notifier.SendMessage(telegram.FormatTriggerAlert(alert)); err != nil {
			s.logger.Error("Failed to send trigger alert", logger.ErrorField(err), logger.StringField("ticker", alert.Ticker))
		}
	}
}

func (s *advisorService) finishRun(ctx context.Context, result *dto.RunResult, doc *entity.PortfolioDocument, status, reason string) (*dto.RunResult, error) {
	result.Status = status
	result.Reason = reason
	result.Duration = time.Since(result.StartedAt)
	if doc != nil && result.Record == nil {
		result.Summary = doc.PerformanceSummary
	}

	run := &entity.AdvisorRun{
		Period:     result.Period,
		Trigger:    result.Trigger,
		Status:     status,
		Reason:     reason,
		SellCount:  len(result.Decisions.Sells),
		TrimCount:  len(result.Decisions.Trims),
		AddCount:   len(result.Decisions.Adds),
		BuyCount:   len(result.Decisions.NewBuys),
		DurationMs: result.Duration.Milliseconds(),
		DryRun:     result.DryRun,
	}
	if result.Record != nil {
		run.ReturnPct = result.Record.PortfolioReturnPct
	}
	if err := s.portfolioRepo.RecordRun(ctx, run); err != nil {
		s.logger.Error("Failed to record advisor run", logger.ErrorField(err))
	}

	if s.notifier != nil && !result.DryRun {
		// infrastructure failures get the error alert, everything else the
		// period report
		message := telegram.FormatRunReport(result)
		if status == common.RunStatusFailed {
			message = telegram.FormatErrorAlertMessage(result.StartedAt, "advisory run failed", reason, result.Period)
		}
		if err := s.notifier.SendMessage(message); err != nil {
			s.logger.Error("Failed to send run report", logger.ErrorField(err))
		}
	}

	if status == common.RunStatusCompleted {
		s.logger.Info("Advisory run completed",
			logger.StringField("period", result.Period),
			logger.Float64Field("return_pct", run.ReturnPct),
			logger.IntField("duration_ms", int(run.DurationMs)),
		)
		return result, nil
	}

	s.logger.Error("Advisory run did not complete",
		logger.StringField("period", result.Period),
		logger.StringField("status", status),
		logger.StringField("reason", reason),
	)
	return result, nil
}
