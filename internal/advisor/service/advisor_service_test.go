package service

import (
	"context"
	"errors"
	"testing"

	"stock-insight-agent/internal/advisor/config"
	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/advisor/repository"
	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/common"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePortfolioRepo struct {
	doc       *entity.PortfolioDocument
	loadErr   error
	saveCalls int
	saved     *entity.PortfolioDocument
	runs      []entity.AdvisorRun
}

func (f *fakePortfolioRepo) Load(_ context.Context, _ string) (*entity.PortfolioDocument, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.doc, nil
}

func (f *fakePortfolioRepo) Save(_ context.Context, _ string, doc *entity.PortfolioDocument) error {
	f.saveCalls++
	f.saved = doc
	return nil
}

func (f *fakePortfolioRepo) RecordRun(_ context.Context, run *entity.AdvisorRun) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakePortfolioRepo) GetRuns(_ context.Context, _ int) ([]entity.AdvisorRun, error) {
	return f.runs, nil
}

type fakeAIRepo struct {
	result *dto.RecommendationResult
	err    error
	calls  int
}

func (f *fakeAIRepo) Recommend(_ context.Context, _ *entity.PortfolioDocument, _ entity.RiskState, _ dto.MarketContext) (*dto.RecommendationResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) SendMessage(text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Portfolio = config.Portfolio{
		Name:            "default",
		StartingCapital: 100000,
		BenchmarkTicker: "SPY",
		CashVehicle:     "SGOV",
		CashYieldPct:    5.1,
	}
	cfg.Risk.Thresholds = entity.DefaultRiskThresholds()
	return cfg
}

func newAdvisorForTest(portfolioRepo repository.PortfolioRepository, priceRepo repository.PriceRepository, aiRepo repository.AIRepository) AdvisorService {
	log := logger.NewNop()
	aggregator := NewAggregator(log)
	return NewAdvisorService(
		testConfig(), log,
		portfolioRepo, priceRepo, aiRepo, nil,
		NewPerformanceEngine(log), NewLedger(log), aggregator, NewValidator(log),
		NewIntegrityChecker(log, priceRepo, aggregator),
		nil,
	)
}

func existingDoc() *entity.PortfolioDocument {
	return &entity.PortfolioDocument{
		Metadata: entity.Metadata{StartingCapital: 100000},
		CurrentPortfolio: []entity.Holding{{
			Ticker:           "AAPL",
			RecommendedPrice: 150,
			CurrentPrice:     150,
			AllocationPct:    10,
			InvestmentAmount: 10000,
			Shares:           66,
			Status:           entity.HoldingStatusHold,
		}},
		Cash: entity.Cash{AllocationPct: 90, Vehicle: "SGOV", YieldPct: 5.1},
	}
}

func TestRunPeriodAbortsWhenRecommendationFails(t *testing.T) {
	portfolioRepo := &fakePortfolioRepo{doc: existingDoc()}
	priceRepo := &fakePriceRepo{prices: map[string]float64{"AAPL": 160}}
	aiRepo := &fakeAIRepo{err: errors.New("model overloaded")}

	svc := newAdvisorForTest(portfolioRepo, priceRepo, aiRepo)
	result, err := svc.RunPeriod(context.Background(), dto.RunOptions{Trigger: common.RunTriggerManual})

	require.NoError(t, err)
	assert.Equal(t, common.RunStatusAborted, result.Status)
	assert.Contains(t, result.Reason, "recommendation source failed")

	// fail safe: the prior snapshot is never committed
	assert.Equal(t, 0, portfolioRepo.saveCalls)
	assert.Empty(t, portfolioRepo.doc.MonthlyHistory)
	assert.Len(t, portfolioRepo.doc.CurrentPortfolio, 1)

	// the abort itself is still audited
	require.Len(t, portfolioRepo.runs, 1)
	assert.Equal(t, common.RunStatusAborted, portfolioRepo.runs[0].Status)
}

func TestRunPeriodAbortsOnHardValidationIssue(t *testing.T) {
	portfolioRepo := &fakePortfolioRepo{doc: existingDoc()}
	priceRepo := &fakePriceRepo{prices: map[string]float64{"AAPL": 160}}
	aiRepo := &fakeAIRepo{result: &dto.RecommendationResult{
		Sells: []entity.SellDecision{{Ticker: "GME", Reason: "not even held"}},
	}}

	svc := newAdvisorForTest(portfolioRepo, priceRepo, aiRepo)
	result, err := svc.RunPeriod(context.Background(), dto.RunOptions{Trigger: common.RunTriggerManual})

	require.NoError(t, err)
	assert.Equal(t, common.RunStatusAborted, result.Status)
	assert.Equal(t, "decision set failed hard validation", result.Reason)
	require.NotNil(t, result.Validation)
	assert.False(t, result.Validation.Valid)
	assert.Equal(t, 0, portfolioRepo.saveCalls)
}

func TestRunPeriodInitializesFreshPortfolio(t *testing.T) {
	portfolioRepo := &fakePortfolioRepo{loadErr: repository.ErrPortfolioNotFound}
	priceRepo := &fakePriceRepo{periodReturn: 1.5}
	aiRepo := &fakeAIRepo{result: &dto.RecommendationResult{
		NewBuys: []entity.BuyDecision{{
			Ticker:           "MSFT",
			InvestmentAmount: 10000,
			RecommendedPrice: 400,
		}},
	}}

	svc := newAdvisorForTest(portfolioRepo, priceRepo, aiRepo)
	result, err := svc.RunPeriod(context.Background(), dto.RunOptions{Trigger: common.RunTriggerSchedule})

	require.NoError(t, err)
	assert.Equal(t, common.RunStatusCompleted, result.Status)
	require.NotNil(t, result.Record)
	assert.InDelta(t, 1.5, result.Record.BenchmarkReturnPct, 0.001)

	require.Equal(t, 1, portfolioRepo.saveCalls)
	saved := portfolioRepo.saved
	require.Len(t, saved.CurrentPortfolio, 1)
	assert.Equal(t, "MSFT", saved.CurrentPortfolio[0].Ticker)
	assert.Equal(t, 25.0, saved.CurrentPortfolio[0].Shares)
	assert.InDelta(t, 90, saved.Cash.AllocationPct, 0.001)
	require.Len(t, saved.MonthlyHistory, 1)

	require.Len(t, portfolioRepo.runs, 1)
	assert.Equal(t, 1, portfolioRepo.runs[0].BuyCount)
	assert.Equal(t, common.RunTriggerSchedule, portfolioRepo.runs[0].Trigger)
}

func TestRunPeriodDryRunNeverPersists(t *testing.T) {
	portfolioRepo := &fakePortfolioRepo{doc: existingDoc()}
	priceRepo := &fakePriceRepo{prices: map[string]float64{"AAPL": 160}}
	aiRepo := &fakeAIRepo{result: &dto.RecommendationResult{
		Holds: []entity.HoldDecision{{Ticker: "AAPL"}},
	}}

	svc := newAdvisorForTest(portfolioRepo, priceRepo, aiRepo)
	result, err := svc.RunPeriod(context.Background(), dto.RunOptions{Trigger: common.RunTriggerManual, DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, common.RunStatusCompleted, result.Status)
	assert.Equal(t, 0, portfolioRepo.saveCalls)
	require.Len(t, portfolioRepo.runs, 1)
	assert.True(t, portfolioRepo.runs[0].DryRun)
}

func TestRunPeriodRejectsAlreadyClosedPeriod(t *testing.T) {
	doc := existingDoc()
	doc.MonthlyHistory = []entity.MonthlyRecord{{
		Period:        utils.PeriodKey(utils.TimeNowET()),
		StartingValue: 100000,
		EndingValue:   101000,
	}}
	portfolioRepo := &fakePortfolioRepo{doc: doc}
	aiRepo := &fakeAIRepo{}

	svc := newAdvisorForTest(portfolioRepo, &fakePriceRepo{}, aiRepo)
	result, err := svc.RunPeriod(context.Background(), dto.RunOptions{Trigger: common.RunTriggerSchedule})

	require.NoError(t, err)
	assert.Equal(t, common.RunStatusAborted, result.Status)
	assert.Equal(t, "period already closed", result.Reason)
	assert.Equal(t, 0, aiRepo.calls)
	assert.Equal(t, 0, portfolioRepo.saveCalls)
}

func TestRunPeriodCommitsRepairsBeforeLaterAbort(t *testing.T) {
	doc := existingDoc()
	doc.MonthlyHistory = []entity.MonthlyRecord{
		record("2026-07-1", 100000, 2, 1),
		record("2026-07-1", 100000, 2, 1),
	}
	portfolioRepo := &fakePortfolioRepo{doc: doc}
	priceRepo := &fakePriceRepo{prices: map[string]float64{"AAPL": 160}}
	aiRepo := &fakeAIRepo{err: errors.New("model overloaded")}

	svc := newAdvisorForTest(portfolioRepo, priceRepo, aiRepo)
	result, err := svc.RunPeriod(context.Background(), dto.RunOptions{Trigger: common.RunTriggerManual})

	require.NoError(t, err)
	assert.Equal(t, common.RunStatusAborted, result.Status)

	// the duplicate removal was persisted even though the run aborted
	assert.Equal(t, 1, portfolioRepo.saveCalls)
	assert.Len(t, portfolioRepo.saved.MonthlyHistory, 1)
}

func TestRunPeriodFailureSendsErrorAlert(t *testing.T) {
	portfolioRepo := &fakePortfolioRepo{loadErr: errors.New("db down")}
	notifier := &fakeNotifier{}
	log := logger.NewNop()
	aggregator := NewAggregator(log)
	svc := NewAdvisorService(
		testConfig(), log,
		portfolioRepo, &fakePriceRepo{}, &fakeAIRepo{}, nil,
		NewPerformanceEngine(log), NewLedger(log), aggregator, NewValidator(log),
		NewIntegrityChecker(log, nil, aggregator),
		notifier,
	)

	result, err := svc.RunPeriod(context.Background(), dto.RunOptions{Trigger: common.RunTriggerManual})

	require.NoError(t, err)
	assert.Equal(t, common.RunStatusFailed, result.Status)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "ERROR ALERT")
	assert.Contains(t, notifier.messages[0], "db down")
}

func TestGetRiskStateUsesStoredSummary(t *testing.T) {
	doc := existingDoc()
	doc.PerformanceSummary = entity.PerformanceSummary{DrawdownPct: -16}
	portfolioRepo := &fakePortfolioRepo{doc: doc}

	svc := newAdvisorForTest(portfolioRepo, &fakePriceRepo{}, &fakeAIRepo{})
	state, err := svc.GetRiskState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, entity.RiskModeDefensive, state.Mode)
}
