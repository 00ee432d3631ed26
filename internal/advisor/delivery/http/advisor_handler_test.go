package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/advisor/repository"
	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdvisorService struct {
	doc       *entity.PortfolioDocument
	err       error
	runResult *dto.RunResult
	runs      []entity.AdvisorRun
}

func (s *stubAdvisorService) RunPeriod(_ context.Context, _ dto.RunOptions) (*dto.RunResult, error) {
	return s.runResult, s.err
}

func (s *stubAdvisorService) GetPortfolio(_ context.Context) (*entity.PortfolioDocument, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func (s *stubAdvisorService) GetRiskState(_ context.Context) (*entity.RiskState, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.RiskState{}, nil
}

func (s *stubAdvisorService) GetRuns(_ context.Context, _ int) ([]entity.AdvisorRun, error) {
	return s.runs, s.err
}

func doRequest(h *AdvisorHandler, method, target string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetPortfolioNotFoundBody(t *testing.T) {
	h := NewAdvisorHandler(&stubAdvisorService{err: repository.ErrPortfolioNotFound}, logger.NewNop())

	rec := doRequest(h, http.MethodGet, "/api/v1/portfolio")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "portfolio not initialized yet", body.Error)
}

func TestGetRunsRejectsInvalidLimit(t *testing.T) {
	h := NewAdvisorHandler(&stubAdvisorService{}, logger.NewNop())

	rec := doRequest(h, http.MethodGet, "/api/v1/runs?limit=abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
}

func TestGetPortfolioReturnsDocument(t *testing.T) {
	doc := &entity.PortfolioDocument{
		Metadata: entity.Metadata{StartingCapital: 100000},
		Cash:     entity.Cash{AllocationPct: 100},
	}
	h := NewAdvisorHandler(&stubAdvisorService{doc: doc}, logger.NewNop())

	rec := doRequest(h, http.MethodGet, "/api/v1/portfolio")

	assert.Equal(t, http.StatusOK, rec.Code)
	var got entity.PortfolioDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 100000, got.Metadata.StartingCapital, 0.001)
}

func TestTriggerRunConflictWhenNotCompleted(t *testing.T) {
	h := NewAdvisorHandler(&stubAdvisorService{
		runResult: &dto.RunResult{Status: "ABORTED", Reason: "period already closed"},
	}, logger.NewNop())

	rec := doRequest(h, http.MethodPost, "/api/v1/run")

	assert.Equal(t, http.StatusConflict, rec.Code)
}
