package http

import (
	"errors"
	"net/http"
	"strconv"

	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/advisor/repository"
	"stock-insight-agent/internal/advisor/service"
	"stock-insight-agent/pkg/common"
	"stock-insight-agent/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdvisorHandler exposes the read API plus a manual run trigger.
type AdvisorHandler struct {
	advisorService service.AdvisorService
	logger         *logger.Logger
}

// NewAdvisorHandler creates a new AdvisorHandler.
func NewAdvisorHandler(advisorService service.AdvisorService, logger *logger.Logger) *AdvisorHandler {
	return &AdvisorHandler{advisorService: advisorService, logger: logger}
}

// RegisterRoutes registers the advisor routes to the Echo group.
func (h *AdvisorHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/portfolio", h.GetPortfolio)
	g.GET("/performance", h.GetPerformance)
	g.GET("/risk", h.GetRisk)
	g.GET("/history", h.GetHistory)
	g.GET("/runs", h.GetRuns)
	g.POST("/run", h.TriggerRun)
}

// GetPortfolio returns the full portfolio document.
func (h *AdvisorHandler) GetPortfolio(c echo.Context) error {
	doc, err := h.advisorService.GetPortfolio(c.Request().Context())
	if err != nil {
		if errors.Is(err, repository.ErrPortfolioNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "portfolio not initialized yet"})
		}
		h.logger.Error("Failed to get portfolio", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get portfolio"})
	}
	return c.JSON(http.StatusOK, doc)
}

// GetPerformance returns the derived performance summary.
func (h *AdvisorHandler) GetPerformance(c echo.Context) error {
	doc, err := h.advisorService.GetPortfolio(c.Request().Context())
	if err != nil {
		if errors.Is(err, repository.ErrPortfolioNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "portfolio not initialized yet"})
		}
		h.logger.Error("Failed to get performance", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get performance"})
	}
	return c.JSON(http.StatusOK, doc.PerformanceSummary)
}

// GetRisk returns the current risk posture and its rules.
func (h *AdvisorHandler) GetRisk(c echo.Context) error {
	state, err := h.advisorService.GetRiskState(c.Request().Context())
	if err != nil {
		if errors.Is(err, repository.ErrPortfolioNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "portfolio not initialized yet"})
		}
		h.logger.Error("Failed to get risk state", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get risk state"})
	}
	return c.JSON(http.StatusOK, state)
}

// GetHistory returns the period records and closed positions.
func (h *AdvisorHandler) GetHistory(c echo.Context) error {
	doc, err := h.advisorService.GetPortfolio(c.Request().Context())
	if err != nil {
		if errors.Is(err, repository.ErrPortfolioNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "portfolio not initialized yet"})
		}
		h.logger.Error("Failed to get history", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get history"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"monthly_history":  doc.MonthlyHistory,
		"closed_positions": doc.ClosedPositions,
	})
}

// GetRuns returns recent pipeline run records.
func (h *AdvisorHandler) GetRuns(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid limit"})
		}
		limit = parsed
	}

	runs, err := h.advisorService.GetRuns(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get runs", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get runs"})
	}
	return c.JSON(http.StatusOK, runs)
}

// TriggerRun starts one pipeline run out of schedule. Use ?dry_run=true to
// preview without committing.
func (h *AdvisorHandler) TriggerRun(c echo.Context) error {
	dryRun := c.QueryParam("dry_run") == "true"

	result, err := h.advisorService.RunPeriod(c.Request().Context(), dto.RunOptions{
		Trigger: common.RunTriggerManual,
		DryRun:  dryRun,
	})
	if err != nil {
		h.logger.Error("Manual run failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}

	status := http.StatusOK
	if result.Status != common.RunStatusCompleted {
		status = http.StatusConflict
	}
	return c.JSON(status, result)
}
