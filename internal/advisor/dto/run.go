package dto

import (
	"time"

	"stock-insight-agent/internal/entity"
)

// RunOptions controls a single pipeline run.
type RunOptions struct {
	Trigger string `json:"trigger"`
	DryRun  bool   `json:"dry_run"`
}

// Validation issue kinds. Hard issues block the run, corrections record
// auto-applied fixes, warnings are advisory only.
type ValidationIssue struct {
	Ticker  string `json:"ticker,omitempty"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of checking a decision set against the
// active risk rules.
type ValidationResult struct {
	Valid              bool               `json:"valid"`
	Issues             []ValidationIssue  `json:"issues,omitempty"`
	Corrections        []ValidationIssue  `json:"corrections,omitempty"`
	Warnings           []ValidationIssue  `json:"warnings,omitempty"`
	CorrectedDecisions entity.DecisionSet `json:"corrected_decisions"`
}

// RunResult summarizes one pipeline run for reporting and persistence.
type RunResult struct {
	Status     string                    `json:"status"`
	Reason     string                    `json:"reason,omitempty"`
	Period     string                    `json:"period"`
	Trigger    string                    `json:"trigger"`
	DryRun     bool                      `json:"dry_run"`
	Record     *entity.MonthlyRecord     `json:"record,omitempty"`
	Alerts     []entity.Alert            `json:"alerts,omitempty"`
	Decisions  entity.DecisionSet        `json:"decisions"`
	Validation *ValidationResult         `json:"validation,omitempty"`
	Summary    entity.PerformanceSummary `json:"summary"`
	RiskState  entity.RiskState          `json:"risk_state"`
	StartedAt  time.Time                 `json:"started_at"`
	Duration   time.Duration             `json:"duration"`
}
