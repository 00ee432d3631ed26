package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Metadata carries the document-level bookkeeping fields.
type Metadata struct {
	StartingCapital float64   `json:"starting_capital"`
	Created         time.Time `json:"created"`
	LastUpdated     time.Time `json:"last_updated"`
}

// PortfolioDocument is the full persisted portfolio state. It is loaded,
// mutated by exactly one pipeline run, and saved back as a whole.
type PortfolioDocument struct {
	Metadata           Metadata           `json:"metadata"`
	CurrentPortfolio   []Holding          `json:"current_portfolio"`
	Cash               Cash               `json:"cash"`
	MonthlyHistory     []MonthlyRecord    `json:"monthly_history"`
	ClosedPositions    []ClosedPosition   `json:"closed_positions"`
	PerformanceSummary PerformanceSummary `json:"performance_summary"`
}

// TotalValue returns the current portfolio value: last period's ending
// value when history exists, otherwise the starting capital.
func (d *PortfolioDocument) TotalValue() float64 {
	if n := len(d.MonthlyHistory); n > 0 {
		return d.MonthlyHistory[n-1].EndingValue
	}
	return d.Metadata.StartingCapital
}

// PortfolioDocumentRow is the database row holding the serialized document.
type PortfolioDocumentRow struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null" json:"document"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PortfolioDocumentRow) TableName() string {
	return "portfolio_documents"
}

// AdvisorRun records one pipeline execution for auditing.
type AdvisorRun struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Period       string    `gorm:"type:varchar(20);not null" json:"period"`
	Trigger      string    `gorm:"type:varchar(20);not null" json:"trigger"`
	Status       string    `gorm:"type:varchar(20);not null" json:"status"`
	Reason       string    `gorm:"type:text" json:"reason,omitempty"`
	SellCount    int       `json:"sell_count"`
	TrimCount    int       `json:"trim_count"`
	AddCount     int       `json:"add_count"`
	BuyCount     int       `json:"buy_count"`
	ReturnPct    float64   `json:"return_pct"`
	DurationMs   int64     `json:"duration_ms"`
	DryRun       bool      `json:"dry_run"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AdvisorRun) TableName() string {
	return "advisor_runs"
}
