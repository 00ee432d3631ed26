package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stock-insight-agent/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrPortfolioNotFound is returned when no document row exists yet.
var ErrPortfolioNotFound = errors.New("portfolio document not found")

type portfolioRepository struct {
	db *gorm.DB
}

// NewPortfolioRepository creates a new gorm-backed PortfolioRepository.
func NewPortfolioRepository(db *gorm.DB) PortfolioRepository {
	return &portfolioRepository{db: db}
}

// Load reads and deserializes the named portfolio document.
func (r *portfolioRepository) Load(ctx context.Context, name string) (*entity.PortfolioDocument, error) {
	var row entity.PortfolioDocumentRow
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to load portfolio document: %w", err)
	}

	var doc entity.PortfolioDocument
	if err := json.Unmarshal(row.Document, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal portfolio document: %w", err)
	}
	return &doc, nil
}

// Save serializes the document and upserts the named row.
func (r *portfolioRepository) Save(ctx context.Context, name string, doc *entity.PortfolioDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio document: %w", err)
	}

	var row entity.PortfolioDocumentRow
	err = r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = entity.PortfolioDocumentRow{Name: name, Document: datatypes.JSON(payload)}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create portfolio document: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to query portfolio document: %w", err)
	}

	row.Document = datatypes.JSON(payload)
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save portfolio document: %w", err)
	}
	return nil
}

// RecordRun appends one pipeline-run audit record.
func (r *portfolioRepository) RecordRun(ctx context.Context, run *entity.AdvisorRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record advisor run: %w", err)
	}
	return nil
}

// GetRuns returns the most recent run records, newest first.
func (r *portfolioRepository) GetRuns(ctx context.Context, limit int) ([]entity.AdvisorRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []entity.AdvisorRun
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to get advisor runs: %w", err)
	}
	return runs, nil
}
