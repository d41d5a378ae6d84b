package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"quizmint/internal/model"
)

type ExtractionEventRepository struct {
	db *gorm.DB
}

func NewExtractionEventRepository(db *gorm.DB) *ExtractionEventRepository {
	return &ExtractionEventRepository{db: db}
}

func (r *ExtractionEventRepository) Create(event *model.ExtractionEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("create extraction event failed: %w", err)
	}
	return nil
}

func (r *ExtractionEventRepository) ListBySessionID(ctx context.Context, sessionID uint) ([]model.ExtractionEvent, error) {
	var events []model.ExtractionEvent
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list extraction events failed: %w", err)
	}
	return events, nil
}
