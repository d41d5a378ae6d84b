package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"quizmint/internal/model"
)

type FlashcardRepository struct {
	db *gorm.DB
}

func NewFlashcardRepository(db *gorm.DB) *FlashcardRepository {
	return &FlashcardRepository{db: db}
}

// AppendBatch writes each card as its own record. The batch is not
// transactional: on failure the cards written so far stay written, and the
// returned count tells the caller how far the batch got.
func (r *FlashcardRepository) AppendBatch(ctx context.Context, cards []model.Flashcard) (int, error) {
	for i := range cards {
		if err := r.db.WithContext(ctx).Create(&cards[i]).Error; err != nil {
			return i, fmt.Errorf("append flashcard %d of %d failed: %w", i+1, len(cards), err)
		}
	}
	return len(cards), nil
}

// ListBySessionID returns the session's cards in insertion order. The store
// does not order rows on its own, so creation time (then id, for writes in
// the same tick) is made the explicit sort key.
func (r *FlashcardRepository) ListBySessionID(ctx context.Context, sessionID uint) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list flashcards failed: %w", err)
	}
	return cards, nil
}

func (r *FlashcardRepository) CountBySessionID(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Flashcard{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count flashcards failed: %w", err)
	}
	return count, nil
}
