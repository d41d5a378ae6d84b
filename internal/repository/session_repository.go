package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"quizmint/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the session does not exist. A missing session
// is a normal outcome, not a store failure.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// UpdateExtractedText overwrites the extracted text, last writer wins, but
// only when seq is newer than the stored upload sequence. Returns false when
// a newer write already landed; the caller treats that as a stale upload.
func (r *SessionRepository) UpdateExtractedText(ctx context.Context, sessionID uint, text string, at time.Time, seq uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND upload_seq < ?", sessionID, seq).
		Updates(map[string]interface{}{
			"extracted_text": text,
			"extracted_at":   at,
			"upload_seq":     seq,
		})
	if res.Error != nil {
		return false, fmt.Errorf("update session text failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
