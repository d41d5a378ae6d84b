package model

import "time"

// ExtractionEvent is an audit record for one completed extraction pipeline
// run. Events are published to the broker and persisted asynchronously.
type ExtractionEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	Chars     int       `gorm:"not null" json:"chars"`
	Cards     int       `gorm:"not null" json:"cards"`
	CreatedAt time.Time `json:"created_at"`
}
