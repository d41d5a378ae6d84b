package model

import "time"

// Flashcard belongs to exactly one session. Cards are created in a batch
// after each successful extraction and are never edited afterwards; repeated
// uploads accumulate cards.
type Flashcard struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
