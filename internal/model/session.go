package model

import "time"

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ValidDifficulty reports whether d is one of the accepted difficulty levels.
func ValidDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Session is a study session. ExtractedText is set once per successful
// upload and may be overwritten by a re-upload; UploadSeq grows with every
// applied text write so stale racers can be rejected.
type Session struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Age           int        `gorm:"not null" json:"age"`
	Difficulty    string     `gorm:"size:16;not null" json:"difficulty"`
	ExtractedText string     `gorm:"type:longtext" json:"extracted_text,omitempty"`
	ExtractedAt   *time.Time `json:"extracted_at,omitempty"`
	UploadSeq     uint       `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}
