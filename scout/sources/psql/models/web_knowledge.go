package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebKnowledge is one summary produced while crawling, keyed by the research
// intent and the page it came from.
type WebKnowledge struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID  string    `json:"session_id" gorm:"type:varchar(64);index"`
	UserIntent string    `json:"user_input" gorm:"type:text;not null;index"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	SourceURL  string    `json:"source_url" gorm:"type:varchar(2048);not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (WebKnowledge) TableName() string {
	return "web_knowledge"
}

func (wk *WebKnowledge) BeforeCreate(tx *gorm.DB) error {
	if wk.ID == uuid.Nil {
		wk.ID = uuid.New()
	}
	return nil
}
