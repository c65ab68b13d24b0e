package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage rows are append-only: messages are never updated or deleted
// through the chat flow, and appends are plain inserts so concurrent sends
// on one session cannot lose each other's writes.
type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index"`
	Role          string    `gorm:"type:varchar(50);not null"`
	Content       string    `gorm:"type:text;not null"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
