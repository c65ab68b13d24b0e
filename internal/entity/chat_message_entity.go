package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string // constant.ChatMessageRoleUser / ...Assistant
	Content       string
	CreatedAt     time.Time
}
