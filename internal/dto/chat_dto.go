package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

type SendMessageResponse struct {
	SessionId string `json:"session_id"`
	Response  string `json:"response"`
}

type ChatMessageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionHistoryResponse is the session summary: full message sequence
// plus the lifecycle fields.
type SessionHistoryResponse struct {
	Messages  []ChatMessageDTO `json:"messages"`
	StartTime time.Time        `json:"start_time"`
	Status    string           `json:"status"`
}

// SessionResponse is the raw session record, without messages.
type SessionResponse struct {
	SessionId string     `json:"session_id"`
	UserId    uuid.UUID  `json:"user_id"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type ListSessionsResponse struct {
	SessionId string     `json:"session_id"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type EndSessionResponse struct {
	SessionId string `json:"session_id"`
	Status    string `json:"status"`
}
