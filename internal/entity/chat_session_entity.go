package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id        uuid.UUID // internal storage identifier
	SessionId string    // external handle, unique, assigned once at creation
	UserId    uuid.UUID
	Status    string // constant.ChatSessionStatusActive / ...Ended
	StartTime time.Time
	UpdatedAt *time.Time
}
