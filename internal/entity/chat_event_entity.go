package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatEvent is the persisted analytics record written by the event worker.
// The chat flow never reads these back; they exist for offline analysis.
type ChatEvent struct {
	Id        uuid.UUID
	EventType string
	SessionId string
	UserId    uuid.UUID
	Payload   []byte // raw JSON event payload
	CreatedAt time.Time
}
