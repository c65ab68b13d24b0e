package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId string    `gorm:"type:uuid;not null;uniqueIndex"` // external handle, never the PK
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`       // User ownership for data isolation
	Status    string    `gorm:"type:varchar(20);not null;default:'active'"`
	StartTime time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
