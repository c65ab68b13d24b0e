package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User mirrors the record kept by the external identity provider. Only the
// fields needed to validate session ownership live here.
type User struct {
	Id        uuid.UUID
	Email     string
	FullName  string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt *time.Time
}
