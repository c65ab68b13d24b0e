package contract

import (
	"context"

	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/repository/specification"
)

// UserRepository is the directory of identity-provider users; the chat flow
// only reads it to validate that a requester exists.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
