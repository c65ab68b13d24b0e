package contract

import (
	"context"

	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/repository/specification"
)

type ChatEventRepository interface {
	Create(ctx context.Context, event *entity.ChatEvent) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatEvent, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
