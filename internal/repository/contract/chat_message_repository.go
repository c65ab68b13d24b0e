package contract

import (
	"context"

	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/repository/specification"
)

// ChatMessageRepository appends and reads messages. Appends are inserts,
// never document rewrites, so concurrent exchanges on one session cannot
// overwrite each other.
type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
