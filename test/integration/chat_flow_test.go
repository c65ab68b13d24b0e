package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ai-therapist-be/internal/constant"
	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/repository/specification"
	"ai-therapist-be/internal/repository/unitofwork"
	"ai-therapist-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatPersistenceFlow(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.UserRepository())
	assert.NotNil(t, uow.ChatSessionRepository())
	assert.NotNil(t, uow.ChatMessageRepository())
	assert.NotNil(t, uow.ChatEventRepository())

	ctx := context.Background()

	// Seed a throwaway user
	userId := uuid.New()
	user := &entity.User{
		Id:       userId,
		Email:    "test-integration-" + uuid.NewString() + "@example.com",
		FullName: "Integration Tester",
		Status:   entity.UserStatusActive,
	}
	require.NoError(t, uow.UserRepository().Create(ctx, user))

	t.Run("Session round trip", func(t *testing.T) {
		session := &entity.ChatSession{
			Id:        uuid.New(),
			SessionId: uuid.NewString(),
			UserId:    userId,
			Status:    constant.ChatSessionStatusActive,
			StartTime: time.Now(),
		}
		require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))

		found, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.BySessionID{SessionID: session.SessionId},
		)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, userId, found.UserId)
		assert.Equal(t, constant.ChatSessionStatusActive, found.Status)
	})

	t.Run("Unknown handle returns nil without error", func(t *testing.T) {
		found, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.BySessionID{SessionID: uuid.NewString()},
		)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("Transactional message append", func(t *testing.T) {
		session := &entity.ChatSession{
			Id:        uuid.New(),
			SessionId: uuid.NewString(),
			UserId:    userId,
			Status:    constant.ChatSessionStatusActive,
			StartTime: time.Now(),
		}
		require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))

		txUow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, txUow.Begin(ctx))

		now := time.Now()
		userMsg := &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: session.Id,
			Role:          constant.ChatMessageRoleUser,
			Content:       "integration ping",
			CreatedAt:     now,
		}
		assistantMsg := &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: session.Id,
			Role:          constant.ChatMessageRoleAssistant,
			Content:       "integration pong",
			CreatedAt:     now.Add(time.Millisecond),
		}
		require.NoError(t, txUow.ChatMessageRepository().Create(ctx, userMsg))
		require.NoError(t, txUow.ChatMessageRepository().Create(ctx, assistantMsg))
		require.NoError(t, txUow.Commit())

		messages, err := uow.ChatMessageRepository().FindAll(ctx,
			specification.ByChatSessionID{ChatSessionID: session.Id},
			specification.OrderBy{Field: "created_at", Desc: false},
		)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, constant.ChatMessageRoleUser, messages[0].Role)
		assert.Equal(t, constant.ChatMessageRoleAssistant, messages[1].Role)
	})

	t.Run("Rollback leaves no messages", func(t *testing.T) {
		session := &entity.ChatSession{
			Id:        uuid.New(),
			SessionId: uuid.NewString(),
			UserId:    userId,
			Status:    constant.ChatSessionStatusActive,
			StartTime: time.Now(),
		}
		require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))

		txUow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, txUow.Begin(ctx))
		require.NoError(t, txUow.ChatMessageRepository().Create(ctx, &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: session.Id,
			Role:          constant.ChatMessageRoleUser,
			Content:       "should vanish",
			CreatedAt:     time.Now(),
		}))
		require.NoError(t, txUow.Rollback())

		count, err := uow.ChatMessageRepository().Count(ctx,
			specification.ByChatSessionID{ChatSessionID: session.Id},
		)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}
