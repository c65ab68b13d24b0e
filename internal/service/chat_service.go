package service

import (
	"context"
	"strings"
	"time"

	"ai-therapist-be/internal/constant"
	"ai-therapist-be/internal/dto"
	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/pkg/apperror"
	"ai-therapist-be/internal/pkg/logger"
	"ai-therapist-be/internal/repository/memory"
	"ai-therapist-be/internal/repository/specification"
	"ai-therapist-be/internal/repository/unitofwork"
	"ai-therapist-be/pkg/events"
	"ai-therapist-be/pkg/llm"
	"ai-therapist-be/pkg/therapy/prompt"

	"github.com/google/uuid"
)

// IChatService owns the chat session lifecycle: creation, the
// message-exchange protocol, history reads and session close.
type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error)
	SendMessage(ctx context.Context, userId uuid.UUID, sessionId string, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	GetSessionHistory(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.SessionHistoryResponse, error)
	GetSessionMessages(ctx context.Context, userId uuid.UUID, sessionId string) ([]dto.ChatMessageDTO, error)
	GetSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, userId uuid.UUID) ([]*dto.ListSessionsResponse, error)
	EndSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.EndSessionResponse, error)
}

type chatService struct {
	uowFactory    unitofwork.RepositoryFactory
	llmProvider   llm.LLMProvider
	publisher     IEventPublisher
	userCache     *memory.UserCache
	log           logger.ILogger
	genTimeout    time.Duration
	historyWindow int
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	publisher IEventPublisher,
	userCache *memory.UserCache,
	log logger.ILogger,
	genTimeout time.Duration,
	historyWindow int,
) IChatService {
	if genTimeout <= 0 {
		genTimeout = 30 * time.Second
	}
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &chatService{
		uowFactory:    uowFactory,
		llmProvider:   llmProvider,
		publisher:     publisher,
		userCache:     userCache,
		log:           log,
		genTimeout:    genTimeout,
		historyWindow: historyWindow,
	}
}

// CreateSession persists a new active session owned by the requester.
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error) {
	if userId == uuid.Nil {
		return nil, apperror.Unauthenticated()
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	user, err := cs.lookupUser(ctx, uow, userId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.UserNotFound()
	}

	session := entity.ChatSession{
		Id:        uuid.New(),
		SessionId: uuid.NewString(), // external handle, assigned exactly once
		UserId:    userId,
		Status:    constant.ChatSessionStatusActive,
		StartTime: time.Now(),
	}

	if err := uow.ChatSessionRepository().Create(ctx, &session); err != nil {
		return nil, apperror.Persistence(err)
	}

	cs.log.Info("chat", "Chat session created", map[string]interface{}{
		"session_id": session.SessionId,
		"user_id":    userId.String(),
	})

	return &dto.CreateSessionResponse{SessionId: session.SessionId}, nil
}

// SendMessage runs one exchange: emit the analytics event, generate the
// reply under a bounded timeout, then append both messages in a single
// transaction. A failed generation persists nothing.
func (cs *chatService) SendMessage(ctx context.Context, userId uuid.UUID, sessionId string, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.loadOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}
	if session.Status == constant.ChatSessionStatusEnded {
		return nil, apperror.SessionEnded()
	}

	cs.log.Info("chat", "Processing message", map[string]interface{}{
		"session_id": sessionId,
		"user_id":    userId.String(),
	})

	history, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	cs.emitMessageEvent(session, userId, request.Message, history)

	reply, err := cs.generateReply(ctx, history, request.Message)
	if err != nil {
		return nil, apperror.Generation(err)
	}

	if err := cs.appendExchange(ctx, uow, session, request.Message, reply); err != nil {
		return nil, apperror.Persistence(err)
	}

	return &dto.SendMessageResponse{
		SessionId: session.SessionId,
		Response:  reply,
	}, nil
}

func (cs *chatService) GetSessionHistory(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.SessionHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.loadOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	messages, err := cs.loadMessages(ctx, uow, session)
	if err != nil {
		return nil, err
	}

	return &dto.SessionHistoryResponse{
		Messages:  messages,
		StartTime: session.StartTime,
		Status:    session.Status,
	}, nil
}

func (cs *chatService) GetSessionMessages(ctx context.Context, userId uuid.UUID, sessionId string) ([]dto.ChatMessageDTO, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.loadOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	return cs.loadMessages(ctx, uow, session)
}

// GetSession returns the raw session record. Ownership is enforced here
// like everywhere else; there is no unauthenticated lookup path.
func (cs *chatService) GetSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.loadOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	return &dto.SessionResponse{
		SessionId: session.SessionId,
		UserId:    session.UserId,
		Status:    session.Status,
		StartTime: session.StartTime,
		UpdatedAt: session.UpdatedAt,
	}, nil
}

func (cs *chatService) ListSessions(ctx context.Context, userId uuid.UUID) ([]*dto.ListSessionsResponse, error) {
	if userId == uuid.Nil {
		return nil, apperror.Unauthenticated()
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "start_time", Desc: true},
	)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	response := make([]*dto.ListSessionsResponse, 0, len(sessions))
	for _, s := range sessions {
		response = append(response, &dto.ListSessionsResponse{
			SessionId: s.SessionId,
			Status:    s.Status,
			StartTime: s.StartTime,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return response, nil
}

// EndSession transitions active -> ended. Ending twice fails.
func (cs *chatService) EndSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.EndSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.loadOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}
	if session.Status == constant.ChatSessionStatusEnded {
		return nil, apperror.SessionEnded()
	}

	now := time.Now()
	session.Status = constant.ChatSessionStatusEnded
	session.UpdatedAt = &now

	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return nil, apperror.Persistence(err)
	}

	cs.log.Info("chat", "Chat session ended", map[string]interface{}{
		"session_id": session.SessionId,
		"user_id":    userId.String(),
	})

	return &dto.EndSessionResponse{
		SessionId: session.SessionId,
		Status:    session.Status,
	}, nil
}

// --- internals ---

func (cs *chatService) lookupUser(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*entity.User, error) {
	if cached, found := cs.userCache.Get(userId); found {
		return cached, nil
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if user != nil {
		cs.userCache.Set(user)
	}
	return user, nil
}

// loadOwnedSession resolves the external handle and verifies ownership.
// Not-found and ownership mismatch are reported as distinct failures.
func (cs *chatService) loadOwnedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId string) (*entity.ChatSession, error) {
	if userId == uuid.Nil {
		return nil, apperror.Unauthenticated()
	}

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.BySessionID{SessionID: sessionId},
	)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if session == nil {
		cs.log.Warn("chat", "Session not found", map[string]interface{}{
			"session_id": sessionId,
		})
		return nil, apperror.SessionNotFound()
	}
	if session.UserId != userId {
		cs.log.Warn("chat", "Unauthorized access attempt", map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId.String(),
		})
		return nil, apperror.Forbidden()
	}

	return session, nil
}

func (cs *chatService) loadMessages(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ChatSession) ([]dto.ChatMessageDTO, error) {
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	result := make([]dto.ChatMessageDTO, 0, len(messages))
	for _, m := range messages {
		result = append(result, dto.ChatMessageDTO{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}
	return result, nil
}

// emitMessageEvent dispatches the analytics event without blocking the
// caller. Publish failures are logged and dropped.
func (cs *chatService) emitMessageEvent(session *entity.ChatSession, userId uuid.UUID, message string, history []*entity.ChatMessage) {
	entries := make([]events.HistoryEntry, 0, len(history))
	for _, m := range history {
		entries = append(entries, events.HistoryEntry{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}

	event := events.SessionMessageEvent{
		SessionId:    session.SessionId,
		UserId:       userId,
		Message:      message,
		History:      entries,
		Goals:        []string{},
		SystemPrompt: constant.TherapistSystemPromptV1,
		OccurredAt:   time.Now(),
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				cs.log.Error("chat", "Event publish panicked", map[string]interface{}{
					"session_id": session.SessionId,
					"panic":      r,
				})
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := cs.publisher.Publish(ctx, event); err != nil {
			cs.log.Warn("chat", "Failed to publish session message event", map[string]interface{}{
				"session_id": session.SessionId,
				"error":      err.Error(),
			})
		}
	}()
}

func (cs *chatService) generateReply(ctx context.Context, history []*entity.ChatMessage, message string) (string, error) {
	contextMessages := make([]llm.Message, 0, len(history))
	for _, m := range history {
		contextMessages = append(contextMessages, llm.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	request := prompt.NewBuilder(constant.TherapistSystemPromptV1, cs.historyWindow).
		WithHistory(contextMessages).
		WithUserMessage(message).
		Build()

	genCtx, cancel := context.WithTimeout(ctx, cs.genTimeout)
	defer cancel()

	reply, err := cs.llmProvider.Chat(genCtx, request)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(reply), nil
}

// appendExchange inserts the user message and the assistant reply in one
// transaction so a reader never observes a half-written exchange.
func (cs *chatService) appendExchange(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ChatSession, userText, reply string) error {
	now := time.Now()

	userMsg := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          constant.ChatMessageRoleUser,
		Content:       userText,
		CreatedAt:     now,
	}

	// Stamped strictly after the user message so created_at ordering holds
	// even when the clock granularity collapses the two instants.
	assistantMsg := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       reply,
		CreatedAt:     now.Add(time.Millisecond),
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, &userMsg); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &assistantMsg); err != nil {
		return err
	}

	return uow.Commit()
}
