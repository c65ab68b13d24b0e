package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"ai-therapist-be/internal/constant"
	"ai-therapist-be/internal/dto"
	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/pkg/apperror"
	"ai-therapist-be/internal/repository/contract"
	"ai-therapist-be/internal/repository/memory"
	"ai-therapist-be/internal/repository/specification"
	"ai-therapist-be/internal/repository/unitofwork"
	"ai-therapist-be/pkg/events"
	"ai-therapist-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes ---

type fakeStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*entity.User
	sessions map[string]*entity.ChatSession
	messages []*entity.ChatMessage
	events   []*entity.ChatEvent

	failMessageCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]*entity.User),
		sessions: make(map[string]*entity.ChatSession),
	}
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{store: f.store}
}

type fakeUnitOfWork struct {
	store  *fakeStore
	inTx   bool
	staged []*entity.ChatMessage
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.inTx = true
	u.staged = nil
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.messages = append(u.store.messages, u.staged...)
	u.staged = nil
	u.inTx = false
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.staged = nil
	u.inTx = false
	return nil
}

func (u *fakeUnitOfWork) UserRepository() contract.UserRepository {
	return &fakeUserRepository{store: u.store}
}

func (u *fakeUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeChatSessionRepository{store: u.store}
}

func (u *fakeUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeChatMessageRepository{store: u.store, uow: u}
}

func (u *fakeUnitOfWork) ChatEventRepository() contract.ChatEventRepository {
	return &fakeChatEventRepository{store: u.store}
}

type fakeUserRepository struct {
	store *fakeStore
}

func (r *fakeUserRepository) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.users[user.Id] = user
	return nil
}

func (r *fakeUserRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			return r.store.users[byId.ID], nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make([]*entity.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		result = append(result, u)
	}
	return result, nil
}

func (r *fakeUserRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.users)), nil
}

type fakeChatSessionRepository struct {
	store *fakeStore
}

func (r *fakeChatSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *session
	r.store.sessions[session.SessionId] = &copied
	return nil
}

func (r *fakeChatSessionRepository) Update(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *session
	r.store.sessions[session.SessionId] = &copied
	return nil
}

func (r *fakeChatSessionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if bySessionId, ok := spec.(specification.BySessionID); ok {
			session, found := r.store.sessions[bySessionId.SessionID]
			if !found {
				return nil, nil
			}
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeChatSessionRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var owner *uuid.UUID
	for _, spec := range specs {
		if ownedBy, ok := spec.(specification.UserOwnedBy); ok {
			id := ownedBy.UserID
			owner = &id
		}
	}

	result := make([]*entity.ChatSession, 0)
	for _, s := range r.store.sessions {
		if owner != nil && s.UserId != *owner {
			continue
		}
		copied := *s
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	return result, nil
}

func (r *fakeChatSessionRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.sessions)), nil
}

type fakeChatMessageRepository struct {
	store *fakeStore
	uow   *fakeUnitOfWork
}

func (r *fakeChatMessageRepository) Create(ctx context.Context, msg *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failMessageCreate {
		return errors.New("insert failed")
	}
	copied := *msg
	if r.uow.inTx {
		r.uow.staged = append(r.uow.staged, &copied)
		return nil
	}
	r.store.messages = append(r.store.messages, &copied)
	return nil
}

func (r *fakeChatMessageRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessionFilter *uuid.UUID
	for _, spec := range specs {
		if bySession, ok := spec.(specification.ByChatSessionID); ok {
			id := bySession.ChatSessionID
			sessionFilter = &id
		}
	}

	result := make([]*entity.ChatMessage, 0)
	for _, m := range r.store.messages {
		if sessionFilter != nil && m.ChatSessionId != *sessionFilter {
			continue
		}
		copied := *m
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeChatMessageRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	messages, err := r.FindAll(ctx, specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(messages)), nil
}

type fakeChatEventRepository struct {
	store *fakeStore
}

func (r *fakeChatEventRepository) Create(ctx context.Context, event *entity.ChatEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *event
	r.store.events = append(r.store.events, &copied)
	return nil
}

func (r *fakeChatEventRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make([]*entity.ChatEvent, 0, len(r.store.events))
	result = append(result, r.store.events...)
	return result, nil
}

func (r *fakeChatEventRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.events)), nil
}

type fakeLLMProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests [][]llm.Message
}

func (p *fakeLLMProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.requests = append(p.requests, history)
	return p.reply, nil
}

func (p *fakeLLMProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
}

type fakeEventPublisher struct {
	mu        sync.Mutex
	err       error
	published []events.Event
	notify    chan struct{}
}

func newFakeEventPublisher() *fakeEventPublisher {
	return &fakeEventPublisher{notify: make(chan struct{}, 64)}
}

func (p *fakeEventPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() { p.notify <- struct{}{} }()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakeEventPublisher) waitForPublish(t *testing.T) {
	t.Helper()
	select {
	case <-p.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event publish")
	}
}

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

// --- harness ---

type chatFixture struct {
	store     *fakeStore
	llm       *fakeLLMProvider
	publisher *fakeEventPublisher
	service   IChatService
	userId    uuid.UUID
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	store := newFakeStore()
	provider := &fakeLLMProvider{reply: "That sounds difficult. Can you tell me more?"}
	publisher := newFakeEventPublisher()

	userId := uuid.New()
	store.users[userId] = &entity.User{
		Id:       userId,
		Email:    "demo@example.com",
		FullName: "Demo User",
		Status:   entity.UserStatusActive,
	}

	svc := NewChatService(
		&fakeFactory{store: store},
		provider,
		publisher,
		memory.NewUserCache(),
		noopLogger{},
		5*time.Second,
		5,
	)

	return &chatFixture{
		store:     store,
		llm:       provider,
		publisher: publisher,
		service:   svc,
		userId:    userId,
	}
}

func (f *chatFixture) createSession(t *testing.T) string {
	t.Helper()
	res, err := f.service.CreateSession(context.Background(), f.userId)
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionId)
	return res.SessionId
}

// --- tests ---

func TestCreateSession(t *testing.T) {
	f := newChatFixture(t)

	res, err := f.service.CreateSession(context.Background(), f.userId)
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionId)

	_, parseErr := uuid.Parse(res.SessionId)
	assert.NoError(t, parseErr, "external handle should be a uuid")

	session := f.store.sessions[res.SessionId]
	require.NotNil(t, session)
	assert.Equal(t, f.userId, session.UserId)
	assert.Equal(t, constant.ChatSessionStatusActive, session.Status)
	assert.NotEqual(t, session.Id.String(), session.SessionId, "internal id must not leak as the handle")
}

func TestCreateSessionUnknownUser(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.service.CreateSession(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperror.KindUserNotFound, apperror.KindOf(err))
}

func TestCreateSessionUnauthenticated(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.service.CreateSession(context.Background(), uuid.Nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}

func TestSendMessageAppendsExchange(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	res, err := f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{
		Message: "I feel overwhelmed.",
	})
	require.NoError(t, err)
	assert.Equal(t, sessionId, res.SessionId)
	assert.Equal(t, "That sounds difficult. Can you tell me more?", res.Response)

	f.store.mu.Lock()
	messages := append([]*entity.ChatMessage(nil), f.store.messages...)
	f.store.mu.Unlock()
	require.Len(t, messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, messages[0].Role)
	assert.Equal(t, "I feel overwhelmed.", messages[0].Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, messages[1].Role)
	assert.True(t, messages[0].CreatedAt.Before(messages[1].CreatedAt))
}

func TestSendMessageBuildsPromptWithWindow(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	// 4 exchanges = 8 stored messages, above the window of 5
	for i := 0; i < 4; i++ {
		_, err := f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{
			Message: fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	f.llm.mu.Lock()
	lastRequest := f.llm.requests[len(f.llm.requests)-1]
	f.llm.mu.Unlock()

	// system + 5 context + new user message
	require.Len(t, lastRequest, 7)
	assert.Equal(t, "system", lastRequest[0].Role)
	assert.Equal(t, constant.TherapistSystemPromptV1, lastRequest[0].Content)
	assert.Equal(t, "message 3", lastRequest[6].Content)
}

func TestSendMessageSessionNotFound(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.service.SendMessage(context.Background(), f.userId, uuid.NewString(), &dto.SendMessageRequest{
		Message: "hello",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindSessionNotFound, apperror.KindOf(err))
}

func TestSendMessageForbiddenForNonOwner(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	intruder := uuid.New()
	f.store.users[intruder] = &entity.User{Id: intruder, Email: "other@example.com", Status: entity.UserStatusActive}

	_, err := f.service.SendMessage(context.Background(), intruder, sessionId, &dto.SendMessageRequest{
		Message: "let me in",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	assert.Equal(t, 0, f.store.messageCount(), "denied request must not mutate the session")
}

func TestSendMessageEndedSession(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	_, err := f.service.EndSession(context.Background(), f.userId, sessionId)
	require.NoError(t, err)

	_, err = f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{
		Message: "one more thing",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindSessionEnded, apperror.KindOf(err))
	assert.Equal(t, 0, f.store.messageCount())
}

func TestSendMessageGenerationFailure(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	f.llm.err = errors.New("model unavailable")

	_, err := f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{
		Message: "hello?",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindGeneration, apperror.KindOf(err))
	assert.Equal(t, 0, f.store.messageCount(), "failed generation must leave the conversation untouched")
}

func TestSendMessagePersistenceFailure(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	f.store.failMessageCreate = true

	_, err := f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{
		Message: "hello?",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindPersistence, apperror.KindOf(err))
	assert.Equal(t, 0, f.store.messageCount(), "no partial exchange may be committed")
}

func TestSendMessagePublisherFailureDoesNotFailChat(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	f.publisher.err = errors.New("bus is down")

	res, err := f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{
		Message: "still works?",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Response)
	f.publisher.waitForPublish(t)

	assert.Equal(t, 2, f.store.messageCount())
}

func TestSendMessageEmitsEvent(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	_, err := f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{
		Message: "I can't sleep lately.",
	})
	require.NoError(t, err)
	f.publisher.waitForPublish(t)

	f.publisher.mu.Lock()
	defer f.publisher.mu.Unlock()
	require.Len(t, f.publisher.published, 1)

	event := f.publisher.published[0]
	assert.Equal(t, constant.SessionMessageEventType, event.EventType())

	payload := event.Payload()
	assert.Equal(t, sessionId, payload["sessionId"])
	assert.Equal(t, f.userId.String(), payload["userId"])
	assert.Equal(t, "I can't sleep lately.", payload["message"])
	assert.Contains(t, payload, "memory")
	assert.Contains(t, payload, "goals")
	assert.Contains(t, payload, "systemPrompt")
}

func TestSendMessageConcurrent(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{
				Message: fmt.Sprintf("concurrent %d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Every exchange survives: appends are inserts, not rewrites.
	assert.Equal(t, 2*n, f.store.messageCount())
}

func TestGetSessionHistoryRoundTrip(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	_, err := f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{Message: "first"})
	require.NoError(t, err)
	_, err = f.service.SendMessage(context.Background(), f.userId, sessionId, &dto.SendMessageRequest{Message: "second"})
	require.NoError(t, err)

	history, err := f.service.GetSessionHistory(context.Background(), f.userId, sessionId)
	require.NoError(t, err)
	require.Len(t, history.Messages, 4)
	assert.Equal(t, constant.ChatSessionStatusActive, history.Status)

	assert.Equal(t, constant.ChatMessageRoleUser, history.Messages[0].Role)
	assert.Equal(t, "first", history.Messages[0].Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, history.Messages[1].Role)
	assert.Equal(t, "second", history.Messages[2].Content)

	// Reads are idempotent
	again, err := f.service.GetSessionHistory(context.Background(), f.userId, sessionId)
	require.NoError(t, err)
	assert.Equal(t, history.Messages, again.Messages)
}

func TestGetSessionHistoryForbidden(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	_, err := f.service.GetSessionHistory(context.Background(), uuid.New(), sessionId)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestGetSessionEnforcesOwnership(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	res, err := f.service.GetSession(context.Background(), f.userId, sessionId)
	require.NoError(t, err)
	assert.Equal(t, sessionId, res.SessionId)
	assert.Equal(t, f.userId, res.UserId)

	_, err = f.service.GetSession(context.Background(), uuid.New(), sessionId)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestListSessions(t *testing.T) {
	f := newChatFixture(t)

	first := f.createSession(t)
	second := f.createSession(t)

	// A session owned by someone else must not appear
	other := uuid.New()
	f.store.users[other] = &entity.User{Id: other, Email: "other@example.com", Status: entity.UserStatusActive}
	_, err := f.service.CreateSession(context.Background(), other)
	require.NoError(t, err)

	sessions, err := f.service.ListSessions(context.Background(), f.userId)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	ids := []string{sessions[0].SessionId, sessions[1].SessionId}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)
}

func TestEndSession(t *testing.T) {
	f := newChatFixture(t)
	sessionId := f.createSession(t)

	res, err := f.service.EndSession(context.Background(), f.userId, sessionId)
	require.NoError(t, err)
	assert.Equal(t, constant.ChatSessionStatusEnded, res.Status)

	session := f.store.sessions[sessionId]
	assert.Equal(t, constant.ChatSessionStatusEnded, session.Status)
	require.NotNil(t, session.UpdatedAt)

	// Ending twice fails
	_, err = f.service.EndSession(context.Background(), f.userId, sessionId)
	require.Error(t, err)
	assert.Equal(t, apperror.KindSessionEnded, apperror.KindOf(err))

	// History remains readable after the session ends
	history, err := f.service.GetSessionHistory(context.Background(), f.userId, sessionId)
	require.NoError(t, err)
	assert.Equal(t, constant.ChatSessionStatusEnded, history.Status)
}
