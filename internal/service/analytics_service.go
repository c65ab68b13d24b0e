package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-therapist-be/internal/constant"
	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/pkg/logger"
	"ai-therapist-be/internal/repository/unitofwork"
	"ai-therapist-be/pkg/events"
	pkgNats "ai-therapist-be/pkg/nats"

	"github.com/google/uuid"
)

// IAnalyticsService consumes session message events off the bus and records
// them for offline analysis. It never feeds back into the chat flow.
type IAnalyticsService interface {
	Start() error
}

type analyticsService struct {
	subscriber *pkgNats.Subscriber
	uowFactory unitofwork.RepositoryFactory
	log        logger.ILogger
}

func NewAnalyticsService(
	subscriber *pkgNats.Subscriber,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IAnalyticsService {
	return &analyticsService{
		subscriber: subscriber,
		uowFactory: uowFactory,
		log:        log,
	}
}

func (as *analyticsService) Start() error {
	subject := fmt.Sprintf("events.%s", constant.SessionMessageEventType)
	return as.subscriber.Subscribe(subject, "analytics-worker", as.handleEvent)
}

func (as *analyticsService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	sessionId, _ := payload["sessionId"].(string)
	userIdStr, _ := payload["userId"].(string)

	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		// Unattributable events are logged and acked, not retried.
		as.log.Warn("analytics", "Event without a valid userId", map[string]interface{}{
			"session_id": sessionId,
		})
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		as.log.Warn("analytics", "Failed to marshal event payload", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	record := entity.ChatEvent{
		Id:        uuid.New(),
		EventType: constant.SessionMessageEventType,
		SessionId: sessionId,
		UserId:    userId,
		Payload:   raw,
		CreatedAt: time.Now(),
	}

	uow := as.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatEventRepository().Create(ctx, &record); err != nil {
		as.log.Error("analytics", "Failed to persist chat event", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return err // Nak, let JetStream redeliver
	}

	return nil
}
