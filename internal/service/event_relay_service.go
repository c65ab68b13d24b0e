package service

import (
	"context"
	"encoding/json"

	"ai-therapist-be/internal/pkg/logger"
	"ai-therapist-be/pkg/events"
	pkgNats "ai-therapist-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
)

// IEventRelayService drains the in-process topic and forwards events to the
// external NATS bus. It is the boundary where "analytics never breaks chat"
// is enforced: every failure is logged and dropped.
type IEventRelayService interface {
	Relay(ctx context.Context) error
}

type eventRelayService struct {
	subscriber message.Subscriber
	topicName  string
	natsPub    *pkgNats.Publisher
	log        logger.ILogger
}

func NewEventRelayService(
	subscriber message.Subscriber,
	topicName string,
	natsPub *pkgNats.Publisher,
	log logger.ILogger,
) IEventRelayService {
	return &eventRelayService{
		subscriber: subscriber,
		topicName:  topicName,
		natsPub:    natsPub,
		log:        log,
	}
}

func (rs *eventRelayService) Relay(ctx context.Context) error {
	messages, err := rs.subscriber.Subscribe(ctx, rs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (rs *eventRelayService) processMessage(ctx context.Context, msg *message.Message) {
	// Always ack: the relay is best-effort and must not clog the topic.
	defer msg.Ack()

	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		rs.log.Warn("event-relay", "Dropping malformed event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if rs.natsPub == nil {
		rs.log.Warn("event-relay", "NATS publisher unavailable, dropping event", map[string]interface{}{
			"event_type": envelope.Type,
		})
		return
	}

	event := events.BaseEvent{
		Type:       envelope.Type,
		Data:       envelope.Payload,
		OccurredAt: envelope.OccurredAt,
	}

	if err := rs.natsPub.Publish(ctx, event); err != nil {
		rs.log.Warn("event-relay", "Failed to forward event to NATS", map[string]interface{}{
			"event_type": envelope.Type,
			"error":      err.Error(),
		})
	}
}
