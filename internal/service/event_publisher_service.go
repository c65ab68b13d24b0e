package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-therapist-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IEventPublisher hands analytics events to the in-process bus. Callers
// treat it as best-effort; a failed publish never fails the chat flow.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// eventEnvelope is the wire format on the in-process topic.
type eventEnvelope struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type eventPublisherService struct {
	topicName string
	publisher message.Publisher
}

func NewEventPublisherService(topicName string, publisher message.Publisher) IEventPublisher {
	return &eventPublisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *eventPublisherService) Publish(ctx context.Context, event events.Event) error {
	envelope := eventEnvelope{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)

	return ps.publisher.Publish(ps.topicName, msg)
}
