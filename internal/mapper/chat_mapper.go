package mapper

import (
	"time"

	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.Id,
		SessionId: s.SessionId,
		UserId:    s.UserId,
		Status:    s.Status,
		StartTime: s.StartTime,
		UpdatedAt: updatedAt,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		SessionId: s.SessionId,
		UserId:    s.UserId,
		Status:    s.Status,
		StartTime: s.StartTime,
		UpdatedAt: updatedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessagesToEntities(msgs []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(msgs))
	for i, msg := range msgs {
		entities[i] = m.ChatMessageToEntity(msg)
	}
	return entities
}

// Event Mappers

func (m *ChatMapper) ChatEventToEntity(e *model.ChatEvent) *entity.ChatEvent {
	if e == nil {
		return nil
	}

	return &entity.ChatEvent{
		Id:        e.Id,
		EventType: e.EventType,
		SessionId: e.SessionId,
		UserId:    e.UserId,
		Payload:   []byte(e.Payload),
		CreatedAt: e.CreatedAt,
	}
}

func (m *ChatMapper) ChatEventToModel(e *entity.ChatEvent) *model.ChatEvent {
	if e == nil {
		return nil
	}

	return &model.ChatEvent{
		Id:        e.Id,
		EventType: e.EventType,
		SessionId: e.SessionId,
		UserId:    e.UserId,
		Payload:   datatypes.JSON(e.Payload),
		CreatedAt: e.CreatedAt,
	}
}
