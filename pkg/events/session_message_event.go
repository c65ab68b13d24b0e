package events

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one prior message carried on the analytics event.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile and SessionContext are placeholder memory fields. Nothing
// populates them yet; downstream analytics expects the shape to be present.
type UserProfile struct {
	EmotionalState []string               `json:"emotionalState"`
	RiskLevel      int                    `json:"riskLevel"`
	Preferences    map[string]interface{} `json:"preferences"`
}

type SessionContext struct {
	ConversationThemes []string `json:"conversationThemes"`
	CurrentTechnique   *string  `json:"currentTechnique"`
}

type MemorySnapshot struct {
	UserProfile    UserProfile    `json:"userProfile"`
	SessionContext SessionContext `json:"sessionContext"`
}

// SessionMessageEvent is emitted once per user message, before generation.
type SessionMessageEvent struct {
	SessionId    string
	UserId       uuid.UUID
	Message      string
	History      []HistoryEntry
	Goals        []string
	SystemPrompt string
	OccurredAt   time.Time
}

func (e SessionMessageEvent) EventType() string {
	return "THERAPY_SESSION_MESSAGE"
}

func (e SessionMessageEvent) Payload() map[string]interface{} {
	memory := MemorySnapshot{
		UserProfile: UserProfile{
			EmotionalState: []string{},
			RiskLevel:      0,
			Preferences:    map[string]interface{}{},
		},
		SessionContext: SessionContext{
			ConversationThemes: []string{},
			CurrentTechnique:   nil,
		},
	}

	goals := e.Goals
	if goals == nil {
		goals = []string{}
	}

	history := e.History
	if history == nil {
		history = []HistoryEntry{}
	}

	return map[string]interface{}{
		"sessionId":    e.SessionId,
		"userId":       e.UserId.String(),
		"message":      e.Message,
		"history":      history,
		"memory":       memory,
		"goals":        goals,
		"systemPrompt": e.SystemPrompt,
	}
}

func (e SessionMessageEvent) Timestamp() time.Time {
	return e.OccurredAt
}
