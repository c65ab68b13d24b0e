package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

const (
	ChatSessionStatusActive = "active"
	ChatSessionStatusEnded  = "ended"
)

// TherapistSystemPromptV1 is the fixed persona sent with every generation
// request and carried on the analytics event.
const TherapistSystemPromptV1 = `You are an AI therapist assistant. Your role is to:
1. Provide empathetic and supportive responses
2. Use evidence-based therapeutic techniques
3. Maintain professional boundaries
4. Monitor for risk factors
5. Guide users toward their therapeutic goals`

// SessionMessageEventType is the subject suffix used on the event bus for
// per-message analytics events.
const SessionMessageEventType = "THERAPY_SESSION_MESSAGE"
