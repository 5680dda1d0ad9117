package domain

// MessageStatus tracks the lifecycle of a conversation turn. A message is
// created Pending and transitions exactly once to Resolved or Failed.
type MessageStatus string

const (
	StatusPending  MessageStatus = "pending"
	StatusResolved MessageStatus = "resolved"
	StatusFailed   MessageStatus = "failed"
)

// PendingAnswer is the placeholder answer shown while a question is in flight.
const PendingAnswer = "🤔 Thinking..."

// ChatMessage is a single question/answer pair in a conversation.
type ChatMessage struct {
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	Status   MessageStatus `json:"-"`
}

// NewPendingMessage creates the optimistic entry appended before the ask
// request is sent.
func NewPendingMessage(question string) ChatMessage {
	return ChatMessage{
		Question: question,
		Answer:   PendingAnswer,
		Status:   StatusPending,
	}
}

// Resolved returns a copy of m completed with the backend-provided answer.
func (m ChatMessage) Resolved(answer string) ChatMessage {
	m.Answer = answer
	m.Status = StatusResolved
	return m
}

// Failed returns a copy of m terminated with an error answer. The question is
// preserved; a failed ask stays visible as conversation content, never a lost
// turn.
func (m ChatMessage) Failed(errText string) ChatMessage {
	m.Answer = errText
	m.Status = StatusFailed
	return m
}

// Pending reports whether the message is still awaiting resolution.
func (m ChatMessage) Pending() bool {
	return m.Status == StatusPending
}
