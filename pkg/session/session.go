package session

import (
	"time"
)

// Routing labels persisted with a session. A pending decision of "none"
// means no handler has been selected yet for this session.
const (
	DecisionFoodEntry    = "food_entry"
	DecisionDataReview   = "data_review"
	DecisionChartRequest = "chart_request"
	DecisionChatbot      = "chatbot"
	DecisionNone         = "none"
)

// Continuation flags. AwaitingConfirmation marks an in-progress multi-turn
// flow that must be routed back to the same handler on the next turn.
const (
	ContinuationNone     = "none"
	ContinuationAwaiting = "awaiting_confirmation"
)

// ValidDecision reports whether d names one of the four task handlers.
func ValidDecision(d string) bool {
	switch d {
	case DecisionFoodEntry, DecisionDataReview, DecisionChartRequest, DecisionChatbot:
		return true
	}
	return false
}

// ToolCall is a tool invocation proposed by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is a single entry in a session transcript. Messages are immutable
// once appended; insertion order is the conversation order.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Session is the durable per-conversation state: the full transcript plus
// the routing flags carried between turns.
type Session struct {
	ID               string
	Transcript       []Message
	PendingDecision  string
	ContinuationFlag string

	// Number of transcript messages already committed to the store.
	persisted int
}

// NewSession returns an empty session for the given id.
func NewSession(id string) *Session {
	return &Session{
		ID:               id,
		PendingDecision:  DecisionNone,
		ContinuationFlag: ContinuationNone,
	}
}

// Append adds a message to the transcript, stamping it if needed.
func (s *Session) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	s.Transcript = append(s.Transcript, msg)
}

// LastUserMessage returns the most recent user message, if any.
func (s *Session) LastUserMessage() (Message, bool) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Role == "user" {
			return s.Transcript[i], true
		}
	}
	return Message{}, false
}
