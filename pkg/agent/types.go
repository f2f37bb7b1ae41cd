package agent

import (
	"errors"

	"github.com/pachico/pachico/pkg/session"
)

// Tool names the handlers are bound to. The implementations are registered
// by the nutrition package at startup.
const (
	ToolSearchFoods   = "search_usda_foods"
	ToolFoodPortions  = "get_food_portions"
	ToolSaveFoodEntry = "save_food_entry"
	ToolQueryEntries  = "query_food_entries"
	ToolExportCSV     = "export_food_csv"
	ToolGenerateChart = "generate_nutrition_chart"
)

// Fatal per-turn errors surfaced to the caller. Tool failures are not here:
// they are captured in the transcript and recoverable within the turn.
var (
	// ErrClassification means the router could not obtain one of the four
	// handler labels. The turn fails; it is never defaulted to a label.
	ErrClassification = errors.New("classification failed")

	// ErrToolRounds means a handler's tool loop hit its round bound.
	ErrToolRounds = errors.New("tool call rounds exceeded")
)

// InvokeRequest is a single model invocation: the turn transcript with a
// handler directive prepended for this call only.
type InvokeRequest struct {
	Model       string
	Directive   string
	Messages    []session.Message
	Tools       []ToolSchema
	Temperature float64
	MaxTokens   int
}

// ToolSchema declares one tool to the model.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// InvokeResponse is the model's reply: either a plain answer or one or more
// proposed tool calls.
type InvokeResponse struct {
	Content   string
	ToolCalls []session.ToolCall
	Usage     *TokenUsage
}

// TokenUsage tracks token consumption for one invocation.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TurnResult is what a completed turn returns to the front end: the final
// answer text plus any artifact files it references.
type TurnResult struct {
	Text          string   `json:"text"`
	ArtifactPaths []string `json:"artifact_paths,omitempty"`
}
