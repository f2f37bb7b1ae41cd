package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/pachico/pachico/pkg/session"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// classificationGuide is the label contract for the router's structured
// classification call.
const classificationGuide = `Classify the user's message into exactly one category:
- food_entry: user mentions eating/consuming food
- data_review: user wants to review their history data (e.g., "How many burgers did I eat this week?")
- chart_request: user requests a chart/graph of their data (e.g., "Show me a graph of my calorie intake this month")
- chatbot: general conversation`

func routeLabels() []string {
	return []string{
		session.DecisionFoodEntry,
		session.DecisionDataReview,
		session.DecisionChartRequest,
		session.DecisionChatbot,
	}
}

// OpenRouterProvider implements LLMProvider over OpenRouter's
// OpenAI-compatible chat completions API.
type OpenRouterProvider struct {
	client openai.Client
	model  string
}

// NewOpenRouterProvider creates an OpenRouter provider.
func NewOpenRouterProvider(apiKey, model string) *OpenRouterProvider {
	return &OpenRouterProvider{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(openRouterBaseURL),
		),
		model: model,
	}
}

// Provider returns the provider name.
func (p *OpenRouterProvider) Provider() string {
	return "openrouter"
}

// Invoke makes a chat completion call with the handler's directive and
// tool declarations.
func (p *OpenRouterProvider) Invoke(ctx context.Context, request InvokeRequest) (*InvokeResponse, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}

	if request.Directive != "" {
		messages = append(messages, openai.SystemMessage(request.Directive))
	}

	for _, msg := range request.Messages {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				toolCalls := []openai.ChatCompletionMessageToolCall{}
				for _, tc := range msg.ToolCalls {
					argsJSON, err := json.Marshal(tc.Arguments)
					if err != nil {
						return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
					}
					toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCall{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      tc.Name,
							Arguments: string(argsJSON),
						},
					})
				}
				assistantMsg := openai.ChatCompletionMessage{
					Role:      "assistant",
					Content:   msg.Content,
					ToolCalls: toolCalls,
				}
				messages = append(messages, assistantMsg.ToParam())
			} else {
				messages = append(messages, openai.AssistantMessage(msg.Content))
			}
		case "tool":
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}

	model := request.Model
	if model == "" {
		model = p.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	if len(request.Tools) > 0 {
		tools := []openai.ChatCompletionToolParam{}
		for _, tool := range request.Tools {
			tools = append(tools, openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  openai.FunctionParameters(tool.InputSchema),
				},
			})
		}
		params.Tools = tools
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	choice := response.Choices[0]

	toolCalls := []session.ToolCall{}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		toolCalls = append(toolCalls, session.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return &InvokeResponse{
		Content:   choice.Message.Content,
		ToolCalls: toolCalls,
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.PromptTokens),
			OutputTokens: int(response.Usage.CompletionTokens),
		},
	}, nil
}

// Classify issues a single structured-output classification constrained to
// the closed label set. Anything that does not parse into a label is an
// error for the caller to surface; there is no fallback label.
func (p *OpenRouterProvider) Classify(ctx context.Context, text string) (string, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"step": map[string]any{
				"type": "string",
				"enum": routeLabels(),
			},
		},
		"required":             []string{"step"},
		"additionalProperties": false,
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classificationGuide),
			openai.UserMessage(text),
		},
		MaxTokens: openai.Int(64),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "route",
					Strict: openai.Bool(true),
					Schema: schema,
				},
			},
		},
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	var decision struct {
		Step string `json:"step"`
	}
	if err := json.Unmarshal([]byte(response.Choices[0].Message.Content), &decision); err != nil {
		return "", fmt.Errorf("failed to parse classification output: %w", err)
	}

	return decision.Step, nil
}
