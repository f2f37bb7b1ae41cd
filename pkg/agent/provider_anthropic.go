package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pachico/pachico/pkg/session"
)

// AnthropicProvider implements LLMProvider for Anthropic Claude.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Provider returns the provider name.
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

// Invoke makes a messages API call with the handler's directive and tool
// declarations. Transcript system messages are folded into the system
// blocks since the messages API has no system role.
func (p *AnthropicProvider) Invoke(ctx context.Context, request InvokeRequest) (*InvokeResponse, error) {
	systemBlocks := []anthropic.TextBlockParam{}
	if request.Directive != "" {
		systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: request.Directive})
	}

	messages := []anthropic.MessageParam{}

	for _, msg := range request.Messages {
		switch msg.Role {
		case "system":
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})
		case "tool":
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError),
			))
		case "assistant":
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		case "user":
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	model := request.Model
	if model == "" {
		model = p.model
	}

	maxTokens := request.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}

	if len(request.Tools) > 0 {
		tools := []anthropic.ToolUnionParam{}
		for _, tool := range request.Tools {
			toolParam := anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.InputSchema["properties"],
				},
			}
			if required, ok := tool.InputSchema["required"].([]string); ok {
				toolParam.InputSchema.Required = required
			}
			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = tools
	}

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	content := ""
	toolCalls := []session.ToolCall{}

	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			toolCalls = append(toolCalls, session.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}

	return &InvokeResponse{
		Content:   content,
		ToolCalls: toolCalls,
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	}, nil
}

// Classify forces a single call to a synthetic "route" tool whose input
// schema is the closed label set. The forced tool choice makes the model
// emit exactly one label; a malformed response is an error, never a
// default.
func (p *AnthropicProvider) Classify(ctx context.Context, text string) (string, error) {
	routeTool := anthropic.ToolParam{
		Name:        "route",
		Description: anthropic.String("Record the category of the user's message."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"step": map[string]any{
					"type": "string",
					"enum": routeLabels(),
				},
			},
			Required: []string{"step"},
		},
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 64,
		System: []anthropic.TextBlockParam{
			{Text: classificationGuide},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &routeTool},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: "route"},
		},
	}

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.ToolUseBlock); ok && b.Name == "route" {
			var input struct {
				Step string `json:"step"`
			}
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &input); err != nil {
				return "", fmt.Errorf("failed to parse classification output: %w", err)
			}
			return input.Step, nil
		}
	}

	return "", fmt.Errorf("no classification tool call in response")
}
