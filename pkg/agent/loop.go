package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pachico/pachico/pkg/session"
	"github.com/pachico/pachico/pkg/tools"
)

// maxToolRounds bounds the number of model/tool round-trips per turn.
// The deepest real flow (search, confirm, save) takes two rounds.
const maxToolRounds = 10

// Loop drives a bounded conversation between the model and a handler's
// tool subset until the model returns a plain answer.
type Loop struct {
	provider  LLMProvider
	registry  *tools.Registry
	model     string
	maxTokens int
	logger    zerolog.Logger
}

// NewLoop creates a tool-call loop bound to a provider and tool registry.
func NewLoop(provider LLMProvider, registry *tools.Registry, model string, maxTokens int, logger zerolog.Logger) *Loop {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Loop{
		provider:  provider,
		registry:  registry,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Run invokes the model with the handler's directive prepended to the
// transcript. Tool calls are executed synchronously and their results
// appended before re-invoking; a response without tool calls is the turn's
// final answer. Tool failures are fed back to the model as failed results;
// exceeding the round bound is fatal for the turn.
func (l *Loop) Run(ctx context.Context, sess *session.Session, h Handler) (session.Message, error) {
	toolSchemas, err := l.toolSchemas(h.Tools)
	if err != nil {
		return session.Message{}, err
	}

	logger := l.logger.With().Str("session_id", sess.ID).Str("handler", h.Name).Logger()

	for round := 0; round < maxToolRounds; round++ {
		select {
		case <-ctx.Done():
			return session.Message{}, ctx.Err()
		default:
		}

		response, err := l.provider.Invoke(ctx, InvokeRequest{
			Model:       l.model,
			Directive:   h.Directive,
			Messages:    sess.Transcript,
			Tools:       toolSchemas,
			Temperature: h.Temperature,
			MaxTokens:   l.maxTokens,
		})
		if err != nil {
			return session.Message{}, fmt.Errorf("model invocation failed: %w", err)
		}

		if len(response.ToolCalls) == 0 {
			final := session.Message{Role: "assistant", Content: response.Content}
			sess.Append(final)
			logger.Debug().Int("rounds", round).Msg("Handler produced final answer")
			return final, nil
		}

		sess.Append(session.Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, call := range response.ToolCalls {
			result := l.registry.Execute(ctx, call.Name, call.Arguments)

			content := result.Output
			if !result.Success {
				content = result.Error
				logger.Warn().Str("tool", call.Name).Str("error", result.Error).Msg("Tool call failed")
			} else {
				logger.Debug().Str("tool", call.Name).Msg("Tool call executed")
			}

			sess.Append(session.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				IsError:    !result.Success,
			})
		}
	}

	return session.Message{}, fmt.Errorf("%w: handler %s exceeded %d rounds", ErrToolRounds, h.Name, maxToolRounds)
}

func (l *Loop) toolSchemas(names []string) ([]ToolSchema, error) {
	if len(names) == 0 {
		return nil, nil
	}

	schemas := make([]ToolSchema, 0, len(names))
	for _, name := range names {
		def, ok := l.registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("tool not found: %s", name)
		}
		inputSchema, _ := l.registry.InputSchema(name)
		schemas = append(schemas, ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: inputSchema,
		})
	}
	return schemas, nil
}
