// Package service exposes the dialogue orchestrator to the transports. All
// entry points (HTTP API, Telegram, CLI) funnel through Invoke, which
// serializes turns per session so concurrent requests for the same
// conversation never interleave.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pachico/pachico/pkg/agent"
	"github.com/pachico/pachico/pkg/turnqueue"
)

// Service runs user turns through the orchestrator behind a per-session
// queue.
type Service struct {
	orchestrator *agent.Orchestrator
	queue        *turnqueue.Queue
	logger       zerolog.Logger
}

// New creates a service.
func New(orchestrator *agent.Orchestrator, queue *turnqueue.Queue, logger zerolog.Logger) *Service {
	return &Service{
		orchestrator: orchestrator,
		queue:        queue,
		logger:       logger,
	}
}

// Invoke processes one user message for a session and blocks until the turn
// completes. Turns for the same session run strictly one at a time.
func (s *Service) Invoke(ctx context.Context, sessionID, userText string) (agent.TurnResult, error) {
	if sessionID == "" {
		return agent.TurnResult{}, fmt.Errorf("session id is required")
	}
	if userText == "" {
		return agent.TurnResult{}, fmt.Errorf("message is required")
	}

	turnID := uuid.NewString()
	logger := s.logger.With().
		Str("session_id", sessionID).
		Str("turn_id", turnID).
		Logger()

	logger.Debug().Msg("Turn submitted")

	value, err := s.queue.Enqueue(ctx, sessionID, func(taskCtx context.Context) (any, error) {
		return s.orchestrator.ProcessTurn(taskCtx, sessionID, userText)
	})
	if err != nil {
		logger.Error().Err(err).Msg("Turn processing failed")
		return agent.TurnResult{}, err
	}

	result, ok := value.(agent.TurnResult)
	if !ok {
		return agent.TurnResult{}, fmt.Errorf("unexpected turn result type %T", value)
	}

	return result, nil
}

// Close shuts down the turn queue, waiting for in-flight turns.
func (s *Service) Close() error {
	return s.queue.Close()
}
