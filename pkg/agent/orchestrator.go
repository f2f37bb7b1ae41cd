package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pachico/pachico/pkg/session"
)

// Orchestrator drives one turn end to end: load session, route, dispatch to
// the selected handler, commit, and surface artifact references. It has no
// internal concurrency; callers serialize turns per session id.
type Orchestrator struct {
	store     *session.Store
	router    *Router
	loop      *Loop
	artifacts ArtifactStore
	logger    zerolog.Logger
}

// Config holds orchestrator dependencies.
type Config struct {
	Store     *session.Store
	Router    *Router
	Loop      *Loop
	Artifacts ArtifactStore
	Logger    zerolog.Logger
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("router is required")
	}
	if cfg.Loop == nil {
		return nil, fmt.Errorf("tool loop is required")
	}

	return &Orchestrator{
		store:     cfg.Store,
		router:    cfg.Router,
		loop:      cfg.Loop,
		artifacts: cfg.Artifacts,
		logger:    cfg.Logger,
	}, nil
}

// ProcessTurn processes one user turn for a session. The session is
// committed once, after the handler finished; a turn that fails before
// commit leaves the stored session untouched.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, userText string) (TurnResult, error) {
	logger := o.logger.With().Str("session_id", sessionID).Logger()

	sess, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("failed to load session: %w", err)
	}

	if len(sess.Transcript) == 0 {
		sess.Append(session.Message{Role: "system", Content: PersonaDirective})
	}
	sess.Append(session.Message{Role: "user", Content: userText})

	label, err := o.router.Route(ctx, sess)
	if err != nil {
		return TurnResult{}, err
	}
	sess.PendingDecision = label

	handler, ok := HandlerFor(label)
	if !ok {
		return TurnResult{}, fmt.Errorf("no handler for label %q", label)
	}

	logger.Info().Str("handler", handler.Name).Msg("Dispatching turn")

	final, err := o.loop.Run(ctx, sess, handler)
	if err != nil {
		return TurnResult{}, err
	}

	if label == session.DecisionFoodEntry {
		applyFoodEntryState(sess)
	}

	if err := o.store.Commit(ctx, sess); err != nil {
		return TurnResult{}, fmt.Errorf("failed to commit session: %w", err)
	}

	result := TurnResult{
		Text:          final.Content,
		ArtifactPaths: scanArtifacts(final.Content, o.artifacts),
	}

	logger.Info().
		Str("handler", handler.Name).
		Int("artifacts", len(result.ArtifactPaths)).
		Str("continuation", sess.ContinuationFlag).
		Msg("Turn completed")

	return result, nil
}
