package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pachico/pachico/pkg/session"
)

// Classifier issues the router's structured classification call. LLM
// providers implement it; tests use a counting fake.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Router selects the task handler for a turn. A session awaiting
// confirmation is routed straight back to its pending handler without a
// classification call, so a mid-flow turn ("yes", "no") is never
// re-classified away from the handler that owns the flow.
type Router struct {
	classifier Classifier
	logger     zerolog.Logger
}

// NewRouter creates a router over the given classifier.
func NewRouter(classifier Classifier, logger zerolog.Logger) *Router {
	return &Router{classifier: classifier, logger: logger}
}

// Route returns exactly one handler label for the session's latest user
// message. It fails closed: any label outside the closed set is
// ErrClassification, never a default.
func (r *Router) Route(ctx context.Context, sess *session.Session) (string, error) {
	if sess.ContinuationFlag == session.ContinuationAwaiting && session.ValidDecision(sess.PendingDecision) {
		r.logger.Debug().
			Str("session_id", sess.ID).
			Str("decision", sess.PendingDecision).
			Msg("Continuation pending, reusing routing decision")
		return sess.PendingDecision, nil
	}

	last, ok := sess.LastUserMessage()
	if !ok {
		return "", fmt.Errorf("%w: session %s has no user message", ErrClassification, sess.ID)
	}

	label, err := r.classifier.Classify(ctx, last.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassification, err)
	}

	label = strings.ToLower(strings.TrimSpace(label))
	if !session.ValidDecision(label) {
		return "", fmt.Errorf("%w: unknown label %q", ErrClassification, label)
	}

	r.logger.Debug().
		Str("session_id", sess.ID).
		Str("decision", label).
		Msg("Turn classified")

	return label, nil
}
