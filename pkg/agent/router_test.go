package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pachico/pachico/pkg/session"
)

func TestRouterRoute(t *testing.T) {
	t.Run("classifies the latest user message", func(t *testing.T) {
		provider := &fakeProvider{classifyLabel: "food_entry"}
		router := NewRouter(provider, testLogger())

		sess := session.NewSession("s1")
		sess.Append(session.Message{Role: "user", Content: "I ate 2 eggs"})

		label, err := router.Route(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, session.DecisionFoodEntry, label)
		assert.Equal(t, 1, provider.classifyCalls)
	})

	t.Run("normalizes label case and whitespace", func(t *testing.T) {
		provider := &fakeProvider{classifyLabel: "  Chart_Request \n"}
		router := NewRouter(provider, testLogger())

		sess := session.NewSession("s1")
		sess.Append(session.Message{Role: "user", Content: "show me a chart"})

		label, err := router.Route(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, session.DecisionChartRequest, label)
	})

	t.Run("skips classification while awaiting confirmation", func(t *testing.T) {
		provider := &fakeProvider{classifyLabel: "chatbot"}
		router := NewRouter(provider, testLogger())

		sess := session.NewSession("s1")
		sess.PendingDecision = session.DecisionFoodEntry
		sess.ContinuationFlag = session.ContinuationAwaiting
		sess.Append(session.Message{Role: "user", Content: "yes"})

		label, err := router.Route(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, session.DecisionFoodEntry, label)
		assert.Zero(t, provider.classifyCalls, "continuation must not re-classify")
	})

	t.Run("classifies normally when continuation flag has no valid decision", func(t *testing.T) {
		provider := &fakeProvider{classifyLabel: "chatbot"}
		router := NewRouter(provider, testLogger())

		sess := session.NewSession("s1")
		sess.ContinuationFlag = session.ContinuationAwaiting
		sess.Append(session.Message{Role: "user", Content: "hello"})

		label, err := router.Route(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, session.DecisionChatbot, label)
		assert.Equal(t, 1, provider.classifyCalls)
	})

	t.Run("fails closed on unknown label", func(t *testing.T) {
		provider := &fakeProvider{classifyLabel: "recipe_search"}
		router := NewRouter(provider, testLogger())

		sess := session.NewSession("s1")
		sess.Append(session.Message{Role: "user", Content: "hello"})

		_, err := router.Route(context.Background(), sess)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClassification))
		assert.Contains(t, err.Error(), "recipe_search")
	})

	t.Run("wraps classifier errors", func(t *testing.T) {
		provider := &fakeProvider{classifyErr: errors.New("timeout")}
		router := NewRouter(provider, testLogger())

		sess := session.NewSession("s1")
		sess.Append(session.Message{Role: "user", Content: "hello"})

		_, err := router.Route(context.Background(), sess)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClassification))
	})

	t.Run("errors when session has no user message", func(t *testing.T) {
		provider := &fakeProvider{classifyLabel: "chatbot"}
		router := NewRouter(provider, testLogger())

		sess := session.NewSession("s1")
		_, err := router.Route(context.Background(), sess)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClassification))
	})
}
