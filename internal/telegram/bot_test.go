package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	t.Run("short text stays in one chunk", func(t *testing.T) {
		chunks := chunkText("hello", maxMessageLength)
		assert.Equal(t, []string{"hello"}, chunks)
	})

	t.Run("long text splits at the limit", func(t *testing.T) {
		text := strings.Repeat("a", maxMessageLength+100)
		chunks := chunkText(text, maxMessageLength)
		require.Len(t, chunks, 2)
		assert.Len(t, chunks[0], maxMessageLength)
		assert.Len(t, chunks[1], 100)
	})

	t.Run("exact multiple produces full chunks only", func(t *testing.T) {
		text := strings.Repeat("b", maxMessageLength*2)
		chunks := chunkText(text, maxMessageLength)
		require.Len(t, chunks, 2)
		assert.Len(t, chunks[0], maxMessageLength)
		assert.Len(t, chunks[1], maxMessageLength)
	})

	t.Run("chunks reassemble to the original", func(t *testing.T) {
		text := strings.Repeat("chunky ", 2000)
		chunks := chunkText(text, maxMessageLength)
		assert.Equal(t, text, strings.Join(chunks, ""))
	})

	t.Run("zero limit returns text unchanged", func(t *testing.T) {
		chunks := chunkText("hello", 0)
		assert.Equal(t, []string{"hello"}, chunks)
	})
}
