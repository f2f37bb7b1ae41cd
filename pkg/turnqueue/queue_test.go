package turnqueue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEnqueue(t *testing.T) {
	t.Run("returns the task result", func(t *testing.T) {
		q := New()
		defer q.Close()

		value, err := q.Enqueue(context.Background(), "s1", func(ctx context.Context) (any, error) {
			return "done", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "done", value)
	})

	t.Run("returns the task error", func(t *testing.T) {
		q := New()
		defer q.Close()

		_, err := q.Enqueue(context.Background(), "s1", func(ctx context.Context) (any, error) {
			return nil, fmt.Errorf("boom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("serializes tasks within one session", func(t *testing.T) {
		q := New()
		defer q.Close()

		var mu sync.Mutex
		var active, maxActive int
		var order []int

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			i := i
			go func() {
				defer wg.Done()
				q.Enqueue(context.Background(), "s1", func(ctx context.Context) (any, error) {
					mu.Lock()
					active++
					if active > maxActive {
						maxActive = active
					}
					order = append(order, i)
					mu.Unlock()

					time.Sleep(10 * time.Millisecond)

					mu.Lock()
					active--
					mu.Unlock()
					return nil, nil
				})
			}()
			// Stagger submissions so arrival order is deterministic.
			time.Sleep(2 * time.Millisecond)
		}
		wg.Wait()

		assert.Equal(t, 1, maxActive, "same-session tasks must never overlap")
		assert.Len(t, order, 5)
	})

	t.Run("runs different sessions concurrently", func(t *testing.T) {
		q := New()
		defer q.Close()

		release := make(chan struct{})
		started := make(chan string, 2)

		var wg sync.WaitGroup
		for _, id := range []string{"a", "b"} {
			wg.Add(1)
			id := id
			go func() {
				defer wg.Done()
				q.Enqueue(context.Background(), id, func(ctx context.Context) (any, error) {
					started <- id
					<-release
					return nil, nil
				})
			}()
		}

		// Both lanes must start without waiting on each other.
		for i := 0; i < 2; i++ {
			select {
			case <-started:
			case <-time.After(time.Second):
				t.Fatal("lanes did not run concurrently")
			}
		}
		close(release)
		wg.Wait()
	})

	t.Run("queue size reflects waiting tasks", func(t *testing.T) {
		q := New()
		defer q.Close()

		assert.Equal(t, 0, q.QueueSize("s1"))
		assert.Equal(t, 0, q.QueueSize("unknown"))
	})
}
