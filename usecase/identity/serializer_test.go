package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializerRunsInOrder(t *testing.T) {
	s := NewSerializer(16)
	defer s.Close(context.Background())

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		// Enqueue sequentially so arrival order is deterministic; completion
		// order must match it.
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	require.Len(t, order, 10)
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestSerializerNeverInterleaves(t *testing.T) {
	s := NewSerializer(64)
	defer s.Close(context.Background())

	active := 0
	maxActive := 0
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), func() error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestSerializerContextCancel(t *testing.T) {
	s := NewSerializer(4)
	defer s.Close(context.Background())

	release := make(chan struct{})
	go s.Do(context.Background(), func() error {
		<-release
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := make(chan struct{})
	err := s.Do(ctx, func() error {
		close(ran)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned operation still executes in its slot.
	close(release)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued operation never ran")
	}
}

func TestSerializerClose(t *testing.T) {
	s := NewSerializer(4)
	require.NoError(t, s.Close(context.Background()))

	err := s.Do(context.Background(), func() error { return nil })
	assert.Error(t, err)

	// Closing twice is safe.
	require.NoError(t, s.Close(context.Background()))
}
