package identity

import (
	"context"
	"sync"

	"github.com/taskforge/backend/domain"
)

// Serializer admits identity-mutating operations one at a time, in arrival
// order. The register path runs a non-atomic "check email free, then insert"
// sequence; funneling every identity mutation through a single worker removes
// the window in which two concurrent registrations both pass the check.
//
// It is a constructed dependency scoped to the identity use case, not a
// process-wide singleton.
type Serializer struct {
	mu     sync.Mutex
	closed bool
	jobs   chan func()
	done   chan struct{}
}

// NewSerializer starts the single worker goroutine. depth bounds how many
// operations may wait in the queue before enqueueing callers block.
func NewSerializer(depth int) *Serializer {
	if depth <= 0 {
		depth = 64
	}
	s := &Serializer{
		jobs: make(chan func(), depth),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Serializer) loop() {
	defer close(s.done)
	for job := range s.jobs {
		job()
	}
}

// Do enqueues op and waits for its result. Operations run to completion once
// admitted; if the caller's context expires first, Do returns early but the
// operation still executes in its slot.
func (s *Serializer) Do(ctx context.Context, op func() error) error {
	result := make(chan error, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.NewError(domain.ErrCodeInternal, "identity queue stopped")
	}
	s.jobs <- func() { result <- op() }
	s.mu.Unlock()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops admission and waits for queued operations to drain.
func (s *Serializer) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
