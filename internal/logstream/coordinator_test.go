package logstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

type attempt struct {
	entries []domain.LogEntry
	err     error
	hold    bool // keep the stream open until cancelled
}

// scriptedSource replays one attempt per StreamLogs call; the last attempt
// repeats once the script is exhausted.
type scriptedSource struct {
	mu       sync.Mutex
	attempts []attempt
	calls    int
	params   []domain.SubscriptionParams
}

func (s *scriptedSource) StreamLogs(ctx context.Context, p domain.SubscriptionParams) (<-chan domain.LogEntry, <-chan error) {
	s.mu.Lock()
	idx := s.calls
	if idx >= len(s.attempts) {
		idx = len(s.attempts) - 1
	}
	a := s.attempts[idx]
	s.calls++
	s.params = append(s.params, p)
	s.mu.Unlock()

	out := make(chan domain.LogEntry, len(a.entries))
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		for _, e := range a.entries {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
		if a.err != nil {
			errs <- a.err
			return
		}
		if a.hold {
			<-ctx.Done()
		}
	}()
	return out, errs
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func entries(pod string, n int) []domain.LogEntry {
	out := make([]domain.LogEntry, n)
	for i := range out {
		out[i] = domain.LogEntry{PodName: pod, Content: fmt.Sprintf("%s line %d", pod, i)}
	}
	return out
}

// drain reads batches until the handle's channel closes.
func drain(t *testing.T, h *Handle, timeout time.Duration) []Batch {
	t.Helper()
	var got []Batch
	deadline := time.After(timeout)
	for {
		select {
		case b, ok := <-h.Batches():
			if !ok {
				return got
			}
			got = append(got, b)
		case <-deadline:
			t.Fatalf("handle %d did not finish within %s (state %s)", h.ID(), timeout, h.State())
		}
	}
}

func flatten(batches []Batch) []domain.LogEntry {
	var out []domain.LogEntry
	for _, b := range batches {
		out = append(out, b.Entries...)
	}
	return out
}

func TestCoordinatorBatchesBurstIntoOneBatch(t *testing.T) {
	src := &scriptedSource{attempts: []attempt{{entries: entries("a", 5), hold: true}}}
	c := NewCoordinator(src, WithBatchWindow(50*time.Millisecond))
	h := c.Open(context.Background(), domain.SubscriptionParams{PodName: "a", Follow: true})
	defer h.Close()

	select {
	case b := <-h.Batches():
		assert.Equal(t, h.ID(), b.Handle)
		assert.Len(t, b.Entries, 5)
	case <-time.After(time.Second):
		t.Fatal("no batch delivered")
	}
	assert.Equal(t, StateStreaming, h.State())
}

func TestCoordinatorPreservesSourceOrder(t *testing.T) {
	want := entries("a", 250)
	src := &scriptedSource{attempts: []attempt{{entries: want}}}
	c := NewCoordinator(src, WithBatchWindow(time.Millisecond))
	h := c.Open(context.Background(), domain.SubscriptionParams{PodName: "a"})

	got := flatten(drain(t, h, 2*time.Second))
	require.Equal(t, want, got)
	assert.Equal(t, StateCompleted, h.State())
	assert.Equal(t, 1, h.Attempts())
}

func TestCoordinatorRetriesOnceAfterFixedDelay(t *testing.T) {
	const delay = 40 * time.Millisecond
	want := entries("a", 3)
	src := &scriptedSource{attempts: []attempt{
		{err: errors.New("connection reset")},
		{entries: want},
	}}
	c := NewCoordinator(src, WithBatchWindow(5*time.Millisecond), WithRetryDelay(delay))
	params := domain.SubscriptionParams{Namespace: "default", PodName: "a", ContainerName: "main", Tail: 100}

	start := time.Now()
	h := c.Open(context.Background(), params)
	got := flatten(drain(t, h, 2*time.Second))

	assert.GreaterOrEqual(t, time.Since(start), delay)
	assert.Equal(t, want, got)
	assert.Equal(t, 2, h.Attempts())
	assert.Equal(t, 2, src.Calls())
	for _, p := range src.params {
		assert.Equal(t, params, p, "retry must reuse the same parameters")
	}
}

func TestCoordinatorFlushesEntriesBeforeError(t *testing.T) {
	first := entries("a", 2)
	second := entries("b", 1)
	src := &scriptedSource{attempts: []attempt{
		{entries: first, err: errors.New("stream reset")},
		{entries: second},
	}}
	c := NewCoordinator(src, WithBatchWindow(time.Hour), WithRetryDelay(time.Millisecond))
	h := c.Open(context.Background(), domain.SubscriptionParams{})

	got := flatten(drain(t, h, 2*time.Second))
	assert.Equal(t, append(append([]domain.LogEntry{}, first...), second...), got)
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	src := &scriptedSource{attempts: []attempt{{hold: true}}}
	c := NewCoordinator(src)
	h := c.Open(context.Background(), domain.SubscriptionParams{Follow: true})

	require.NotPanics(t, func() {
		h.Close()
		h.Close()
	})
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle did not release its goroutine")
	}
	assert.Equal(t, StateClosed, h.State())
	_, ok := <-h.Batches()
	assert.False(t, ok)

	require.NotPanics(t, h.Close)
}

func TestHandleCloseAfterCompletion(t *testing.T) {
	src := &scriptedSource{attempts: []attempt{{entries: entries("a", 1)}}}
	c := NewCoordinator(src, WithBatchWindow(time.Millisecond))
	h := c.Open(context.Background(), domain.SubscriptionParams{})
	drain(t, h, time.Second)
	<-h.Done()

	require.NotPanics(t, h.Close)
	assert.Equal(t, StateClosed, h.State())
}

func TestHandleCloseCancelsPendingRetry(t *testing.T) {
	src := &scriptedSource{attempts: []attempt{{err: errors.New("unavailable")}}}
	c := NewCoordinator(src, WithRetryDelay(time.Hour))
	h := c.Open(context.Background(), domain.SubscriptionParams{})

	require.Eventually(t, func() bool { return h.State() == StateRetrying }, time.Second, 2*time.Millisecond)
	h.Close()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("pending retry kept the handle alive")
	}
	assert.Equal(t, 1, src.Calls())
}

func TestCoordinatorStopsWhenParentContextCancelled(t *testing.T) {
	src := &scriptedSource{attempts: []attempt{{hold: true}}}
	c := NewCoordinator(src)
	ctx, cancel := context.WithCancel(context.Background())
	h := c.Open(ctx, domain.SubscriptionParams{Follow: true})
	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle ignored parent cancellation")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle:        "idle",
		StateSubscribing: "subscribing",
		StateStreaming:   "streaming",
		StateRetrying:    "retrying",
		StateCompleted:   "completed",
		StateClosed:      "closed",
		State(42):        "unknown",
	} {
		assert.Equal(t, want, s.String())
	}
}
