// Package logstream owns the lifecycle of log subscriptions: batching entries
// on a fixed window, retrying failed streams, and keeping the buffer of the
// single active subscription.
package logstream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

const (
	DefaultBatchWindow = 100 * time.Millisecond
	DefaultRetryDelay  = 500 * time.Millisecond
)

type State int32

const (
	StateIdle State = iota
	StateSubscribing
	StateStreaming
	StateRetrying
	StateCompleted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateRetrying:
		return "retrying"
	case StateCompleted:
		return "completed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Batch is a group of entries delivered together after one batch window.
type Batch struct {
	Handle  uint64
	Entries []domain.LogEntry
}

type Option func(*Coordinator)

func WithBatchWindow(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.batchWindow = d
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

func WithLogger(l logr.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// Coordinator opens subscriptions against a log source.
type Coordinator struct {
	source      domain.LogSource
	log         logr.Logger
	batchWindow time.Duration
	retryDelay  time.Duration
	nextID      atomic.Uint64
}

func NewCoordinator(source domain.LogSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:      source,
		log:         logr.Discard(),
		batchWindow: DefaultBatchWindow,
		retryDelay:  DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle is one live, cancellable subscription. Its batch channel is closed
// when the stream completes or the handle is closed.
type Handle struct {
	id        uint64
	params    domain.SubscriptionParams
	state     atomic.Int32
	attempts  atomic.Int32
	cancel    context.CancelFunc
	out       chan Batch
	done      chan struct{}
	closeOnce sync.Once
}

func (h *Handle) ID() uint64 { return h.id }
func (h *Handle) Params() domain.SubscriptionParams { return h.params }
func (h *Handle) State() State { return State(h.state.Load()) }
func (h *Handle) Closed() bool { return h.State() == StateClosed }

// Attempts counts how many times the underlying stream was opened.
func (h *Handle) Attempts() int { return int(h.attempts.Load()) }

// Batches yields delivered batches in source order.
func (h *Handle) Batches() <-chan Batch { return h.out }

// Done is closed once the handle's goroutine has released every resource.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Close releases the subscription. It is idempotent and never blocks.
func (h *Handle) Close() {
	h.state.Store(int32(StateClosed))
	h.closeOnce.Do(h.cancel)
}

func (h *Handle) setState(s State) {
	for {
		cur := h.state.Load()
		if State(cur) == StateClosed {
			return
		}
		if h.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Open starts a new subscription. Closing any previous handle is the caller's job.
func (c *Coordinator) Open(ctx context.Context, p domain.SubscriptionParams) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:     c.nextID.Add(1),
		params: p,
		cancel: cancel,
		out:    make(chan Batch),
		done:   make(chan struct{}),
	}
	h.state.Store(int32(StateIdle))
	go c.run(runCtx, h)
	return h
}

func (c *Coordinator) run(ctx context.Context, h *Handle) {
	defer close(h.done)
	defer close(h.out)

	log := c.log.WithValues("handle", h.id, "namespace", h.params.Namespace, "pod", h.params.PodName, "container", h.params.ContainerName)
	for {
		if ctx.Err() != nil {
			return
		}
		h.setState(StateSubscribing)
		attempt := h.attempts.Add(1)
		log.V(1).Info("opening log stream", "attempt", attempt, "follow", h.params.Follow, "tail", h.params.Tail, "sinceSeconds", h.params.SinceSeconds, "previous", h.params.Previous)

		err := c.pump(ctx, h)
		switch {
		case ctx.Err() != nil:
			log.V(1).Info("log stream released")
			return
		case err == nil:
			h.setState(StateCompleted)
			log.V(1).Info("log stream finished")
			return
		}

		h.setState(StateRetrying)
		log.V(1).Info("log stream failed; retrying", "error", err.Error(), "delay", c.retryDelay.String())
		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// pump runs one attempt: it reads the source, groups entries per window and
// hands batches to the consumer. The source error is read only after the
// entries channel closes so nothing emitted before the failure is lost.
func (c *Coordinator) pump(ctx context.Context, h *Handle) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	entries, errs := c.source.StreamLogs(streamCtx, h.params)

	ticker := time.NewTicker(c.batchWindow)
	defer ticker.Stop()

	var pending []domain.LogEntry
	flush := func() bool {
		if len(pending) == 0 {
			return true
		}
		b := Batch{Handle: h.id, Entries: pending}
		pending = nil
		select {
		case h.out <- b:
			if h.State() == StateSubscribing {
				h.setState(StateStreaming)
			}
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-entries:
			if !ok {
				var err error
				select {
				case err = <-errs:
				default:
				}
				if !flush() {
					return ctx.Err()
				}
				return err
			}
			pending = append(pending, e)
		case <-ticker.C:
			if !flush() {
				return ctx.Err()
			}
		}
	}
}
