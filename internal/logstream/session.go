package logstream

import (
	"context"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

// Session binds the single active handle to the buffer. It is meant to be
// driven from one event loop and is not safe for concurrent use.
type Session struct {
	coord   *Coordinator
	buf     *Buffer
	current *Handle
}

func NewSession(coord *Coordinator, buf *Buffer) *Session {
	return &Session{coord: coord, buf: buf}
}

// Restart closes the current handle, clears the buffer and opens a new handle.
func (s *Session) Restart(ctx context.Context, p domain.SubscriptionParams) *Handle {
	s.Close()
	s.buf.Reset()
	s.current = s.coord.Open(ctx, p)
	return s.current
}

// Apply appends b to the buffer if it belongs to the current open handle.
// Batches from superseded or closed handles are dropped.
func (s *Session) Apply(b Batch) bool {
	h := s.current
	if h == nil || h.ID() != b.Handle || h.Closed() {
		return false
	}
	s.buf.Append(b.Entries)
	return true
}

func (s *Session) Close() {
	if s.current != nil {
		s.current.Close()
	}
}

// Current returns the active handle, or nil before the first Restart.
func (s *Session) Current() *Handle { return s.current }

func (s *Session) Buffer() *Buffer { return s.buf }
