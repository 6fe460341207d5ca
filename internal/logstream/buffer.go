package logstream

import (
	"strings"
	"sync"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

// Buffer holds the entries of exactly one subscription, in arrival order.
// When maxLines > 0 the oldest entries are evicted past the cap.
type Buffer struct {
	mu       sync.RWMutex
	entries  []domain.LogEntry
	maxLines int
	dropped  int
}

func NewBuffer(maxLines int) *Buffer {
	return &Buffer{maxLines: maxLines}
}

// Reset discards every entry and the drop counter.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.dropped = 0
}

func (b *Buffer) Append(batch []domain.LogEntry) {
	if len(batch) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, batch...)
	if b.maxLines > 0 && len(b.entries) > b.maxLines {
		over := len(b.entries) - b.maxLines
		b.dropped += over
		// copy so the evicted prefix can be collected
		kept := make([]domain.LogEntry, b.maxLines)
		copy(kept, b.entries[over:])
		b.entries = kept
	}
}

// All returns a snapshot of the buffered entries.
func (b *Buffer) All() []domain.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.LogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Since returns copies of the entries at absolute position abs and later,
// together with the absolute position of the oldest retained entry. Positions
// count every entry appended since the last Reset, evicted ones included.
func (b *Buffer) Since(abs int) ([]domain.LogEntry, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := min(max(abs-b.dropped, 0), len(b.entries))
	out := make([]domain.LogEntry, len(b.entries)-i)
	copy(out, b.entries[i:])
	return out, b.dropped
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Dropped reports how many entries were evicted by the cap since the last Reset.
func (b *Buffer) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Text joins the buffered contents with newlines, for copying.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var sb strings.Builder
	for i, e := range b.entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Content)
	}
	return sb.String()
}
