package logstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

func TestBufferAppendIsIndependentOfBatchSizing(t *testing.T) {
	all := entries("a", 12)
	cases := map[string][]int{
		"single batch":  {12},
		"singletons":    {1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		"uneven":        {5, 0, 4, 3},
		"leading empty": {0, 0, 12},
	}
	for name, sizes := range cases {
		t.Run(name, func(t *testing.T) {
			b := NewBuffer(0)
			b.Reset()
			off := 0
			for _, n := range sizes {
				b.Append(all[off : off+n])
				off += n
			}
			assert.Equal(t, all, b.All())
		})
	}
}

func TestBufferCapEvictsOldest(t *testing.T) {
	b := NewBuffer(3)
	b.Append(entries("a", 2))
	b.Append(entries("b", 2))

	got := b.All()
	require.Len(t, got, 3)
	assert.Equal(t, "a line 1", got[0].Content)
	assert.Equal(t, "b line 1", got[2].Content)
	assert.Equal(t, 1, b.Dropped())

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Zero(t, b.Dropped())
}

func TestBufferSinceIsAbsolute(t *testing.T) {
	b := NewBuffer(3)
	b.Append(entries("a", 2))
	got, oldest := b.Since(1)
	assert.Zero(t, oldest)
	require.Len(t, got, 1)
	assert.Equal(t, "a line 1", got[0].Content)

	b.Append(entries("b", 3))
	got, oldest = b.Since(2)
	assert.Equal(t, 2, oldest)
	assert.Len(t, got, 3)
	got, _ = b.Since(0)
	assert.Len(t, got, 3, "evicted positions are skipped")
	got, _ = b.Since(9)
	assert.Empty(t, got)
}

func TestBufferSnapshotIsDetached(t *testing.T) {
	b := NewBuffer(0)
	b.Append(entries("a", 1))
	snap := b.All()
	snap[0].Content = "mutated"
	assert.Equal(t, "a line 0", b.All()[0].Content)
}

func TestBufferText(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, "", b.Text())
	b.Append([]domain.LogEntry{{Content: "one"}, {Content: "two"}})
	assert.Equal(t, "one\ntwo", b.Text())
}

func TestSessionDropsBatchesFromSupersededHandle(t *testing.T) {
	src := &scriptedSource{attempts: []attempt{{hold: true}}}
	s := NewSession(NewCoordinator(src), NewBuffer(0))
	defer s.Close()

	old := s.Restart(context.Background(), domain.SubscriptionParams{PodName: "a"})
	require.True(t, s.Apply(Batch{Handle: old.ID(), Entries: entries("a", 2)}))
	assert.Equal(t, 2, s.Buffer().Len())

	cur := s.Restart(context.Background(), domain.SubscriptionParams{PodName: "b"})
	assert.True(t, old.Closed())
	assert.Zero(t, s.Buffer().Len(), "a new handle starts with an empty buffer")

	// late callback from the stale handle
	assert.False(t, s.Apply(Batch{Handle: old.ID(), Entries: entries("a", 3)}))
	assert.Zero(t, s.Buffer().Len())

	assert.True(t, s.Apply(Batch{Handle: cur.ID(), Entries: entries("b", 1)}))
	assert.Equal(t, entries("b", 1), s.Buffer().All())
}

func TestSessionIgnoresBatchesAfterClose(t *testing.T) {
	src := &scriptedSource{attempts: []attempt{{hold: true}}}
	s := NewSession(NewCoordinator(src), NewBuffer(0))
	h := s.Restart(context.Background(), domain.SubscriptionParams{})
	s.Close()

	assert.False(t, s.Apply(Batch{Handle: h.ID(), Entries: entries("a", 1)}))
	assert.Zero(t, s.Buffer().Len())
	assert.False(t, NewSession(NewCoordinator(src), NewBuffer(0)).Apply(Batch{Handle: 1}))
}

func TestSessionEndToEnd(t *testing.T) {
	want := entries("a", 20)
	src := &scriptedSource{attempts: []attempt{{entries: want}}}
	s := NewSession(NewCoordinator(src, WithBatchWindow(time.Millisecond)), NewBuffer(0))
	h := s.Restart(context.Background(), domain.SubscriptionParams{})
	for _, b := range drain(t, h, 2*time.Second) {
		require.True(t, s.Apply(b))
	}
	assert.Equal(t, want, s.Buffer().All())
}
