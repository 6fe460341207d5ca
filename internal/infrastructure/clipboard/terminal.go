package clipboard

import (
	"os"
	"sync"
)

// Terminal serializes writes to a terminal file. The program renderer and
// Copy share one so an escape sequence never lands inside a frame. It keeps
// Fd so the program still detects a TTY.
type Terminal struct {
	mu sync.Mutex
	f  *os.File
}

func NewTerminal(f *os.File) *Terminal { return &Terminal{f: f} }

func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.f.Write(p)
}

func (t *Terminal) Read(p []byte) (int, error) { return t.f.Read(p) }

func (t *Terminal) Close() error { return t.f.Close() }

func (t *Terminal) Fd() uintptr { return t.f.Fd() }
