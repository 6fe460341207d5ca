// Package clipboard copies text to the terminal's clipboard with OSC 52
// escape sequences, which also works over SSH.
package clipboard

import (
	"errors"
	"io"
	"os"
	"strings"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

// MaxBytes is the largest payload most terminals accept.
const MaxBytes = 100 * 1024

var ErrTooLarge = errors.New("clipboard: text exceeds 100KiB")

type OSC52 struct {
	w    io.Writer
	term string
	tmux bool
}

// New writes to w, one Write per sequence, wrapping sequences for tmux or screen based on the
// environment.
func New(w io.Writer) *OSC52 {
	return &OSC52{
		w:    w,
		term: strings.ToLower(os.Getenv("TERM")),
		tmux: os.Getenv("TMUX") != "",
	}
}

func (c *OSC52) Copy(text string) error {
	if len(text) > MaxBytes {
		return ErrTooLarge
	}
	seq := osc52.New(text)
	switch {
	case c.tmux || strings.HasPrefix(c.term, "tmux"):
		seq = seq.Tmux()
	case strings.HasPrefix(c.term, "screen"):
		seq = seq.Screen()
	}
	_, err := io.WriteString(c.w, seq.String())
	return err
}
