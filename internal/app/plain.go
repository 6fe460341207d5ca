package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/go-logr/logr"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
	"github.com/HaPhanBaoMinh/ktail/internal/logstream"
	"github.com/HaPhanBaoMinh/ktail/internal/logview"
)

var plainPalette = []*color.Color{
	color.New(color.FgHiCyan),
	color.New(color.FgHiYellow),
	color.New(color.FgHiBlue),
	color.New(color.FgHiMagenta),
	color.New(color.FgHiGreen),
	color.New(color.FgHiRed),
}

var (
	plainMatch     = color.New(color.BgYellow, color.FgBlack)
	plainTimestamp = color.New(color.FgHiBlack)
)

// RunPlain prints the logs of p to w line by line until the stream completes
// or ctx is cancelled. Pod names and timestamps follow s.
func RunPlain(ctx context.Context, source domain.LogSource, p domain.SubscriptionParams, s logview.ViewState, w io.Writer, log logr.Logger, opts ...logstream.Option) error {
	coord := logstream.NewCoordinator(source, append([]logstream.Option{logstream.WithLogger(log)}, opts...)...)
	h := coord.Open(ctx, p)
	defer h.Close()

	match := logview.Compile(s.FilterText)
	out := bufio.NewWriter(w)
	for b := range h.Batches() {
		for _, e := range b.Entries {
			if !match.Test(e.Content) {
				continue
			}
			writePlainLine(out, e, s, match)
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func writePlainLine(w *bufio.Writer, e domain.LogEntry, s logview.ViewState, match *logview.Matcher) {
	switch {
	case s.ViewPodNames:
		c := plainPalette[logview.PaletteIndex(e.PodName, len(plainPalette))]
		w.WriteString(c.Sprint(e.PodName) + " ")
	case s.ViewTimestamps && e.TimeStampStr != "":
		w.WriteString(plainTimestamp.Sprint(e.TimeStampStr) + " ")
	}
	var b strings.Builder
	for _, seg := range match.Highlight(e.Content) {
		if seg.Match {
			b.WriteString(plainMatch.Sprint(seg.Text))
			continue
		}
		b.WriteString(seg.Text)
	}
	w.WriteString(b.String())
	w.WriteByte('\n')
}
