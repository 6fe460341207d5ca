package logview

import "github.com/HaPhanBaoMinh/ktail/internal/domain"

type RenderOptions struct {
	ViewPodNames   bool
	ViewTimestamps bool // ignored while ViewPodNames is set
	HighlightedPod string
	Matcher        *Matcher
}

// Line is one display line derived from a buffered entry.
type Line struct {
	Entry         domain.LogEntry
	ShowPodName   bool
	ShowTimestamp bool
	Highlighted   bool // belongs to the highlighted pod
	Segments      []Segment
}

// Render derives the visible lines. Lines rejected by the matcher are skipped
// and gutters repeat only when their value changes from the previous visible
// line. Pod names and timestamps are never shown together.
func Render(entries []domain.LogEntry, opts RenderOptions) []Line {
	out := make([]Line, 0, len(entries))
	var prev *domain.LogEntry
	for i := range entries {
		ln, ok := renderLine(entries[i], prev, opts)
		if !ok {
			continue
		}
		out = append(out, ln)
		prev = &entries[i]
	}
	return out
}

// renderLine derives the line for e given the previous visible entry, or
// reports false when the matcher rejects it.
func renderLine(e domain.LogEntry, prev *domain.LogEntry, opts RenderOptions) (Line, bool) {
	if !opts.Matcher.Test(e.Content) {
		return Line{}, false
	}
	ln := Line{
		Entry:       e,
		Highlighted: opts.HighlightedPod != "" && e.PodName == opts.HighlightedPod,
		Segments:    opts.Matcher.Highlight(e.Content),
	}
	if opts.ViewPodNames {
		ln.ShowPodName = prev == nil || prev.PodName != e.PodName
	}
	if opts.ViewTimestamps && !opts.ViewPodNames {
		ln.ShowTimestamp = prev == nil || prev.TimeStampStr != e.TimeStampStr
	}
	return ln, true
}

// ScrollSignal reports whether appending n lines should move the view to the
// newest line.
func ScrollSignal(s ViewState, appended int) bool {
	return s.ScrollToBottom && appended > 0
}
