package logview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/HaPhanBaoMinh/ktail/internal/ui/styles"
)

const maxPodGutter = 40

type FormatOptions struct {
	Theme           styles.Theme
	Width           int // 0 disables wrapping and truncation
	Wrap            bool
	PodGutter       bool
	TimestampGutter bool
}

// Format draws rendered lines as terminal text, one line per entry (more when
// wrapping). Suppressed gutters keep their width so bodies stay aligned.
func Format(lines []Line, o FormatOptions) string {
	podW := 0
	if o.PodGutter {
		podW = podGutterWidth(lines)
	}
	rows := make([]string, len(lines))
	for i, ln := range lines {
		rows[i] = formatLine(ln, o, podW)
	}
	return strings.Join(rows, "\n")
}

func podGutterWidth(lines []Line) int {
	w := 0
	for _, ln := range lines {
		w = max(w, lipgloss.Width(ln.Entry.PodName))
	}
	return min(w, maxPodGutter)
}

// formatLine draws one line; wrapped lines span several rows.
func formatLine(ln Line, o FormatOptions, podW int) string {
	gutter := formatGutter(ln, o, podW)
	gw := lipgloss.Width(gutter)
	body := formatBody(ln, o.Theme)

	avail := o.Width - gw
	switch {
	case o.Width <= 0 || avail <= 0:
		return gutter + body
	case o.Wrap:
		wrapped := strings.Split(wordwrap.String(body, avail), "\n")
		pad := strings.Repeat(" ", gw)
		for j := 1; j < len(wrapped); j++ {
			wrapped[j] = pad + wrapped[j]
		}
		return gutter + strings.Join(wrapped, "\n")
	default:
		return gutter + truncate.StringWithTail(body, uint(avail), "…")
	}
}

func formatGutter(ln Line, o FormatOptions, podW int) string {
	var parts []string
	if o.PodGutter {
		name := ""
		if ln.ShowPodName {
			name = truncate.StringWithTail(ln.Entry.PodName, uint(podW), "…")
		}
		style := o.Theme.Gutter.Foreground(ColorFor(ln.Entry.PodName)).Width(podW)
		parts = append(parts, style.Render(name))
	}
	if o.TimestampGutter {
		ts := ""
		if ln.ShowTimestamp {
			ts = ln.Entry.TimeStampStr
		}
		parts = append(parts, o.Theme.Timestamp.Width(timestampWidth).Render(ts))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " "
}

// RFC3339 in UTC, e.g. 2024-01-15T10:30:45Z
const timestampWidth = 20

func formatBody(ln Line, t styles.Theme) string {
	base := t.Text
	if ln.Highlighted {
		base = t.Emphasis
	}
	var b strings.Builder
	for _, seg := range ln.Segments {
		if seg.Match {
			b.WriteString(t.Match.Render(seg.Text))
			continue
		}
		b.WriteString(base.Render(seg.Text))
	}
	return b.String()
}
