package logview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

// Window exposes buffered entries by absolute position.
type Window interface {
	Since(abs int) (entries []domain.LogEntry, oldest int)
}

type paneKey struct {
	matcher         *Matcher
	podNames        bool
	timestamps      bool
	highlighted     string
	theme           string
	width           int
	wrap            bool
	podGutter       bool
	timestampGutter bool
}

func keyOf(ro RenderOptions, fo FormatOptions) paneKey {
	return paneKey{
		matcher:         ro.Matcher,
		podNames:        ro.ViewPodNames,
		timestamps:      ro.ViewTimestamps,
		highlighted:     ro.HighlightedPod,
		theme:           fo.Theme.Name,
		width:           fo.Width,
		wrap:            fo.Wrap,
		podGutter:       fo.PodGutter,
		timestampGutter: fo.TimestampGutter,
	}
}

type paneRow struct {
	abs  int
	line Line
	text string
}

// Pane keeps the formatted text of a growing buffer. New entries are
// formatted once; evicted ones are dropped from the front. Any option change
// formats everything again. The pod gutter only widens between rebuilds.
type Pane struct {
	valid  bool
	key    paneKey
	ro     RenderOptions
	fo     FormatOptions
	podW   int
	rows   []paneRow
	next   int // absolute position of the next unseen entry
	oldest int
}

// Reset forgets everything; the next Sync rebuilds.
func (p *Pane) Reset() { *p = Pane{} }

// Len is the number of visible lines.
func (p *Pane) Len() int { return len(p.rows) }

// Sync brings the pane up to date with w. It reports whether every line was
// formatted again.
func (p *Pane) Sync(w Window, ro RenderOptions, fo FormatOptions) bool {
	key := keyOf(ro, fo)
	if !p.valid || key != p.key {
		p.rebuild(w, ro, fo, key)
		return true
	}
	entries, oldest := w.Since(p.next)
	if oldest < p.oldest {
		p.rebuild(w, ro, fo, key)
		return true
	}
	if fo.PodGutter {
		for _, e := range entries {
			if min(lipgloss.Width(e.PodName), maxPodGutter) > p.podW {
				p.rebuild(w, ro, fo, key)
				return true
			}
		}
	}
	p.evict(oldest)
	p.append(entries, max(p.next, oldest))
	return false
}

// Text is the formatted pane content.
func (p *Pane) Text() string {
	var b strings.Builder
	for i, r := range p.rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.text)
	}
	return b.String()
}

func (p *Pane) rebuild(w Window, ro RenderOptions, fo FormatOptions, key paneKey) {
	entries, oldest := w.Since(0)
	*p = Pane{valid: true, key: key, ro: ro, fo: fo, oldest: oldest, next: oldest}
	if fo.PodGutter {
		for _, e := range entries {
			p.podW = max(p.podW, lipgloss.Width(e.PodName))
		}
		p.podW = min(p.podW, maxPodGutter)
	}
	p.rows = make([]paneRow, 0, len(entries))
	p.append(entries, oldest)
}

// evict drops rows whose entries left the buffer. The new first row shows its
// gutters again, as the first visible line always does.
func (p *Pane) evict(oldest int) {
	p.oldest = oldest
	n := 0
	for n < len(p.rows) && p.rows[n].abs < oldest {
		n++
	}
	if n == 0 {
		return
	}
	p.rows = p.rows[n:]
	if len(p.rows) == 0 {
		return
	}
	first, _ := renderLine(p.rows[0].line.Entry, nil, p.ro)
	p.rows[0].line = first
	p.rows[0].text = formatLine(first, p.fo, p.podW)
}

func (p *Pane) append(entries []domain.LogEntry, start int) {
	var prev *domain.LogEntry
	if len(p.rows) > 0 {
		prev = &p.rows[len(p.rows)-1].line.Entry
	}
	for i := range entries {
		ln, ok := renderLine(entries[i], prev, p.ro)
		if !ok {
			continue
		}
		p.rows = append(p.rows, paneRow{abs: start + i, line: ln, text: formatLine(ln, p.fo, p.podW)})
		prev = &entries[i]
	}
	p.next = start + len(entries)
}
