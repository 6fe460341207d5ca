package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
	"github.com/HaPhanBaoMinh/ktail/internal/logstream"
	"github.com/HaPhanBaoMinh/ktail/internal/logview"
	"github.com/HaPhanBaoMinh/ktail/internal/ui/styles"
	"github.com/HaPhanBaoMinh/ktail/internal/ui/widgets"
)

const (
	noticeTTL   = 3 * time.Second
	rateSamples = 30
)

var (
	tailPresets  = []int64{100, logview.DefaultTail, 10000, 0}
	sincePresets = []int64{0, 300, 3600, 86400}
)

// Deps are the ports the viewer talks to. Workloads, Clipboard and Exporter
// may be nil; the matching actions then report that they are unavailable.
type Deps struct {
	Source    domain.LogSource
	Workloads domain.WorkloadRepo
	Prefs     domain.Preferences
	Clipboard domain.Clipboard
	Exporter  domain.Exporter
	Log       logr.Logger
}

type Options struct {
	Target      logview.Target
	State       logview.ViewState
	PrefsKey    string
	MaxLines    int
	ExportDir   string
	Coordinator []logstream.Option
}

type (
	batchMsg       logstream.Batch
	streamEndMsg   struct{ handle uint64 }
	resubscribeMsg struct{}
	rateTickMsg    struct{}
	podsMsg        []domain.PodInfo
	namespacesMsg  []string
	errMsg         struct{ error }
	noticeMsg      struct {
		text string
		err  bool
	}
	clearNoticeMsg struct{ seq int }
)

// Model is the log viewer. Its log pane is fed by a single subscription at a
// time.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	deps      Deps
	log       logr.Logger
	store     *logview.Store
	session   *logstream.Session
	keys      keyMap
	exportDir string

	logsVP      viewport.Model
	pane        *logview.Pane
	filter      textinput.Model
	filterOpen  bool
	matcher     *logview.Matcher
	matcherText string
	visible     int

	// namespace picker, opened in front of the pod picker
	nsOpen     bool
	nsTable    table.Model
	namespaces []string

	// pod picker
	pickerOpen bool
	picker     table.Model
	pods       []domain.PodInfo
	podsNS     string
	sortBy     string // "cpu"|"mem"

	width, height int

	notice    string
	noticeErr bool
	noticeSeq int

	received int
	rate     []float64
}

func New(deps Deps, opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	coordOpts := append([]logstream.Option{logstream.WithLogger(deps.Log)}, opts.Coordinator...)
	coord := logstream.NewCoordinator(deps.Source, coordOpts...)

	vp := viewport.New(100, 20)
	vp.KeyMap = viewportKeys()

	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "literal text, empty to clear"
	ti.CharLimit = 256

	t := table.New()
	t.SetHeight(12)
	t.SetWidth(100)

	nt := table.New(table.WithColumns([]table.Column{{Title: "NAMESPACE", Width: 40}}))
	nt.SetHeight(12)
	nt.SetWidth(44)

	store := logview.NewStore(opts.Target, opts.State, deps.Prefs, opts.PrefsKey)
	return Model{
		ctx:       ctx,
		cancel:    cancel,
		deps:      deps,
		log:       deps.Log,
		store:     store,
		session:   logstream.NewSession(coord, logstream.NewBuffer(opts.MaxLines)),
		keys:      defaultKeys(),
		exportDir: opts.ExportDir,
		logsVP:    vp,
		pane:      &logview.Pane{},
		filter:    ti,
		nsTable:   nt,
		picker:    t,
		sortBy:    "cpu",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return resubscribeMsg{} },
		rateTick(),
	)
}

// Close releases the subscription. It is safe to call more than once.
func (m Model) Close() {
	m.session.Close()
	m.cancel()
}

func rateTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return rateTickMsg{} })
}

func readNextBatch(h *logstream.Handle) tea.Cmd {
	return func() tea.Msg {
		b, ok := <-h.Batches()
		if !ok {
			return streamEndMsg{handle: h.ID()}
		}
		return batchMsg(b)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerH := lipgloss.Height(m.header())
		footerH := lipgloss.Height(styles.Footer.Render("x"))
		m.logsVP.Width = m.width
		m.logsVP.Height = clamp(m.height-headerH-footerH, 3, m.height)
		m.picker.SetWidth(clamp(m.width-8, 40, m.width))
		m.picker.SetHeight(clamp(m.height-10, 5, 30))
		m.nsTable.SetHeight(clamp(m.height-10, 5, 30))
		m.rebuildPicker()
		m.refresh(0)
		return m, nil

	case resubscribeMsg:
		p, err := m.store.Params()
		if err != nil {
			m.refresh(0)
			return m, nil
		}
		cmd := m.restart(p)
		return m, cmd

	case batchMsg:
		b := logstream.Batch(msg)
		if !m.session.Apply(b) {
			return m, nil
		}
		m.received += len(b.Entries)
		m.refresh(len(b.Entries))
		return m, readNextBatch(m.session.Current())

	case streamEndMsg:
		if h := m.session.Current(); h != nil && h.ID() == msg.handle {
			m.log.V(1).Info("subscription ended", "handle", msg.handle, "state", h.State().String())
		}
		return m, nil

	case rateTickMsg:
		m.rate = append(m.rate, float64(m.received))
		if len(m.rate) > rateSamples {
			m.rate = m.rate[len(m.rate)-rateSamples:]
		}
		m.received = 0
		return m, rateTick()

	case namespacesMsg:
		m.namespaces = msg
		rows := make([]table.Row, len(msg))
		cursor := 0
		for i, ns := range msg {
			rows[i] = table.Row{ns}
			if ns == m.store.Target().Namespace {
				cursor = i
			}
		}
		m.nsTable.SetRows(rows)
		m.nsTable.SetCursor(cursor)
		return m, nil

	case podsMsg:
		m.pods = msg
		sortPods(m.pods, m.sortBy)
		m.rebuildPicker()
		if len(m.pods) > 0 && m.picker.Cursor() >= len(m.pods) {
			m.picker.SetCursor(0)
		}
		return m, nil

	case errMsg:
		m.log.Error(msg.error, "viewer action failed")
		cmd := m.notify(msg.Error(), true)
		return m, cmd

	case noticeMsg:
		cmd := m.notify(msg.text, msg.err)
		return m, cmd

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.logsVP, cmd = m.logsVP.Update(msg)
		m.checkScroll()
		return m, cmd

	case tea.KeyMsg:
		if m.filterOpen {
			return m.updateFilter(msg)
		}
		if m.nsOpen {
			return m.updateNamespaces(msg)
		}
		if m.pickerOpen {
			return m.updatePicker(msg)
		}
		return m.updateViewer(msg)
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		m.filterOpen = false
		m.filter.Blur()
		text := m.filter.Value()
		cmd := m.apply(m.store.Update(func(s *logview.ViewState) { s.FilterText = text }))
		return m, cmd
	case key.Matches(msg, m.keys.Back):
		m.filterOpen = false
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m Model) updateNamespaces(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		i := m.nsTable.Cursor()
		if i < 0 || i >= len(m.namespaces) {
			return m, nil
		}
		m.nsOpen = false
		m.nsTable.Blur()
		m.podsNS = m.namespaces[i]
		m.pods = nil
		m.rebuildPicker()
		m.pickerOpen = true
		m.picker.Focus()
		return m, m.fetchPods(m.podsNS)
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Pods):
		m.nsOpen = false
		m.nsTable.Blur()
		return m, nil
	case msg.String() == "ctrl+c":
		m.Close()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.nsTable, cmd = m.nsTable.Update(msg)
	return m, cmd
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		cmd := m.selectPod()
		return m, cmd
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Pods):
		m.pickerOpen = false
		m.picker.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Sort):
		if m.sortBy == "cpu" {
			m.sortBy = "mem"
		} else {
			m.sortBy = "cpu"
		}
		sortPods(m.pods, m.sortBy)
		m.rebuildPicker()
		return m, nil
	case msg.String() == "ctrl+c":
		m.Close()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) updateViewer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.store.State()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Follow):
		cmd := m.apply(m.store.Update(func(v *logview.ViewState) { v.Follow = !v.Follow }))
		return m, cmd

	case key.Matches(msg, m.keys.PodNames):
		cmd := m.apply(m.store.Update(func(v *logview.ViewState) { v.ViewPodNames = !v.ViewPodNames }))
		return m, cmd

	case key.Matches(msg, m.keys.Timestamps):
		cmd := m.apply(m.store.Update(func(v *logview.ViewState) { v.ViewTimestamps = !v.ViewTimestamps }))
		return m, cmd

	case key.Matches(msg, m.keys.Previous):
		cmd := m.apply(m.store.Update(func(v *logview.ViewState) { v.Previous = !v.Previous }))
		return m, cmd

	case key.Matches(msg, m.keys.Tail):
		next := nextPreset(tailPresets, s.Tail)
		cmd := m.apply(m.store.Update(func(v *logview.ViewState) { v.Tail = next }))
		return m, cmd

	case key.Matches(msg, m.keys.Since):
		next := nextPreset(sincePresets, s.SinceSeconds)
		cmd := m.apply(m.store.Update(func(v *logview.ViewState) { v.SinceSeconds = next }))
		return m, cmd

	case key.Matches(msg, m.keys.Container):
		n := len(m.store.Target().ContainerNames())
		if n == 0 {
			cmd := m.notify("pod has no containers", true)
			return m, cmd
		}
		next := (s.SelectedContainer + 1) % n
		cmd := m.apply(m.store.Update(func(v *logview.ViewState) { v.SelectedContainer = next }))
		return m, cmd

	case key.Matches(msg, m.keys.Highlight):
		pod := nextPod(m.session.Buffer().All(), s.HighlightedPod)
		cmd := m.apply(m.store.Update(func(v *logview.ViewState) { v.HighlightedPod = pod }))
		return m, cmd

	case key.Matches(msg, m.keys.Wrap):
		m.store.SetWrapLines(!m.store.WrapLines())
		m.refresh(0)
		return m, nil

	case key.Matches(msg, m.keys.Dark):
		m.store.SetDarkMode(!m.store.DarkMode())
		m.refresh(0)
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.filterOpen = true
		m.filter.SetValue(s.FilterText)
		m.filter.CursorEnd()
		cmd := m.filter.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd()

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.Pods):
		m.nsOpen = true
		m.nsTable.Focus()
		return m, m.fetchNamespaces()

	case key.Matches(msg, m.keys.Top):
		m.logsVP.GotoTop()
		m.checkScroll()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.logsVP.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logsVP, cmd = m.logsVP.Update(msg)
	m.checkScroll()
	return m, cmd
}

// apply resubscribes when the derived parameters changed and tears the
// stream down when a precondition fails.
func (m *Model) apply(ch logview.Change) tea.Cmd {
	if ch.Err != nil {
		m.session.Close()
		m.session.Buffer().Reset()
		m.pane.Reset()
		m.refresh(0)
		return nil
	}
	if !ch.Resubscribe {
		m.refresh(0)
		return nil
	}
	return m.restart(ch.Params)
}

func (m *Model) restart(p domain.SubscriptionParams) tea.Cmd {
	h := m.session.Restart(m.ctx, p)
	m.pane.Reset()
	m.received = 0
	m.logsVP.GotoTop()
	m.refresh(0)
	return readNextBatch(h)
}

// refresh brings the log pane up to date with the buffer. Only entries that
// arrived since the last call are formatted unless a display option changed.
func (m *Model) refresh(appended int) {
	if _, err := m.store.Params(); err != nil {
		m.visible = 0
		m.logsVP.SetContent("")
		return
	}
	s := m.store.State()
	if m.matcher == nil || s.FilterText != m.matcherText {
		m.matcher = logview.Compile(s.FilterText)
		m.matcherText = s.FilterText
	}
	m.pane.Sync(m.session.Buffer(), logview.RenderOptions{
		ViewPodNames:   s.ViewPodNames,
		ViewTimestamps: s.ViewTimestamps,
		HighlightedPod: s.HighlightedPod,
		Matcher:        m.matcher,
	}, logview.FormatOptions{
		Theme:           styles.ThemeFor(m.store.DarkMode()),
		Width:           m.logsVP.Width,
		Wrap:            m.store.WrapLines(),
		PodGutter:       s.ViewPodNames,
		TimestampGutter: s.ViewTimestamps && !s.ViewPodNames,
	})
	m.visible = m.pane.Len()
	m.logsVP.SetContent(m.pane.Text())
	if logview.ScrollSignal(s, appended) {
		m.logsVP.GotoBottom()
	}
}

// checkScroll stops auto-scroll once the user leaves the bottom while lines
// are still arriving.
func (m *Model) checkScroll() {
	if !m.logsVP.AtBottom() {
		m.store.UserScrolledUp(m.streaming())
	}
}

func (m *Model) streaming() bool {
	h := m.session.Current()
	if h == nil || !h.Params().Follow {
		return false
	}
	switch h.State() {
	case logstream.StateSubscribing, logstream.StateStreaming, logstream.StateRetrying:
		return true
	}
	return false
}

func (m *Model) notify(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	seq := m.noticeSeq
	m.notice, m.noticeErr = text, isErr
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}

func (m Model) copyCmd() tea.Cmd {
	clip := m.deps.Clipboard
	buf := m.session.Buffer()
	text, n := buf.Text(), buf.Len()
	return func() tea.Msg {
		if clip == nil {
			return noticeMsg{text: "clipboard unavailable", err: true}
		}
		if n == 0 {
			return noticeMsg{text: "nothing to copy", err: true}
		}
		if err := clip.Copy(text); err != nil {
			return noticeMsg{text: "copy failed: " + err.Error(), err: true}
		}
		return noticeMsg{text: fmt.Sprintf("copied %d lines", n)}
	}
}

func (m Model) exportCmd() tea.Cmd {
	exp := m.deps.Exporter
	p, err := m.store.Params()
	ctx, dir := m.ctx, m.exportDir
	return func() tea.Msg {
		if exp == nil {
			return noticeMsg{text: "export unavailable", err: true}
		}
		if err != nil {
			return noticeMsg{text: "export failed: " + err.Error(), err: true}
		}
		path, err := exp.Dump(ctx, p, dir)
		if err != nil {
			return noticeMsg{text: "export failed: " + err.Error(), err: true}
		}
		return noticeMsg{text: fmt.Sprintf("saved %s • %s", path, exp.URL(p))}
	}
}

func (m Model) fetchNamespaces() tea.Cmd {
	repo := m.deps.Workloads
	ctx := m.ctx
	return func() tea.Msg {
		if repo == nil {
			return errMsg{errors.New("namespace listing unavailable")}
		}
		ns, err := repo.ListNamespaces(ctx)
		if err != nil {
			return errMsg{fmt.Errorf("list namespaces: %w", err)}
		}
		return namespacesMsg(ns)
	}
}

func (m Model) fetchPods(ns string) tea.Cmd {
	repo := m.deps.Workloads
	ctx := m.ctx
	return func() tea.Msg {
		if repo == nil {
			return errMsg{errors.New("pod listing unavailable")}
		}
		pods, err := repo.ListPods(ctx, ns, "")
		if err != nil {
			return errMsg{fmt.Errorf("list pods: %w", err)}
		}
		return podsMsg(pods)
	}
}

func (m *Model) selectPod() tea.Cmd {
	i := m.picker.Cursor()
	if i < 0 || i >= len(m.pods) {
		return nil
	}
	p := m.pods[i]
	m.pickerOpen = false
	m.picker.Blur()
	cur := m.store.Target()
	return m.apply(m.store.SetTarget(logview.Target{
		ApplicationName: cur.ApplicationName,
		Namespace:       p.Namespace,
		PodName:         p.PodName,
		Containers:      p.Containers,
		InitContainers:  p.InitContainers,
	}))
}

func (m *Model) rebuildPicker() {
	wPod, wReady, wCPU, wCPUBar, wMem, wMemBar, wNode := podColWidths(m.picker.Width())
	cols := []table.Column{
		{Title: "POD", Width: wPod},
		{Title: "READY", Width: wReady},
		{Title: "CPU", Width: wCPU},
		{Title: "", Width: wCPUBar},
		{Title: "MEM", Width: wMem},
		{Title: "", Width: wMemBar},
		{Title: "NODE", Width: wNode},
	}

	var peakCPU, peakMem float64
	for _, p := range m.pods {
		peakCPU = max(peakCPU, float64(p.CPUm))
		peakMem = max(peakMem, float64(p.MemBytes))
	}

	rows := make([]table.Row, 0, len(m.pods))
	for _, p := range m.pods {
		name := p.PodName
		if m.podsNS == domain.AllNamespaces {
			name = p.Namespace + "/" + p.PodName
		}
		rows = append(rows, table.Row{
			name,
			p.Ready,
			fmt.Sprintf("%4dm", p.CPUm),
			usageBar(float64(p.CPUm), float64(p.CPUReqm), peakCPU, wCPUBar-1),
			formatMem(p.MemBytes),
			usageBar(float64(p.MemBytes), float64(p.MemReqBytes), peakMem, wMemBar-1),
			p.NodeName,
		})
	}
	m.picker.SetColumns(cols)
	m.picker.SetRows(rows)
}

func (m Model) header() string {
	t := m.store.Target()
	s := m.store.State()

	subject := t.PodName
	if subject == "" && t.Resource.Name != "" {
		subject = t.Resource.Kind + "/" + t.Resource.Name
	}
	state := "idle"
	if h := m.session.Current(); h != nil {
		state = h.State().String()
	}
	var flags []string
	if s.Follow {
		flags = append(flags, "follow")
	}
	if s.Previous {
		flags = append(flags, "previous")
	}
	if s.FilterText != "" {
		flags = append(flags, fmt.Sprintf("filter=%q", s.FilterText))
	}
	if s.HighlightedPod != "" {
		flags = append(flags, "highlight="+s.HighlightedPod)
	}

	buf := m.session.Buffer()
	lines := fmt.Sprintf("lines: %d/%d", m.visible, buf.Len())
	if d := buf.Dropped(); d > 0 {
		lines += fmt.Sprintf(" (dropped %d)", d)
	}

	return styles.Header.Render(fmt.Sprintf("ktail │ ns: %s  %s  ctr: %s │ %s │ tail: %s  since: %s  %s │ %s %s",
		t.Namespace, subject, t.Container(s.SelectedContainer), state,
		formatTail(s.Tail), formatSince(s.SinceSeconds), strings.Join(flags, " "),
		lines, widgets.Spark(normalize(m.rate), 16),
	))
}

func preconditionText(err error) string {
	switch {
	case errors.Is(err, logview.ErrNoContainer):
		return "No container to show. Press [o] to pick a pod or pass --container."
	case errors.Is(err, logview.ErrNoTarget):
		return "No pod selected. Press [o] to pick one."
	}
	return err.Error()
}

// emptyText explains an empty log pane.
func (m Model) emptyText() string {
	if f := m.store.State().FilterText; f != "" && m.session.Buffer().Len() > 0 {
		return fmt.Sprintf("No lines match %q.", f)
	}
	return "Waiting for log lines…"
}

func (m Model) View() string {
	head := m.header()

	body := m.logsVP.View()
	if _, err := m.store.Params(); err != nil {
		body = lipgloss.Place(m.logsVP.Width, m.logsVP.Height, lipgloss.Center, lipgloss.Center,
			styles.Warn.Render(preconditionText(err)))
	} else if m.visible == 0 {
		body = lipgloss.Place(m.logsVP.Width, m.logsVP.Height, lipgloss.Center, lipgloss.Center,
			styles.Faint.Render(m.emptyText()))
	}

	var footer string
	switch {
	case m.filterOpen:
		footer = m.filter.View()
	case m.notice != "" && m.noticeErr:
		footer = styles.Danger.Render(m.notice)
	case m.notice != "":
		footer = styles.Good.Render(m.notice)
	default:
		footer = styles.Footer.Render(helpLine(m.keys.help()))
	}

	if m.nsOpen {
		box := styles.Box.
			BorderForeground(lipgloss.Color("#7DCE13")).
			Width(m.nsTable.Width() + 4)
		title := styles.Title.Render(" Namespace (↑/↓, Enter, Esc) ")
		content := lipgloss.JoinVertical(lipgloss.Left, title, m.nsTable.View())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(content))
	}
	if m.pickerOpen {
		box := styles.Box.
			BorderForeground(lipgloss.Color("#7DCE13")).
			Width(m.picker.Width() + 4)
		title := styles.Title.Render(fmt.Sprintf(" Pods in %s (↑/↓, Enter, [s] sort: %s, Esc) ", m.podsNS, m.sortBy))
		content := lipgloss.JoinVertical(lipgloss.Left, title, m.picker.View())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(content))
	}
	return lipgloss.JoinVertical(lipgloss.Left, head, body, footer)
}
