package logview

import (
	"errors"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

var (
	ErrNoTarget    = errors.New("no pod or resource selected")
	ErrNoContainer = errors.New("no container name resolved")
)

// DefaultTail is the number of historical lines requested when the user has
// not chosen one.
const DefaultTail int64 = 1000

// ViewState holds the user-adjustable settings of one viewer.
type ViewState struct {
	ViewPodNames      bool
	ViewTimestamps    bool
	Follow            bool
	Previous          bool
	Tail              int64
	SinceSeconds      int64
	FilterText        string
	ScrollToBottom    bool
	HighlightedPod    string
	SelectedContainer int // index over containers followed by init containers
}

func DefaultViewState() ViewState {
	return ViewState{
		Follow:         true,
		Tail:           DefaultTail,
		ScrollToBottom: true,
	}
}

// Target is what the viewer is attached to.
type Target struct {
	ApplicationName string
	Namespace       string
	PodName         string
	Resource        domain.ResourceRef
	Containers      []string
	InitContainers  []string
}

// ContainerNames lists regular containers followed by init containers.
func (t Target) ContainerNames() []string {
	out := make([]string, 0, len(t.Containers)+len(t.InitContainers))
	out = append(out, t.Containers...)
	return append(out, t.InitContainers...)
}

// Container resolves the i-th name of ContainerNames, or "" when out of range.
func (t Target) Container(i int) string {
	names := t.ContainerNames()
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}

// DeriveParams computes the subscription parameters for a target and state.
func DeriveParams(t Target, s ViewState) (domain.SubscriptionParams, error) {
	if t.PodName == "" && t.Resource.Name == "" {
		return domain.SubscriptionParams{}, ErrNoTarget
	}
	container := t.Container(s.SelectedContainer)
	if container == "" {
		return domain.SubscriptionParams{}, ErrNoContainer
	}
	return domain.SubscriptionParams{
		ApplicationName: t.ApplicationName,
		Namespace:       t.Namespace,
		PodName:         t.PodName,
		Resource:        t.Resource,
		ContainerName:   container,
		Tail:            s.Tail,
		Follow:          s.Follow,
		SinceSeconds:    s.SinceSeconds,
		Filter:          s.FilterText,
		Previous:        s.Previous,
	}, nil
}

// Change is the outcome of a state or target update.
type Change struct {
	Params      domain.SubscriptionParams
	Resubscribe bool  // derived parameters differ from the previous ones
	Err         error // precondition failure; no subscription should be open
}

// Store owns the view state of one viewer and re-derives subscription
// parameters whenever it changes.
type Store struct {
	target    Target
	state     ViewState
	prefs     domain.Preferences
	prefsKey  string
	view      domain.ViewPreferences
	params    domain.SubscriptionParams
	paramsErr error
}

// NewStore builds a store. prefs may be nil, in which case dark mode and wrap
// lines live only in memory.
func NewStore(target Target, initial ViewState, prefs domain.Preferences, prefsKey string) *Store {
	s := &Store{target: target, prefs: prefs, prefsKey: prefsKey}
	if prefs != nil {
		s.view = prefs.Get(prefsKey)
	}
	if initial.ViewPodNames {
		initial.ViewTimestamps = false
	}
	s.state = initial
	s.params, s.paramsErr = DeriveParams(s.target, s.state)
	return s
}

func (s *Store) State() ViewState { return s.state }
func (s *Store) Target() Target   { return s.target }

// Params returns the parameters derived from the current state.
func (s *Store) Params() (domain.SubscriptionParams, error) { return s.params, s.paramsErr }

// Update applies mutate and normalizes the result: enabling pod names turns
// timestamps off (and the reverse), and toggling follow re-arms auto-scroll.
func (s *Store) Update(mutate func(*ViewState)) Change {
	prev := s.state
	next := prev
	mutate(&next)
	if next.ViewPodNames && !prev.ViewPodNames {
		next.ViewTimestamps = false
	}
	if next.ViewTimestamps && !prev.ViewTimestamps {
		next.ViewPodNames = false
	}
	if next.Follow != prev.Follow {
		next.ScrollToBottom = next.Follow
	}
	if next.Tail < 0 {
		next.Tail = 0
	}
	if next.SinceSeconds < 0 {
		next.SinceSeconds = 0
	}
	s.state = next
	return s.rederive()
}

// SetTarget attaches the store to another pod or resource.
func (s *Store) SetTarget(t Target) Change {
	s.target = t
	if n := len(t.ContainerNames()); s.state.SelectedContainer >= n {
		s.state.SelectedContainer = 0
	}
	return s.rederive()
}

// UserScrolledUp disables auto-scroll while content is still arriving.
func (s *Store) UserScrolledUp(streaming bool) {
	if streaming {
		s.state.ScrollToBottom = false
	}
}

func (s *Store) rederive() Change {
	p, err := DeriveParams(s.target, s.state)
	changed := p != s.params || !errors.Is(err, s.paramsErr)
	s.params, s.paramsErr = p, err
	return Change{Params: p, Err: err, Resubscribe: changed && err == nil}
}

func (s *Store) DarkMode() bool  { return s.view.DarkMode }
func (s *Store) WrapLines() bool { return s.view.WrapLines }

func (s *Store) SetDarkMode(v bool) {
	s.view.DarkMode = v
	s.savePrefs()
}

func (s *Store) SetWrapLines(v bool) {
	s.view.WrapLines = v
	s.savePrefs()
}

func (s *Store) savePrefs() {
	if s.prefs != nil {
		s.prefs.Set(s.prefsKey, s.view)
	}
}
