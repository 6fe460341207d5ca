package logview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

type memPrefs struct {
	data map[string]domain.ViewPreferences
	sets int
}

func (m *memPrefs) Get(key string) domain.ViewPreferences { return m.data[key] }
func (m *memPrefs) Set(key string, p domain.ViewPreferences) {
	m.data[key] = p
	m.sets++
}

func testTarget() Target {
	return Target{
		ApplicationName: "guestbook",
		Namespace:       "default",
		PodName:         "guestbook-ui-1",
		Containers:      []string{"ui", "sidecar"},
		InitContainers:  []string{"migrate"},
	}
}

func TestDeriveParams(t *testing.T) {
	s := DefaultViewState()
	s.FilterText = "ERROR"
	s.SelectedContainer = 2

	p, err := DeriveParams(testTarget(), s)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionParams{
		ApplicationName: "guestbook",
		Namespace:       "default",
		PodName:         "guestbook-ui-1",
		ContainerName:   "migrate",
		Tail:            DefaultTail,
		Follow:          true,
		Filter:          "ERROR",
	}, p)
}

func TestDeriveParamsPreconditions(t *testing.T) {
	_, err := DeriveParams(Target{}, DefaultViewState())
	assert.ErrorIs(t, err, ErrNoTarget)

	_, err = DeriveParams(Target{PodName: "p"}, DefaultViewState())
	assert.ErrorIs(t, err, ErrNoContainer)

	s := DefaultViewState()
	s.SelectedContainer = 9
	_, err = DeriveParams(testTarget(), s)
	assert.ErrorIs(t, err, ErrNoContainer)

	p, err := DeriveParams(Target{Resource: domain.ResourceRef{Kind: "Deployment", Name: "api"}, Containers: []string{"api"}}, DefaultViewState())
	require.NoError(t, err)
	assert.Empty(t, p.PodName)
	assert.Equal(t, "api", p.ContainerName)
}

func TestStoreResubscribesOnlyOnParameterChanges(t *testing.T) {
	cases := []struct {
		name        string
		mutate      func(*ViewState)
		resubscribe bool
	}{
		{"pod names", func(v *ViewState) { v.ViewPodNames = true }, false},
		{"timestamps", func(v *ViewState) { v.ViewTimestamps = true }, false},
		{"highlight", func(v *ViewState) { v.HighlightedPod = "x" }, false},
		{"no-op", func(v *ViewState) {}, false},
		{"follow", func(v *ViewState) { v.Follow = false }, true},
		{"previous", func(v *ViewState) { v.Previous = true }, true},
		{"tail", func(v *ViewState) { v.Tail = 50 }, true},
		{"since", func(v *ViewState) { v.SinceSeconds = 300 }, true},
		{"filter", func(v *ViewState) { v.FilterText = "warn" }, true},
		{"container", func(v *ViewState) { v.SelectedContainer = 1 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore(testTarget(), DefaultViewState(), nil, "k")
			ch := s.Update(tc.mutate)
			require.NoError(t, ch.Err)
			assert.Equal(t, tc.resubscribe, ch.Resubscribe)
			p, err := s.Params()
			require.NoError(t, err)
			assert.Equal(t, ch.Params, p)
		})
	}
}

func TestStorePodNamesAndTimestampsAreExclusive(t *testing.T) {
	s := NewStore(testTarget(), DefaultViewState(), nil, "k")
	s.Update(func(v *ViewState) { v.ViewTimestamps = true })
	assert.True(t, s.State().ViewTimestamps)

	s.Update(func(v *ViewState) { v.ViewPodNames = true })
	assert.True(t, s.State().ViewPodNames)
	assert.False(t, s.State().ViewTimestamps)

	s.Update(func(v *ViewState) { v.ViewTimestamps = true })
	assert.False(t, s.State().ViewPodNames)

	initial := DefaultViewState()
	initial.ViewPodNames, initial.ViewTimestamps = true, true
	assert.False(t, NewStore(testTarget(), initial, nil, "k").State().ViewTimestamps)
}

func TestStoreClampsNegativeNumbers(t *testing.T) {
	s := NewStore(testTarget(), DefaultViewState(), nil, "k")
	s.Update(func(v *ViewState) {
		v.Tail = -5
		v.SinceSeconds = -1
	})
	assert.Zero(t, s.State().Tail)
	assert.Zero(t, s.State().SinceSeconds)
}

func TestStoreSetTarget(t *testing.T) {
	s := NewStore(Target{}, DefaultViewState(), nil, "k")
	_, err := s.Params()
	assert.ErrorIs(t, err, ErrNoTarget)

	ch := s.SetTarget(testTarget())
	require.NoError(t, ch.Err)
	assert.True(t, ch.Resubscribe)

	s.Update(func(v *ViewState) { v.SelectedContainer = 2 })
	ch = s.SetTarget(Target{Namespace: "default", PodName: "other", Containers: []string{"main"}})
	require.NoError(t, ch.Err)
	assert.Equal(t, "main", ch.Params.ContainerName)
	assert.Zero(t, s.State().SelectedContainer)

	ch = s.SetTarget(Target{PodName: "bare"})
	assert.ErrorIs(t, ch.Err, ErrNoContainer)
	assert.False(t, ch.Resubscribe)
}

func TestStorePreferences(t *testing.T) {
	prefs := &memPrefs{data: map[string]domain.ViewPreferences{"app/pod": {DarkMode: true}}}
	s := NewStore(testTarget(), DefaultViewState(), prefs, "app/pod")
	assert.True(t, s.DarkMode())
	assert.False(t, s.WrapLines())

	s.SetWrapLines(true)
	s.SetDarkMode(false)
	assert.Equal(t, domain.ViewPreferences{WrapLines: true}, prefs.data["app/pod"])
	assert.Equal(t, 2, prefs.sets)

	mem := NewStore(testTarget(), DefaultViewState(), nil, "")
	mem.SetDarkMode(true)
	assert.True(t, mem.DarkMode())
}
