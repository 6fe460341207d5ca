package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptionsDefaults(t *testing.T) {
	opts := NewOptions()
	assert.True(t, opts.Follow)
	assert.Equal(t, int64(1000), opts.TailLines)
	assert.Equal(t, DefaultMaxLines, opts.MaxLines)
	assert.Equal(t, "info", opts.LogLevel)
	require.NoError(t, opts.Validate())
}

func TestBindFlags(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("ktail", pflag.ContinueOnError)
	names := opts.BindFlags(fs)
	assert.Contains(t, names, "pod-names")
	assert.Len(t, names, 23)

	require.NoError(t, fs.Parse([]string{"-n", "demo", "--pod", "api-1", "-c", "api", "--tail", "20", "--since", "5m", "-p", "--follow=false"}))
	require.NoError(t, opts.Validate())
	assert.Equal(t, "demo", opts.Namespace)
	assert.Equal(t, 5*time.Minute, opts.Since)
	assert.Equal(t, "api-1", opts.App)

	s := opts.ViewState()
	assert.Equal(t, int64(20), s.Tail)
	assert.Equal(t, int64(300), s.SinceSeconds)
	assert.True(t, s.Previous)
	assert.False(t, s.Follow)
	assert.False(t, s.ScrollToBottom)
}

func TestSinceRoundsUpToWholeSeconds(t *testing.T) {
	for raw, want := range map[string]int64{"": 0, "500ms": 1, "1s": 1, "1500ms": 2, "2m": 120} {
		opts := NewOptions()
		opts.SinceRaw = raw
		require.NoError(t, opts.Validate(), raw)
		assert.Equal(t, want, opts.ViewState().SinceSeconds, raw)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Options)
	}{
		{"negative tail", func(o *Options) { o.TailLines = -1 }},
		{"negative max lines", func(o *Options) { o.MaxLines = -5 }},
		{"bad since", func(o *Options) { o.SinceRaw = "yesterday" }},
		{"negative since", func(o *Options) { o.SinceRaw = "-5m" }},
		{"gutters", func(o *Options) { o.PodNames, o.Timestamps = true, true }},
		{"unknown kind", func(o *Options) { o.Kind, o.Name = "CronJob", "x" }},
		{"kind without name", func(o *Options) { o.Kind = "deploy" }},
		{"pod and resource", func(o *Options) { o.Pod, o.Name = "a", "b" }},
		{"plain without target", func(o *Options) { o.Plain = true }},
		{"log level", func(o *Options) { o.LogLevel = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := NewOptions()
			tc.mutate(opts)
			assert.Error(t, opts.Validate())
		})
	}
}

func TestValidateNormalizesKind(t *testing.T) {
	opts := NewOptions()
	opts.Kind, opts.Name = "sts", "db"
	require.NoError(t, opts.Validate())
	assert.Equal(t, "StatefulSet", opts.Resource().Kind)
	assert.Equal(t, "db", opts.App)

	opts = NewOptions()
	opts.Name = "api"
	require.NoError(t, opts.Validate())
	assert.Equal(t, "Deployment", opts.Kind)
}
