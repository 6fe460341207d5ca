// Package config turns ktail's Cobra/Viper flag values into a typed struct the
// viewer and the adapters consume.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/HaPhanBaoMinh/ktail/help"
	"github.com/HaPhanBaoMinh/ktail/internal/domain"
	"github.com/HaPhanBaoMinh/ktail/internal/logging"
	"github.com/HaPhanBaoMinh/ktail/internal/logview"
)

// DefaultMaxLines caps the in-memory buffer of a viewer.
const DefaultMaxLines = 10000

var ErrPodAndResource = errors.New("--pod cannot be combined with --kind/--name")

// Options holds all CLI configuration of a ktail run.
type Options struct {
	KubeConfigPath string
	Context        string
	Namespace      string
	App            string
	Pod            string
	Container      string
	Kind           string
	Group          string
	Name           string
	TailLines      int64
	SinceRaw       string
	Since          time.Duration
	Follow         bool
	Previous       bool
	Filter         string
	Timestamps     bool
	PodNames       bool
	MaxLines       int
	Mock           bool
	Plain          bool
	Server         string
	PrefsFile      string
	LogLevel       string
	LogFile        string
}

// NewOptions returns Options with defaults applied.
func NewOptions() *Options {
	return &Options{
		TailLines: logview.DefaultTail,
		Follow:    true,
		MaxLines:  DefaultMaxLines,
		LogLevel:  "info",
		Server:    "http://localhost:8080",
		LogFile:   help.StateFile("ktail.log"),
		PrefsFile: help.StateFile("prefs.yaml"),
	}
}

// BindFlags attaches ktail flags to fs and returns their names.
func (o *Options) BindFlags(fs *pflag.FlagSet) []string {
	var names []string
	add := func(name string) { names = append(names, name) }

	fs.StringVar(&o.KubeConfigPath, "kubeconfig", o.KubeConfigPath, "Path to the kubeconfig file to use")
	add("kubeconfig")
	fs.StringVar(&o.Context, "context", o.Context, "Name of the kubeconfig context to use")
	add("context")
	fs.StringVarP(&o.Namespace, "namespace", "n", o.Namespace, "Namespace of the pod or resource. Defaults to the context namespace")
	add("namespace")
	fs.StringVar(&o.App, "app", o.App, "Application name used for preferences and export links")
	add("app")
	fs.StringVar(&o.Pod, "pod", o.Pod, "Pod to tail")
	add("pod")
	fs.StringVarP(&o.Container, "container", "c", o.Container, "Container to tail. Defaults to the first container")
	add("container")
	fs.StringVar(&o.Kind, "kind", o.Kind, "Kind of the resource whose pods are tailed (Deployment, StatefulSet, DaemonSet, ReplicaSet, Job)")
	add("kind")
	fs.StringVar(&o.Group, "group", o.Group, "API group of the resource")
	add("group")
	fs.StringVar(&o.Name, "name", o.Name, "Name of the resource whose pods are tailed")
	add("name")
	fs.Int64Var(&o.TailLines, "tail", o.TailLines, "Number of historic lines to request, 0 for all")
	add("tail")
	fs.StringVar(&o.SinceRaw, "since", o.SinceRaw, "Only return logs newer than a relative duration like 5s, 2m, or 3h")
	add("since")
	fs.BoolVarP(&o.Follow, "follow", "f", o.Follow, "Follow log output")
	add("follow")
	fs.BoolVarP(&o.Previous, "previous", "p", o.Previous, "Show logs of the previous container instance")
	add("previous")
	fs.StringVar(&o.Filter, "filter", o.Filter, "Only show lines containing this literal text")
	add("filter")
	fs.BoolVar(&o.Timestamps, "timestamps", o.Timestamps, "Show the timestamp gutter")
	add("timestamps")
	fs.BoolVar(&o.PodNames, "pod-names", o.PodNames, "Show the pod name gutter")
	add("pod-names")
	fs.IntVar(&o.MaxLines, "max-lines", o.MaxLines, "Lines kept in memory, 0 for unbounded")
	add("max-lines")
	fs.BoolVar(&o.Mock, "mock", o.Mock, "Use a fake cluster")
	add("mock")
	fs.BoolVar(&o.Plain, "plain", o.Plain, "Print lines to stdout instead of starting the viewer")
	add("plain")
	fs.StringVar(&o.Server, "server", o.Server, "Base URL used for export links")
	add("server")
	fs.StringVar(&o.PrefsFile, "prefs-file", o.PrefsFile, "Where display preferences are stored, empty to keep them in memory")
	add("prefs-file")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level (trace, debug, info, warn, error)")
	add("log-level")
	fs.StringVar(&o.LogFile, "log-file", o.LogFile, "File ktail writes its own logs to, empty to discard")
	add("log-file")
	return names
}

var kindAliases = map[string]string{
	"pod": "Pod", "po": "Pod", "pods": "Pod",
	"deployment": "Deployment", "deploy": "Deployment", "deployments": "Deployment",
	"statefulset": "StatefulSet", "sts": "StatefulSet", "statefulsets": "StatefulSet",
	"daemonset": "DaemonSet", "ds": "DaemonSet", "daemonsets": "DaemonSet",
	"replicaset": "ReplicaSet", "rs": "ReplicaSet", "replicasets": "ReplicaSet",
	"job": "Job", "jobs": "Job",
}

// Validate checks values and fills derived fields.
func (o *Options) Validate() error {
	if o.TailLines < 0 {
		return fmt.Errorf("--tail cannot be negative")
	}
	if o.MaxLines < 0 {
		return fmt.Errorf("--max-lines cannot be negative")
	}
	if o.SinceRaw != "" {
		dur, err := time.ParseDuration(o.SinceRaw)
		if err != nil {
			return fmt.Errorf("invalid since duration %q: %w", o.SinceRaw, err)
		}
		if dur < 0 {
			return fmt.Errorf("--since cannot be negative")
		}
		o.Since = dur
	}
	if o.PodNames && o.Timestamps {
		return fmt.Errorf("--pod-names and --timestamps are mutually exclusive")
	}
	if o.Kind != "" {
		kind, ok := kindAliases[strings.ToLower(o.Kind)]
		if !ok {
			return fmt.Errorf("unsupported --kind %q", o.Kind)
		}
		o.Kind = kind
		if o.Name == "" {
			return fmt.Errorf("--kind requires --name")
		}
	}
	if o.Name != "" && o.Kind == "" {
		o.Kind = "Deployment"
	}
	if o.Pod != "" && o.Name != "" {
		return ErrPodAndResource
	}
	if o.Plain && o.Pod == "" && o.Name == "" {
		return fmt.Errorf("--plain requires --pod or --name")
	}
	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	if o.App == "" {
		o.App = o.Name
		if o.App == "" {
			o.App = o.Pod
		}
	}
	return nil
}

// Resource is the workload selected by --kind/--group/--name.
func (o *Options) Resource() domain.ResourceRef {
	return domain.ResourceRef{Group: o.Group, Kind: o.Kind, Name: o.Name}
}

// ViewState is the initial view state of the viewer.
func (o *Options) ViewState() logview.ViewState {
	s := logview.DefaultViewState()
	s.Follow = o.Follow
	s.ScrollToBottom = o.Follow
	s.Previous = o.Previous
	s.Tail = o.TailLines
	// The API takes whole seconds; a sub-second window rounds up to one.
	s.SinceSeconds = int64((o.Since + time.Second - 1) / time.Second)
	s.FilterText = o.Filter
	s.ViewTimestamps = o.Timestamps
	s.ViewPodNames = o.PodNames
	return s
}
