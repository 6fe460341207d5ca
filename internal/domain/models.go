package domain

import "time"

// LogEntry is one line received from the log source. Entries are never mutated
// after they are received.
type LogEntry struct {
	PodName      string
	Content      string
	TimeStamp    time.Time
	TimeStampStr string // RFC3339, as sent by the source
}

// ResourceRef identifies the workload whose pods are tailed when no single pod
// is selected.
type ResourceRef struct {
	Group string
	Kind  string // "Pod","Deployment","StatefulSet"...
	Name  string
}

// SubscriptionParams fully determines a requested log stream. The source cannot
// apply deltas, so any difference means closing the stream and opening a new one.
type SubscriptionParams struct {
	ApplicationName string
	Namespace       string
	PodName         string // empty -> all pods of Resource
	Resource        ResourceRef
	ContainerName   string
	Tail            int64 // <= 0 means no limit
	Follow          bool
	SinceSeconds    int64 // <= 0 means from the beginning
	Filter          string
	Previous        bool
}

// PodInfo is a row of the pod picker.
type PodInfo struct {
	Namespace      string
	PodName        string
	NodeName       string
	Phase          string // Running, Pending...
	Ready          string // "1/1", "2/3", ...
	Containers     []string
	InitContainers []string
	CPUm           int   // millicores used
	MemBytes       int64 // bytes used
	CPUReqm        int   // request cpu
	MemReqBytes    int64 // request mem
}

// ViewPreferences are the durable toggles owned by the preferences store.
type ViewPreferences struct {
	DarkMode  bool `yaml:"darkMode"`
	WrapLines bool `yaml:"wrapLines"`
}
