package domain

import "context"

// LogSource opens a log stream for the given parameters. The entries channel is
// closed when the stream ends; the error channel receives at most one error
// before that happens. Cancelling ctx stops delivery.
type LogSource interface {
	StreamLogs(ctx context.Context, p SubscriptionParams) (<-chan LogEntry, <-chan error)
}

// AllNamespaces is the pseudo namespace that lists pods cluster-wide. It is
// listed first by WorkloadRepo.ListNamespaces.
const AllNamespaces = "all"

type WorkloadRepo interface {
	ListPods(ctx context.Context, ns string, selector string) ([]PodInfo, error)
	ListNamespaces(ctx context.Context) ([]string, error)
	GetPod(ctx context.Context, ns, name string) (PodInfo, error)
}

// Preferences reads are served from cache; writes are fire-and-forget.
type Preferences interface {
	Get(key string) ViewPreferences
	Set(key string, p ViewPreferences)
}

type Exporter interface {
	URL(p SubscriptionParams) string
	Dump(ctx context.Context, p SubscriptionParams, dir string) (string, error)
}

type Clipboard interface {
	Copy(text string) error
}
