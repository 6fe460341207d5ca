package mock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
	"github.com/HaPhanBaoMinh/ktail/internal/logview"
)

// ErrInjected is returned by streams cut short by FailEvery.
var ErrInjected = errors.New("mock: stream interrupted")

type fixture struct {
	name, ctn, node string
}

var pods = []fixture{
	{"api-7cfb9d9c9c-9tghd", "api", "ip-10-0-1-5"},
	{"api-7cfb9d9c9c-sj2lq", "api", "ip-10-0-1-12"},
	{"worker-5f7dcbffd6-2jqkz", "worker", "ip-10-0-2-3"},
	{"cart-6d79f8b5f7-m2x8l", "cart", "ip-10-0-2-7"},
}

var messages = []string{
	"GET /api/orders 200 12ms",
	"GET /healthz 200 1ms",
	"POST /api/orders 201 48ms",
	"cache hit key=order:%d",
	"WARN queue lag=%dms",
	"ERROR db timeout op=save_order retry=%d",
}

// Repo fakes a cluster for demos and tests. It serves both domain.LogSource
// and domain.WorkloadRepo.
type Repo struct {
	Interval  time.Duration // between followed lines
	FailEvery int           // when > 0, every stream fails after that many lines

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func New() *Repo {
	src := rand.NewSource(time.Now().UnixNano())
	return &Repo{Interval: 500 * time.Millisecond, rnd: rand.New(src), now: time.Now}
}

// -------- LogSource --------

func (r *Repo) StreamLogs(ctx context.Context, p domain.SubscriptionParams) (<-chan domain.LogEntry, <-chan error) {
	out := make(chan domain.LogEntry)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		if err := r.stream(ctx, p, out); err != nil && ctx.Err() == nil {
			errc <- err
		}
	}()
	return out, errc
}

func (r *Repo) stream(ctx context.Context, p domain.SubscriptionParams, out chan<- domain.LogEntry) error {
	names := r.podsFor(p)
	if len(names) == 0 {
		return fmt.Errorf("mock: no pods for %s/%s", p.Resource.Kind, p.Resource.Name)
	}
	match := logview.Compile(p.Filter)
	sent := 0
	emit := func(e domain.LogEntry) error {
		if !match.Test(e.Content) {
			return nil
		}
		if r.FailEvery > 0 && sent >= r.FailEvery {
			return ErrInjected
		}
		select {
		case out <- e:
			sent++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	history := p.Tail
	if history <= 0 || history > 50 {
		history = 50
	}
	start := r.now().Add(-time.Duration(history) * time.Second)
	for i := int64(0); i < history; i++ {
		if err := emit(r.entry(names, p, int(i), start.Add(time.Duration(i)*time.Second))); err != nil {
			return err
		}
	}
	if !p.Follow || p.Previous {
		return nil
	}

	tick := time.NewTicker(r.Interval)
	defer tick.Stop()
	for i := int(history); ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case ts := <-tick.C:
			if err := emit(r.entry(names, p, i, ts)); err != nil {
				return err
			}
		}
	}
}

func (r *Repo) entry(names []string, p domain.SubscriptionParams, i int, ts time.Time) domain.LogEntry {
	r.mu.Lock()
	pod := names[r.rnd.Intn(len(names))]
	msg := messages[r.rnd.Intn(len(messages))]
	n := r.rnd.Intn(400)
	r.mu.Unlock()

	if strings.Contains(msg, "%d") {
		msg = fmt.Sprintf(msg, n)
	}
	if p.Previous {
		msg = "[previous] " + msg
	}
	ts = ts.UTC().Truncate(time.Second)
	return domain.LogEntry{
		PodName:      pod,
		Content:      fmt.Sprintf("%s #%d", msg, i),
		TimeStamp:    ts,
		TimeStampStr: ts.Format(time.RFC3339),
	}
}

// podsFor resolves the fixture pods a subscription covers. Resources match
// pods by name prefix, the way generated pod names do.
func (r *Repo) podsFor(p domain.SubscriptionParams) []string {
	if p.PodName != "" {
		return []string{p.PodName}
	}
	var out []string
	for _, f := range pods {
		if p.Resource.Name != "" && strings.HasPrefix(f.name, p.Resource.Name+"-") {
			out = append(out, f.name)
		}
	}
	return out
}

// -------- WorkloadRepo --------

func matchesSelector(podName, container, selector string) bool {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return true
	}
	for _, part := range strings.Split(sel, ",") {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		if key, val, ok := strings.Cut(t, "="); ok {
			key, val = strings.TrimSpace(key), strings.TrimSpace(val)
			switch key {
			case "app", "component", "name":
				if !strings.EqualFold(container, val) && !strings.Contains(podName, val) {
					return false
				}
			default:
				if !strings.Contains(podName, val) && !strings.Contains(container, val) {
					return false
				}
			}
			continue
		}
		if !strings.Contains(podName, t) && !strings.Contains(container, t) {
			return false
		}
	}
	return true
}

func (r *Repo) ListPods(ctx context.Context, ns string, selector string) ([]domain.PodInfo, error) {
	var out []domain.PodInfo
	for _, f := range pods {
		if !matchesSelector(f.name, f.ctn, selector) {
			continue
		}
		out = append(out, r.podInfo(ns, f))
	}
	return out, nil
}

func (r *Repo) GetPod(ctx context.Context, ns, name string) (domain.PodInfo, error) {
	for _, f := range pods {
		if f.name == name {
			return r.podInfo(ns, f), nil
		}
	}
	return domain.PodInfo{}, fmt.Errorf("mock: pod %q not found", name)
}

func (r *Repo) podInfo(ns string, f fixture) domain.PodInfo {
	r.mu.Lock()
	cpu := int(80 + 60*r.rnd.Float64())
	mem := int64(500*1024*1024 + int64(300*1024*1024*r.rnd.Float64()))
	r.mu.Unlock()
	return domain.PodInfo{
		Namespace:      coalesce(ns, "default"),
		PodName:        f.name,
		NodeName:       f.node,
		Phase:          "Running",
		Ready:          "2/2",
		Containers:     []string{f.ctn, "istio-proxy"},
		InitContainers: []string{"init-config"},
		CPUm:           cpu,
		MemBytes:       mem,
		CPUReqm:        100,
		MemReqBytes:    256 * 1024 * 1024,
	}
}

func (r *Repo) ListNamespaces(ctx context.Context) ([]string, error) {
	return []string{domain.AllNamespaces, "default", "staging", "kube-system"}, nil
}

func coalesce(s, def string) string {
	if s == "" || s == domain.AllNamespaces {
		return def
	}
	return s
}
