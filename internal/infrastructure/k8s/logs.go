package k8s

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
	"github.com/HaPhanBaoMinh/ktail/internal/logview"
)

var ErrNoPods = errors.New("no pods matched")

// -------- LogSource --------

// StreamLogs follows the logs of the pod in p, or of every pod behind
// p.Resource. Lines of several pods interleave in arrival order.
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
	pods, err := r.resolvePods(ctx, p)
	if err != nil {
		return err
	}
	match := logview.Compile(p.Filter)
	opts := podLogOptions(p)

	g, gctx := errgroup.WithContext(ctx)
	for _, pod := range pods {
		g.Go(func() error {
			return r.streamPod(gctx, p.Namespace, pod, opts, match, out)
		})
	}
	return g.Wait()
}

func podLogOptions(p domain.SubscriptionParams) *corev1.PodLogOptions {
	opts := &corev1.PodLogOptions{
		Container:  p.ContainerName,
		Follow:     p.Follow,
		Previous:   p.Previous,
		Timestamps: true,
	}
	if p.Tail > 0 {
		tail := p.Tail
		opts.TailLines = &tail
	}
	if p.SinceSeconds > 0 {
		since := p.SinceSeconds
		opts.SinceSeconds = &since
	}
	return opts
}

func (r *Repo) streamPod(ctx context.Context, ns, pod string, opts *corev1.PodLogOptions, match *logview.Matcher, out chan<- domain.LogEntry) error {
	r.log.V(1).Info("opening log stream", "namespace", ns, "pod", pod, "container", opts.Container, "follow", opts.Follow)
	rc, err := r.core.CoreV1().Pods(ns).GetLogs(pod, opts).Stream(ctx)
	if err != nil {
		return fmt.Errorf("stream logs of %s/%s: %w", ns, pod, err)
	}
	defer rc.Close()

	rd := bufio.NewReader(rc)
	for {
		line, err := rd.ReadString('\n')
		for _, e := range parseLogLine(pod, line) {
			if !match.Test(e.Content) {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read logs of %s/%s: %w", ns, pod, err)
		}
	}
}

// parseLogLine splits the RFC3339 timestamp the API server prepends to every
// line. Lines without one keep a zero timestamp. Every non-empty piece between
// carriage returns becomes its own entry.
func parseLogLine(pod, line string) []domain.LogEntry {
	line = strings.TrimRight(line, "\r\n")
	var (
		stamp    time.Time
		stampStr string
		body     = line
	)
	if ts, content, ok := strings.Cut(line, " "); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			stamp, stampStr, body = t, t.UTC().Format(time.RFC3339), content
		}
	}
	var out []domain.LogEntry
	for _, piece := range strings.Split(body, "\r") {
		if piece == "" {
			continue
		}
		out = append(out, domain.LogEntry{PodName: pod, Content: piece, TimeStamp: stamp, TimeStampStr: stampStr})
	}
	return out
}

// resolvePods returns the pod names to follow for p.
func (r *Repo) resolvePods(ctx context.Context, p domain.SubscriptionParams) ([]string, error) {
	if p.PodName != "" {
		return []string{p.PodName}, nil
	}
	if p.Resource.Kind == "Pod" {
		return []string{p.Resource.Name}, nil
	}
	sel, err := r.selectorOf(ctx, p.Namespace, p.Resource)
	if err != nil {
		return nil, err
	}
	list, err := r.core.CoreV1().Pods(p.Namespace).List(ctx, metav1.ListOptions{LabelSelector: sel})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Items))
	for _, pod := range list.Items {
		names = append(names, pod.Name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w %s/%s", ErrNoPods, p.Resource.Kind, p.Resource.Name)
	}
	return names, nil
}

func (r *Repo) selectorOf(ctx context.Context, ns string, ref domain.ResourceRef) (string, error) {
	var sel *metav1.LabelSelector
	switch ref.Kind {
	case "Deployment":
		d, err := r.core.AppsV1().Deployments(ns).Get(ctx, ref.Name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		sel = d.Spec.Selector
	case "StatefulSet":
		s, err := r.core.AppsV1().StatefulSets(ns).Get(ctx, ref.Name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		sel = s.Spec.Selector
	case "DaemonSet":
		d, err := r.core.AppsV1().DaemonSets(ns).Get(ctx, ref.Name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		sel = d.Spec.Selector
	case "ReplicaSet":
		rs, err := r.core.AppsV1().ReplicaSets(ns).Get(ctx, ref.Name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		sel = rs.Spec.Selector
	case "Job":
		j, err := r.core.BatchV1().Jobs(ns).Get(ctx, ref.Name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		sel = j.Spec.Selector
	default:
		return "", fmt.Errorf("unsupported resource kind %q", ref.Kind)
	}
	if sel == nil {
		return "", fmt.Errorf("%s/%s has no selector", ref.Kind, ref.Name)
	}
	return metav1.FormatLabelSelector(sel), nil
}
