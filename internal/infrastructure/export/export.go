// Package export builds download links for a subscription and dumps its
// current logs to a file.
package export

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

type Exporter struct {
	base   string
	source domain.LogSource
}

// New links downloads to the API server at baseURL and dumps from source.
func New(baseURL string, source domain.LogSource) *Exporter {
	return &Exporter{base: strings.TrimRight(baseURL, "/"), source: source}
}

// URL is the non-follow download link of p's logs.
func (e *Exporter) URL(p domain.SubscriptionParams) string {
	q := url.Values{}
	q.Set("namespace", p.Namespace)
	if p.PodName != "" {
		q.Set("podName", p.PodName)
	} else {
		q.Set("group", p.Resource.Group)
		q.Set("kind", p.Resource.Kind)
		q.Set("resourceName", p.Resource.Name)
	}
	q.Set("container", p.ContainerName)
	if p.Tail > 0 {
		q.Set("tailLines", strconv.FormatInt(p.Tail, 10))
	}
	if p.SinceSeconds > 0 {
		q.Set("sinceSeconds", strconv.FormatInt(p.SinceSeconds, 10))
	}
	if p.Filter != "" {
		q.Set("filter", p.Filter)
	}
	q.Set("previous", strconv.FormatBool(p.Previous))
	q.Set("follow", "false")
	return fmt.Sprintf("%s/api/v1/applications/%s/logs?%s", e.base, url.PathEscape(p.ApplicationName), q.Encode())
}

// Dump writes the logs of p, without following, to dir/<pod or resource>.log
// and returns the file path. A stream error leaves the partial file in place.
func (e *Exporter) Dump(ctx context.Context, p domain.SubscriptionParams, dir string) (string, error) {
	p.Follow = false
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fileName(p))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	entries, errs := e.source.StreamLogs(ctx, p)
	for entry := range entries {
		if _, err := w.WriteString(entry.Content + "\n"); err != nil {
			return path, err
		}
	}
	if err := w.Flush(); err != nil {
		return path, err
	}
	select {
	case err := <-errs:
		if err != nil {
			return path, fmt.Errorf("dump %s: %w", path, err)
		}
	default:
	}
	if err := ctx.Err(); err != nil {
		return path, err
	}
	return path, nil
}

func fileName(p domain.SubscriptionParams) string {
	name := p.PodName
	if name == "" {
		name = p.Resource.Name
	}
	if name == "" {
		name = "logs"
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
	return name + ".log"
}
