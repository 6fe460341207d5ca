package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
	"github.com/HaPhanBaoMinh/ktail/internal/ui/widgets"
)

// clamp clamps v into [min, max].
func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// compute dynamic widths for the pod picker based on available total width
func podColWidths(total int) (wPod, wReady, wCPU, wCPUBar, wMem, wMemBar, wNode int) {
	minPod, minReady, minCPU, minMem, minNode := 24, 6, 6, 9, 12

	base := minPod + minReady + minCPU + minMem + minNode
	remain := total - base
	if remain < 10 {
		remain = 10
	}

	// bars share the flexible space, pod name takes the rest
	wCPUBar = remain / 3
	wMemBar = remain / 3
	extra := remain - (wCPUBar + wMemBar)

	wPod = clamp(minPod+extra, 16, 60)
	wReady = minReady
	wCPU = minCPU
	wMem = minMem
	wNode = clamp(minNode, 10, 30)
	wCPUBar = clamp(wCPUBar, 6, 40)
	wMemBar = clamp(wMemBar, 6, 40)
	return
}

// sortPods orders pods by usage, highest first.
func sortPods(p []domain.PodInfo, by string) {
	sort.SliceStable(p, func(i, j int) bool {
		if by == "mem" {
			return p[i].MemBytes > p[j].MemBytes
		}
		return p[i].CPUm > p[j].CPUm
	})
}

// usageBar draws used against the request, or against the largest peer when
// no request is set.
func usageBar(used, request, peak float64, width int) string {
	den := request
	if den <= 0 {
		den = peak
	}
	if den <= 0 {
		den = 1
	}
	return widgets.Bar(used/den, width)
}

func formatMem(b int64) string {
	return fmt.Sprintf("%6.1fMi", float64(b)/(1024*1024))
}

func formatSince(sec int64) string {
	if sec <= 0 {
		return "all"
	}
	switch {
	case sec%86400 == 0:
		return fmt.Sprintf("%dd", sec/86400)
	case sec%3600 == 0:
		return fmt.Sprintf("%dh", sec/3600)
	case sec%60 == 0:
		return fmt.Sprintf("%dm", sec/60)
	}
	return fmt.Sprintf("%ds", sec)
}

func formatTail(n int64) string {
	if n <= 0 {
		return "all"
	}
	return fmt.Sprintf("%d", n)
}

// nextPreset returns the preset after cur, wrapping around.
func nextPreset(presets []int64, cur int64) int64 {
	for i, p := range presets {
		if p == cur {
			return presets[(i+1)%len(presets)]
		}
	}
	return presets[0]
}

// nextPod cycles through the pods present in entries, then back to none.
func nextPod(entries []domain.LogEntry, cur string) string {
	var pods []string
	seen := map[string]bool{}
	for _, e := range entries {
		if !seen[e.PodName] {
			seen[e.PodName] = true
			pods = append(pods, e.PodName)
		}
	}
	if len(pods) == 0 {
		return ""
	}
	if cur == "" {
		return pods[0]
	}
	for i, p := range pods {
		if p == cur {
			if i+1 < len(pods) {
				return pods[i+1]
			}
			return ""
		}
	}
	return pods[0]
}

// normalize scales samples into [0, 1] by their maximum.
func normalize(samples []float64) []float64 {
	peak := 0.0
	for _, v := range samples {
		if v > peak {
			peak = v
		}
	}
	out := make([]float64, len(samples))
	if peak == 0 {
		return out
	}
	for i, v := range samples {
		out[i] = v / peak
	}
	return out
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("[%s] %s", h.Key, h.Desc))
	}
	return strings.Join(parts, " ")
}
