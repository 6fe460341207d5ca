package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

func TestNextPreset(t *testing.T) {
	assert.Equal(t, int64(1000), nextPreset(tailPresets, 100))
	assert.Equal(t, int64(100), nextPreset(tailPresets, 0))
	assert.Equal(t, int64(100), nextPreset(tailPresets, 42))
}

func TestNextPod(t *testing.T) {
	es := []domain.LogEntry{{PodName: "a"}, {PodName: "b"}, {PodName: "a"}}
	assert.Equal(t, "a", nextPod(es, ""))
	assert.Equal(t, "b", nextPod(es, "a"))
	assert.Equal(t, "", nextPod(es, "b"))
	assert.Equal(t, "a", nextPod(es, "gone"))
	assert.Equal(t, "", nextPod(nil, ""))
}

func TestFormatSince(t *testing.T) {
	assert.Equal(t, "all", formatSince(0))
	assert.Equal(t, "5m", formatSince(300))
	assert.Equal(t, "1h", formatSince(3600))
	assert.Equal(t, "1d", formatSince(86400))
	assert.Equal(t, "90s", formatSince(90))
}

func TestPodColWidthsFitBars(t *testing.T) {
	wPod, _, _, wCPUBar, _, wMemBar, _ := podColWidths(120)
	assert.GreaterOrEqual(t, wPod, 16)
	assert.GreaterOrEqual(t, wCPUBar, 6)
	assert.Equal(t, wCPUBar, wMemBar)
}

func TestSortPods(t *testing.T) {
	pods := []domain.PodInfo{{PodName: "a", CPUm: 5, MemBytes: 9}, {PodName: "b", CPUm: 7, MemBytes: 1}}
	sortPods(pods, "cpu")
	assert.Equal(t, "b", pods[0].PodName)
	sortPods(pods, "mem")
	assert.Equal(t, "a", pods[0].PodName)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.5, 1, 0}, normalize([]float64{2, 4, 0}))
	assert.Equal(t, []float64{0, 0}, normalize([]float64{0, 0}))
}
