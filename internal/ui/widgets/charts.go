// Package widgets draws the one-line charts used in the viewer header and
// the pod picker.
package widgets

import (
	"math"
	"strings"
)

var blocks = []rune("▁▂▃▄▅▆▇█")

// Spark renders the newest width samples, each a ratio in [0, 1], as block
// characters. A shorter series is padded on the left.
func Spark(samples []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(samples)))
	top := len(blocks) - 1
	for _, v := range samples {
		level := int(math.Round(ratio(v) * float64(top)))
		b.WriteRune(blocks[level])
	}
	return b.String()
}

// Bar fills ratio of width cells. A non-zero ratio always shows one cell.
func Bar(v float64, width int) string {
	if width <= 0 {
		return ""
	}
	v = ratio(v)
	fill := int(math.Round(v * float64(width)))
	if v > 0 && fill == 0 {
		fill = 1
	}
	return strings.Repeat("█", fill) + strings.Repeat(" ", width-fill)
}

// ratio clamps v into [0, 1]; NaN and infinities count as empty.
func ratio(v float64) float64 {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
