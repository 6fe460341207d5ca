package logview

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// PodPalette is the fixed set of gutter colors.
var PodPalette = []lipgloss.Color{
	lipgloss.Color("#5FD7AF"),
	lipgloss.Color("#FFAF00"),
	lipgloss.Color("#87AFFF"),
	lipgloss.Color("#FF5F87"),
	lipgloss.Color("#D787FF"),
	lipgloss.Color("#7DCE13"),
}

// PaletteIndex maps seed onto [0, length) with FNV-32a.
func PaletteIndex(seed string, length int) int {
	if length <= 0 {
		return 0
	}
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(seed))
	return int(hasher.Sum32() % uint32(length))
}

// ColorFor returns the stable gutter color of a pod.
func ColorFor(podName string) lipgloss.Color {
	return PodPalette[PaletteIndex(podName, len(PodPalette))]
}
