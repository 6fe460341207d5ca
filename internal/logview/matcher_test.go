package logview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcherEscapesMetacharacters(t *testing.T) {
	m := Compile("a.b")
	assert.False(t, m.Test("axb"))
	assert.True(t, m.Test("a.b"))

	for _, filter := range []string{"(", "[a-z]+", "x*", `\d`, "^GET", "$HOME", "a|b"} {
		t.Run(filter, func(t *testing.T) {
			m := Compile(filter)
			assert.True(t, m.Test("prefix "+filter+" suffix"))
		})
	}
	assert.False(t, Compile("a|b").Test("a"))
}

func TestMatcherEmptyFilter(t *testing.T) {
	m := Compile("")
	assert.True(t, m.Empty())
	for _, line := range []string{"", "anything", "a.b"} {
		assert.True(t, m.Test(line))
		assert.Empty(t, m.Ranges(line))
		for _, seg := range m.Highlight(line) {
			assert.False(t, seg.Match)
		}
	}
	assert.Equal(t, []Segment{{Text: "plain"}}, m.Highlight("plain"))
	assert.Nil(t, m.Highlight(""))
}

func TestMatcherMarksEveryOccurrence(t *testing.T) {
	m := Compile("ab")
	got := m.Highlight("xabyabab")
	assert.Equal(t, []Segment{
		{Text: "x"},
		{Text: "ab", Match: true},
		{Text: "y"},
		{Text: "ab", Match: true},
		{Text: "ab", Match: true},
	}, got)
	assert.Equal(t, [][]int{{1, 3}, {4, 6}, {6, 8}}, m.Ranges("xabyabab"))
}

func TestMatcherNonOverlapping(t *testing.T) {
	assert.Len(t, Compile("aa").Ranges("aaaa"), 2)
	assert.Len(t, Compile("aa").Ranges("aaa"), 1)
}

func TestMatcherIsCaseSensitive(t *testing.T) {
	m := Compile("Error")
	assert.True(t, m.Test("Error: boom"))
	assert.False(t, m.Test("error: boom"))
}

func TestNilMatcherPassesEverything(t *testing.T) {
	var m *Matcher
	assert.True(t, m.Test("x"))
	assert.Empty(t, m.Ranges("x"))
}

func TestColorForIsStable(t *testing.T) {
	first := ColorFor("pod-x")
	assert.Equal(t, first, ColorFor("pod-x"))
	assert.Contains(t, PodPalette, first)

	for _, name := range []string{"", "a", "api-7cfb9d9c9c-9tghd", "worker-5f7dcbffd6-2jqkz"} {
		idx := PaletteIndex(name, len(PodPalette))
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(PodPalette))
		assert.Equal(t, idx, PaletteIndex(name, len(PodPalette)))
	}
	assert.Zero(t, PaletteIndex("x", 0))
}
