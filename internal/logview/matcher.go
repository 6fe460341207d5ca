package logview

import "regexp"

// Segment is a piece of a line; Match marks text equal to the filter.
type Segment struct {
	Text  string
	Match bool
}

// Matcher tests and highlights lines against a literal filter text.
type Matcher struct {
	re *regexp.Regexp // nil for an empty filter
}

// Compile builds a matcher for filterText taken literally: regexp
// metacharacters are escaped. Matching is case-sensitive.
func Compile(filterText string) *Matcher {
	if filterText == "" {
		return &Matcher{}
	}
	return &Matcher{re: regexp.MustCompile(regexp.QuoteMeta(filterText))}
}

// Empty reports whether the matcher was built from an empty filter.
func (m *Matcher) Empty() bool { return m == nil || m.re == nil }

// Test reports whether line passes the filter. An empty filter passes everything.
func (m *Matcher) Test(line string) bool {
	if m.Empty() {
		return true
	}
	return m.re.MatchString(line)
}

// Ranges returns the [start, end) byte offsets of every non-overlapping
// occurrence. An empty filter marks nothing.
func (m *Matcher) Ranges(line string) [][]int {
	if m.Empty() {
		return nil
	}
	return m.re.FindAllStringIndex(line, -1)
}

// Highlight splits line into plain and matching segments, in order.
func (m *Matcher) Highlight(line string) []Segment {
	ranges := m.Ranges(line)
	if len(ranges) == 0 {
		if line == "" {
			return nil
		}
		return []Segment{{Text: line}}
	}
	out := make([]Segment, 0, 2*len(ranges)+1)
	prev := 0
	for _, r := range ranges {
		if r[0] > prev {
			out = append(out, Segment{Text: line[prev:r[0]]})
		}
		out = append(out, Segment{Text: line[r[0]:r[1]], Match: true})
		prev = r[1]
	}
	if prev < len(line) {
		out = append(out, Segment{Text: line[prev:]})
	}
	return out
}
