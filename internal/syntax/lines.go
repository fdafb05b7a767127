package syntax

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// Lines maps between byte offsets and row/column positions of a source text.
type Lines struct {
	src    []byte
	starts []int
}

// NewLines indexes the line starts of src.
func NewLines(src []byte) *Lines {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lines{src: src, starts: starts}
}

// Count returns the number of lines.
func (l *Lines) Count() int { return len(l.starts) }

// Point converts a byte offset into a row and byte column.
func (l *Lines) Point(off int) Point {
	off = l.clamp(off)
	row := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > off }) - 1
	return Point{Row: row, Column: off - l.starts[row]}
}

// Offset converts a row and byte column into a byte offset. Positions past the
// end of a line clamp to the line end; rows past the end clamp to the text end.
func (l *Lines) Offset(p Point) int {
	if p.Row < 0 {
		return 0
	}
	if p.Row >= len(l.starts) {
		return len(l.src)
	}
	start := l.starts[p.Row]
	end := l.lineEnd(p.Row)
	off := start + p.Column
	if p.Column < 0 {
		off = start
	}
	if off > end {
		off = end
	}
	return off
}

// OffsetUTF16 converts a row and UTF-16 code unit column into a byte offset.
func (l *Lines) OffsetUTF16(row, char int) int {
	if row < 0 {
		return 0
	}
	if row >= len(l.starts) {
		return len(l.src)
	}
	off := l.starts[row]
	end := l.lineEnd(row)
	units := 0
	for off < end && units < char {
		r, size := utf8.DecodeRune(l.src[off:end])
		units += utf16.RuneLen(r)
		if units > char {
			break
		}
		off += size
	}
	return off
}

// PointUTF16 converts a byte offset into a row and UTF-16 code unit column.
func (l *Lines) PointUTF16(off int) (row, char int) {
	p := l.Point(off)
	start := l.starts[p.Row]
	line := l.src[start : start+p.Column]
	for len(line) > 0 {
		r, size := utf8.DecodeRune(line)
		char += utf16.RuneLen(r)
		line = line[size:]
	}
	return p.Row, char
}

func (l *Lines) lineEnd(row int) int {
	if row+1 < len(l.starts) {
		end := l.starts[row+1] - 1
		if end > l.starts[row] && l.src[end-1] == '\r' {
			end--
		}
		return end
	}
	return len(l.src)
}

func (l *Lines) clamp(off int) int {
	if off < 0 {
		return 0
	}
	if off > len(l.src) {
		return len(l.src)
	}
	return off
}
