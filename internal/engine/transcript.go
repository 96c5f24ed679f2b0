package engine

import (
	"strings"
	"unicode/utf8"
)

// loweredTranscript is the case-folded scan text plus byte offset maps back
// to the original transcript. Folding can change rune widths, so a match
// position in the folded text is not a valid position in the original.
type loweredTranscript struct {
	text   string
	starts []int // starts[i]: original offset of the rune behind folded byte i
	ends   []int // ends[i]: original offset just past that rune
}

func lowerTranscript(s string) *loweredTranscript {
	var b strings.Builder
	b.Grow(len(s))
	starts := make([]int, 0, len(s))
	ends := make([]int, 0, len(s))

	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		folded := strings.ToLower(s[i : i+size])
		for j := 0; j < len(folded); j++ {
			starts = append(starts, i)
			ends = append(ends, i+size)
		}
		b.WriteString(folded)
		i += size
	}

	return &loweredTranscript{text: b.String(), starts: starts, ends: ends}
}

// span maps a [start, end) byte range in the folded text back to the
// original transcript, widened to whole runes where folding changed widths.
func (t *loweredTranscript) span(start, end int) (int, int) {
	if len(t.starts) == 0 {
		return 0, 0
	}
	if start >= len(t.starts) {
		start = len(t.starts) - 1
	}
	origStart := t.starts[start]
	if end <= start {
		return origStart, origStart
	}
	if end > len(t.ends) {
		end = len(t.ends)
	}
	return origStart, t.ends[end-1]
}

// evidenceEnd extends a match end by the lookahead window, clipped to the
// transcript and pulled back onto a rune boundary.
func evidenceEnd(transcript string, matchEnd, window int) int {
	end := matchEnd + window
	if end >= len(transcript) {
		return len(transcript)
	}
	for end > matchEnd && !utf8.RuneStart(transcript[end]) {
		end--
	}
	return end
}
