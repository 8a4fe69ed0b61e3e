package lsp

import (
	"unicode/utf16"
	"unicode/utf8"
)

// offsetOf converts an LSP position (UTF-16 code units) to a byte offset
// into text, clamping to the end of the line or text.
func offsetOf(text string, pos Position) int {
	line, off := 0, 0
	for line < pos.Line {
		i := indexByteFrom(text, '\n', off)
		if i < 0 {
			return len(text)
		}
		off = i + 1
		line++
	}

	units := 0
	for off < len(text) && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[off:])
		if r == '\n' {
			break
		}
		units += runeUnits(r)
		off += size
	}
	return off
}

// positionOf converts a byte offset into text to an LSP position.
func positionOf(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	var pos Position
	for _, r := range text[:offset] {
		if r == '\n' {
			pos.Line++
			pos.Character = 0
			continue
		}
		pos.Character += runeUnits(r)
	}
	return pos
}

func rangeOf(text string, start, end int) Range {
	return Range{Start: positionOf(text, start), End: positionOf(text, end)}
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func indexByteFrom(s string, c byte, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
