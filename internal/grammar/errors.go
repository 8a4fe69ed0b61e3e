package grammar

import "fmt"

// ParseError reports malformed input. Pos and End are byte offsets into Input;
// End is zero when the error points at a single position.
type ParseError struct {
	Input   string
	Pos     int
	End     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (at %d)", e.Message, e.Pos)
}

// Span returns the [start, end) range covered by the error, always at least
// one byte wide unless the input is empty.
func (e *ParseError) Span() (int, int) {
	start, end := e.Pos, e.End
	if end <= start {
		end = start + 1
	}
	if end > len(e.Input) {
		end = len(e.Input)
	}
	if start > end {
		start = end
	}
	return start, end
}

func errAt(input string, pos, end int, format string, args ...any) *ParseError {
	return &ParseError{Input: input, Pos: pos, End: end, Message: fmt.Sprintf(format, args...)}
}
