package dataset

import "io"

type quoteState uint8

const (
	atFieldStart quoteState = iota
	inUnquoted
	inQuoted
	afterQuote
)

// quoteTracker follows field quoting over the bytes handed to the csv reader
// so that a quoted field still open at end of input can be reported. It mirrors
// csv.Reader with LazyQuotes: a quote inside an unquoted field is literal and a
// stray quote inside a quoted field does not close it.
type quoteTracker struct {
	r     io.Reader
	comma byte
	state quoteState
	line  int
	open  int // line where the current quoted field started
}

func newQuoteTracker(r io.Reader, comma rune) *quoteTracker {
	return &quoteTracker{r: r, comma: byte(comma), line: 1}
}

func (q *quoteTracker) Read(p []byte) (int, error) {
	n, err := q.r.Read(p)
	for _, b := range p[:n] {
		q.step(b)
	}
	return n, err
}

func (q *quoteTracker) step(b byte) {
	if b == '\n' {
		q.line++
	}
	switch q.state {
	case atFieldStart:
		switch b {
		case '"':
			q.state, q.open = inQuoted, q.line
		case q.comma, '\n':
		default:
			q.state = inUnquoted
		}
	case inUnquoted:
		if b == q.comma || b == '\n' {
			q.state = atFieldStart
		}
	case inQuoted:
		if b == '"' {
			q.state = afterQuote
		}
	case afterQuote:
		switch b {
		case '"':
			q.state = inQuoted
		case q.comma, '\n':
			q.state = atFieldStart
		case '\r':
		default:
			q.state = inQuoted
		}
	}
}

// unterminated reports the start line of a quoted field left open at end of input.
func (q *quoteTracker) unterminated() (int, bool) {
	return q.open, q.state == inQuoted
}
