package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultNAValues are the tokens read as missing values, the empty field included.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

// LoadOptions controls how delimited text is parsed into a Table.
type LoadOptions struct {
	// Delimiter for fields. If 0, chosen by extension, then sniffed from the header.
	Delimiter rune
	// Encoding is a WHATWG label such as "utf-8", "latin1" or "utf-16le". Empty means UTF-8.
	Encoding string
	// NAValues overrides DefaultNAValues when non-nil. Empty fields are always missing.
	NAValues []string
}

// ParseError reports malformed input at a given line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errUnterminatedQuote = errors.New("quoted field is never closed")

// LoadFile opens path and parses it with Load.
func LoadFile(path string, opt LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Load(f, path, opt)
}

// Load parses delimited text with a header row. Input without a header yields
// an empty Table rather than an error.
func Load(r io.Reader, name string, opt LoadOptions) (*Table, error) {
	src, validateUTF8, err := decodeReader(r, opt.Encoding)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(src, 64<<10)
	if validateUTF8 {
		if b, _ := br.Peek(len(utf8BOM)); bytes.Equal(b, utf8BOM) {
			_, _ = br.Discard(len(utf8BOM))
		}
	}

	delim := opt.Delimiter
	if delim == 0 {
		delim = DelimiterFor(name)
	}
	if delim == 0 {
		delim = sniffDelimiter(br)
	}

	qt := newQuoteTracker(br, delim)
	cr := csv.NewReader(qt)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	t := &Table{Name: filepath.Base(name)}
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		return nil, wrapCSVError(err)
	}
	if validateUTF8 {
		if err := checkUTF8(header, 1); err != nil {
			return nil, err
		}
	}
	t.Columns = mangleHeader(header)
	ncol := len(t.Columns)

	na := naSet(opt.NAValues)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, wrapCSVError(err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > ncol {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("expected %d fields, saw %d", ncol, len(rec))}
		}
		if validateUTF8 {
			if err := checkUTF8(rec, line); err != nil {
				return nil, err
			}
		}
		row := make([]Cell, ncol)
		for j := 0; j < ncol; j++ {
			if j >= len(rec) {
				row[j] = Cell{Null: true}
				continue
			}
			v := rec[j]
			_, isNA := na[v]
			row[j] = Cell{Value: v, Null: isNA}
		}
		t.Rows = append(t.Rows, row)
	}
	if open, ok := qt.unterminated(); ok {
		return nil, &ParseError{Line: open, Err: errUnterminatedQuote}
	}
	return t, nil
}

func decodeReader(r io.Reader, encoding string) (io.Reader, bool, error) {
	label := strings.ToLower(strings.TrimSpace(encoding))
	switch label {
	case "", "utf-8", "utf8":
		return r, true, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, false, fmt.Errorf("unsupported encoding %q: %w", encoding, err)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), false, nil
}

func checkUTF8(fields []string, line int) error {
	for _, f := range fields {
		if !utf8.ValidString(f) {
			return &ParseError{Line: line, Err: errors.New("invalid UTF-8 sequence (try --encoding latin1)")}
		}
	}
	return nil
}

func wrapCSVError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

func naSet(values []string) map[string]struct{} {
	if values == nil {
		values = DefaultNAValues
	}
	set := make(map[string]struct{}, len(values)+1)
	set[""] = struct{}{}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// mangleHeader names blank columns "Unnamed: <i>" and suffixes repeats with ".1", ".2", ...
func mangleHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				cand := base + "." + strconv.Itoa(n)
				if _, taken := seen[cand]; !taken {
					seen[base] = n
					name = cand
					break
				}
			}
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
