package dataset

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"
)

// Format maps file extensions to a field delimiter.
type Format struct {
	Name       string
	Extensions []string
	Delimiter  rune
}

var registry []Format

// Register adds a format to the extension registry.
func Register(f Format) {
	registry = append(registry, f)
}

// DelimiterFor returns the delimiter registered for the file's extension, or 0
// when the extension is unknown.
func DelimiterFor(name string) rune {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return 0
	}
	for _, f := range registry {
		for _, e := range f.Extensions {
			if e == ext {
				return f.Delimiter
			}
		}
	}
	return 0
}

// ParseDelimiter converts a user-supplied delimiter flag into a rune.
// An empty string returns 0 (auto-detect).
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %q (use ','|';'|'tab'|'|')", s)
	}
}

var sniffCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter inspects the first line without consuming it and picks the
// candidate that occurs most often outside quotes. Defaults to ','.
func sniffDelimiter(br *bufio.Reader) rune {
	buf, _ := br.Peek(br.Size())
	line := string(buf)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	counts := make(map[rune]int, len(sniffCandidates))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		counts[r]++
	}
	best, bestN := ',', 0
	for _, c := range sniffCandidates {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}

func init() {
	Register(Format{Name: "csv", Extensions: []string{".csv"}, Delimiter: ','})
	Register(Format{Name: "tsv", Extensions: []string{".tsv", ".tab"}, Delimiter: '\t'})
	Register(Format{Name: "psv", Extensions: []string{".psv"}, Delimiter: '|'})
}
