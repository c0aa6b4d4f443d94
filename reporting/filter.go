// Package reporting filters the comparative performance report emitted by the
// report generator down to the benchmarks that were part of the current run.
package reporting

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/acarl005/stripansi"
)

// HeaderMarker identifies the benchmark rows of the comparative table.
// Lines without it (headers, separators, prose) are always kept.
const HeaderMarker = "Benchmarks"

// ErrMalformedRow is returned when a benchmark row does not have a pipe-delimited first cell.
var ErrMalformedRow = errors.New("table parsed incorrectly")

// firstCellPattern matches the first "| cell |" of a markdown table row.
var firstCellPattern = regexp.MustCompile(`\| (.*?) \|`)

// FilterStats counts what happened to the report lines.
type FilterStats struct {
	Passthrough int // lines kept because they carry no marker
	Kept        int // benchmark rows kept
	Dropped     int // benchmark rows not part of the current run
}

// FilterResult is the filtered report.
type FilterResult struct {
	Lines []string
	Stats FilterStats
}

// FirstCell extracts the first cell of a markdown table row.
// The second return value is false if the line has no cell of the form "| x |".
func FirstCell(line string) (string, bool) {
	m := firstCellPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(stripansi.Strip(m[1])), true
}

// FilterReport keeps every line without the header marker and the benchmark rows
// whose first cell is in benchmarks. Line order is preserved.
func FilterReport(lines []string, benchmarks map[string]struct{}) (*FilterResult, error) {
	result := &FilterResult{
		Lines: make([]string, 0, len(lines)),
	}

	for i, line := range lines {
		if !strings.Contains(line, HeaderMarker) {
			result.Lines = append(result.Lines, line)
			result.Stats.Passthrough++
			continue
		}

		name, ok := FirstCell(line)
		if !ok {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedRow, i+1, line)
		}

		if _, ok := benchmarks[name]; ok {
			result.Lines = append(result.Lines, line)
			result.Stats.Kept++
		} else {
			result.Stats.Dropped++
		}
	}

	return result, nil
}

// SplitLines splits generator output into lines on the same boundaries as Python's
// str.splitlines: "\n", "\r\n", "\r", "\v", "\f", "\x1c" to "\x1e", U+0085, U+2028
// and U+2029. A trailing line ending does not produce an empty last line.
func SplitLines(output string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(output); {
		r, size := utf8.DecodeRuneInString(output[i:])
		if !isLineBoundary(r) {
			i += size
			continue
		}
		lines = append(lines, output[start:i])
		i += size
		if r == '\r' && i < len(output) && output[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(output) {
		lines = append(lines, output[start:])
	}
	return lines
}

func isLineBoundary(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
