package mitab

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 1 << 20

// ParseError records a line that could not be parsed.
type ParseError struct {
	Line int
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e ParseError) Unwrap() error { return e.Err }

// ParseReader parses every MITAB line of r. Blank lines and lines starting
// with '#' are skipped. Malformed lines are reported in the returned
// ParseError slice and do not stop parsing; the error return is reserved for
// read failures and context cancellation.
func ParseReader(ctx context.Context, r io.Reader) ([]*Record, []ParseError, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []*Record
	var failures []ParseError
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := ParseLine(line)
		if err != nil {
			failures = append(failures, ParseError{Line: lineNo, Err: err})
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read mitab: %w", err)
	}

	return records, failures, nil
}
