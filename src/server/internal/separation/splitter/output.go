package splitter

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
)

const (
	diagnosticsLimit = 64 * 1024
	maxLineLength    = 1024 * 1024
)

// scanLinesOrCarriageReturns splits on either line ending, progress bars
// redraw themselves with a bare carriage return
func scanLinesOrCarriageReturns(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// diagnostics keeps the tail of the separator's output for error reports
type diagnostics struct {
	mu    sync.Mutex
	limit int
	data  []byte
}

func newDiagnostics(limit int) *diagnostics {
	return &diagnostics{limit: limit}
}

func (d *diagnostics) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.data = append(d.data, p...)
	if overflow := len(d.data) - d.limit; overflow > 0 {
		d.data = d.data[overflow:]
	}

	return len(p), nil
}

func (d *diagnostics) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return strings.TrimSpace(string(d.data))
}

// consumeOutput feeds every non empty line to onLine and records it in diag.
// The reader is drained to EOF even if a line is too long to scan.
func consumeOutput(reader io.Reader, diag *diagnostics, onLine func(line string)) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	scanner.Split(scanLinesOrCarriageReturns)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		_, _ = diag.Write([]byte(line + "\n"))
		onLine(line)
	}

	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(diag, reader)
		return err
	}

	return nil
}
