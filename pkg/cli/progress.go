package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ProgressReporter reports per-document progress for batch compiles.
type ProgressReporter interface {
	Start(total int)
	Done(name string, elapsed time.Duration, err error)
	Finish() (failed int)
}

// SimpleProgress writes one line per document and a summary line.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int
	current int
	failed  int
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr so stdout stays free for output.
func NewProgressReporter(w io.Writer) *SimpleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		writer: w,
	}
}

// Start resets the reporter for total documents.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.failed = 0
	p.started = time.Now()
}

// Done records one finished document.
func (p *SimpleProgress) Done(name string, elapsed time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	width := len(fmt.Sprint(p.total))
	if err != nil {
		p.failed++
		fmt.Fprintf(p.writer, "[%*d/%d] ✗ %s: %v\n", width, p.current, p.total, name, err)
		return
	}
	fmt.Fprintf(p.writer, "[%*d/%d] ✓ %s (%s)\n", width, p.current, p.total, name, elapsed.Round(time.Millisecond))
}

// Finish prints the summary and returns the number of failures.
func (p *SimpleProgress) Finish() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return 0
	}
	fmt.Fprintf(p.writer, "%d compiled, %d failed in %s\n",
		p.current-p.failed, p.failed, time.Since(p.started).Round(time.Millisecond))
	return p.failed
}
