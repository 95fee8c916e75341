package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const scanBarWidth = 24

// ScanProgress renders the position of an expiry scan on a single line,
// with the running processed, failed and skipped counts.
type ScanProgress struct {
	mu     sync.Mutex
	writer io.Writer
	now    func() time.Time

	total   int
	dryRun  bool
	started time.Time

	done      int
	processed int
	failed    int
	skipped   int
}

// NewScanProgress creates a scan progress line on w, os.Stderr when nil.
func NewScanProgress(w io.Writer) *ScanProgress {
	if w == nil {
		w = os.Stderr
	}
	return &ScanProgress{writer: w, now: time.Now}
}

// Start begins a batch of total records.
func (p *ScanProgress) Start(total int, dryRun bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.dryRun = dryRun
	p.started = p.now()
	p.done, p.processed, p.failed, p.skipped = 0, 0, 0, 0
	p.render()
}

// Update records that done records have been handled.
func (p *ScanProgress) Update(done, processed, failed, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.processed, p.failed, p.skipped = processed, failed, skipped
	p.render()
}

// Finish prints the final counts. An empty batch prints nothing.
func (p *ScanProgress) Finish(processed, failed, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return
	}
	p.processed, p.failed, p.skipped = processed, failed, skipped
	p.done = processed + failed + skipped
	p.render()

	elapsed := p.now().Sub(p.started).Round(time.Millisecond)
	if p.done < p.total {
		fmt.Fprintf(p.writer, "\ninterrupted after %d of %d records (%s)\n", p.done, p.total, elapsed)
		return
	}
	fmt.Fprintf(p.writer, "\ndone in %s\n", elapsed)
}

func (p *ScanProgress) render() {
	if p.total == 0 {
		return
	}

	filled := p.done * scanBarWidth / p.total
	if filled > scanBarWidth {
		filled = scanBarWidth
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", scanBarWidth-filled)

	verb := "processed"
	if p.dryRun {
		verb = "would process"
	}
	fmt.Fprintf(p.writer, "\rscan [%s] %d/%d  %s %d  failed %d  skipped %d",
		bar, p.done, p.total, verb, p.processed, p.failed, p.skipped)
}
