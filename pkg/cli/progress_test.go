package cli

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedProgress(buf *bytes.Buffer, step time.Duration) *ScanProgress {
	p := NewScanProgress(buf)
	at := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)
	p.now = func() time.Time {
		at = at.Add(step)
		return at
	}
	return p
}

func TestScanProgress(t *testing.T) {
	var buf bytes.Buffer
	p := fixedProgress(&buf, time.Second)

	p.Start(4, false)
	p.Update(2, 1, 1, 0)
	p.Finish(2, 1, 1)

	out := buf.String()
	if !strings.Contains(out, "2/4  processed 1  failed 1  skipped 0") {
		t.Errorf("Expected intermediate counts, got %q", out)
	}
	if !strings.Contains(out, "["+strings.Repeat("#", scanBarWidth)+"] 4/4  processed 2  failed 1  skipped 1") {
		t.Errorf("Expected a full final line, got %q", out)
	}
	if !strings.HasSuffix(out, "done in 1s\n") {
		t.Errorf("Expected elapsed time, got %q", out)
	}
}

func TestScanProgress_DryRun(t *testing.T) {
	var buf bytes.Buffer
	p := fixedProgress(&buf, 0)

	p.Start(2, true)
	p.Finish(2, 0, 0)

	if !strings.Contains(buf.String(), "would process 2") {
		t.Errorf("Expected dry run wording, got %q", buf.String())
	}
}

func TestScanProgress_Interrupted(t *testing.T) {
	var buf bytes.Buffer
	p := fixedProgress(&buf, 0)

	p.Start(5, false)
	p.Update(2, 2, 0, 0)
	p.Finish(2, 0, 0)

	if !strings.Contains(buf.String(), "interrupted after 2 of 5 records") {
		t.Errorf("Expected interruption notice, got %q", buf.String())
	}
}

func TestScanProgress_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewScanProgress(&buf)
	p.Start(0, false)
	p.Finish(0, 0, 0)
	if buf.Len() != 0 {
		t.Errorf("Expected no output for an empty batch, got %q", buf.String())
	}
}

func TestScanProgress_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	p := NewScanProgress(&buf)
	p.Start(100, false)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.Update(n, n, 0, 0)
		}(i)
	}
	wg.Wait()
	p.Finish(100, 0, 0)
}

func TestNewScanProgress_NilWriter(t *testing.T) {
	if p := NewScanProgress(nil); p == nil {
		t.Fatal("Expected a progress line")
	}
}
