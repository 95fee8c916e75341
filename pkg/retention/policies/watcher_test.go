package policies

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// TestWatcher_ReimportsOnChange tests that a file write triggers an import.
func TestWatcher_ReimportsOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, _ := newTestService(t)
	path := writePolicyFile(t, "policies: []\n")

	w, err := NewWatcher(svc, path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer func() { _ = w.Stop() }()

	reloaded := make(chan *ImportResult, 10)
	w.OnReload = func(r *ImportResult, err error) {
		if err == nil {
			reloaded <- r
		}
	}

	go func() { _ = w.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte(testPolicyFile), 0o644); err != nil {
		t.Fatalf("Failed to rewrite policy file: %v", err)
	}

	select {
	case r := <-reloaded:
		if r.Created != 2 {
			t.Errorf("Expected 2 created policies, got %+v", r)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	all, _ := svc.ListAll(ctx)
	if len(all) != 2 {
		t.Errorf("Expected 2 policies after reload, got %d", len(all))
	}
}

// TestWatcher_Reload tests a direct import.
func TestWatcher_Reload(t *testing.T) {
	svc, _ := newTestService(t)
	w, err := NewWatcher(svc, writePolicyFile(t, testPolicyFile), 0)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer func() { _ = w.Stop() }()

	result, err := w.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if result.Created != 2 {
		t.Errorf("Expected 2 created, got %+v", result)
	}
}

// TestDebouncer tests that rapid triggers collapse into one call.
func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 call, got %d", got)
	}

	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected no call after Stop, got %d", got)
	}
}
