package scanner

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/custodian/pkg/retention"
)

// TestNotifyUpcoming tests notices respect the lead time and are sent once
func TestNotifyUpcoming(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Notify", DefaultAction: retention.ActionDelete, NotifyBeforeDays: 5})

	// Set on 2024-03-08: 5 days expires 2024-03-13, window opened 2024-03-08.
	soon := f.retain(t, "/__groupfolders/10/docs/report.pdf", 5)
	// 30 days expires 2024-04-07, window opens 2024-04-02.
	f.retain(t, "/__groupfolders/10/docs/old.txt", 30)

	var got []int64
	var days []int
	notifier := NotifierFunc(func(ctx context.Context, r *retention.FileRetention, daysLeft int) error {
		got = append(got, r.FileID)
		days = append(days, daysLeft)
		return nil
	})
	s := f.scanner(WithNotifier(notifier))

	result, err := s.NotifyUpcoming(ctx)
	if err != nil {
		t.Fatalf("NotifyUpcoming() failed: %v", err)
	}
	if result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("Expected 1 sent, got %+v", result)
	}
	if len(got) != 1 || got[0] != soon.FileID || days[0] != 3 {
		t.Errorf("Unexpected notices: files %v days %v", got, days)
	}

	stored, _ := f.store.GetRetention(ctx, soon.FileID)
	if stored.NotifiedAt == nil {
		t.Error("Expected NotifiedAt to be set")
	}

	result, err = s.NotifyUpcoming(ctx)
	if err != nil {
		t.Fatalf("second NotifyUpcoming() failed: %v", err)
	}
	if result.Sent != 0 {
		t.Errorf("Expected no repeated notices, got %+v", result)
	}
}

// TestNotifyUpcoming_Failure tests a failed notice is retried next run
func TestNotifyUpcoming_Failure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Notify", DefaultAction: retention.ActionDelete, NotifyBeforeDays: 5})
	r := f.retain(t, "/__groupfolders/10/docs/report.pdf", 5)

	failing := NotifierFunc(func(ctx context.Context, r *retention.FileRetention, daysLeft int) error {
		return errors.New("smtp unavailable")
	})
	result, err := f.scanner(WithNotifier(failing)).NotifyUpcoming(ctx)
	if err != nil {
		t.Fatalf("NotifyUpcoming() failed: %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Errorf("Expected 1 failed, got %+v", result)
	}
	stored, _ := f.store.GetRetention(ctx, r.FileID)
	if stored.NotifiedAt != nil {
		t.Error("Expected NotifiedAt to stay unset")
	}

	result, _ = f.scanner().NotifyUpcoming(ctx)
	if result.Sent != 1 {
		t.Errorf("Expected retry with the log notifier to succeed, got %+v", result)
	}
}

// TestNotifyUpcoming_NoLeadTime tests records without a lead time are ignored
func TestNotifyUpcoming_NoLeadTime(t *testing.T) {
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Silent", DefaultAction: retention.ActionDelete})
	f.retain(t, "/__groupfolders/10/docs/report.pdf", 1)

	result, err := f.scanner().NotifyUpcoming(context.Background())
	if err != nil {
		t.Fatalf("NotifyUpcoming() failed: %v", err)
	}
	if result.Sent != 0 || result.Failed != 0 {
		t.Errorf("Expected no notices, got %+v", result)
	}
}
