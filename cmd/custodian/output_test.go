package main

import (
	"testing"
	"time"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/scanner"
)

func TestParseID(t *testing.T) {
	if id, err := parseID("id", "42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "abc", ""} {
		if _, err := parseID("id", bad); !retention.IsValidation(err) {
			t.Errorf("parseID(%q) expected validation error, got %v", bad, err)
		}
	}
}

func TestPolicyTable(t *testing.T) {
	table := policyTable{{
		ID:             3,
		Name:           "Contracts",
		IsActive:       true,
		DefaultAction:  retention.ActionArchive,
		AllowedPeriods: []string{"1 years", "5 years"},
		FolderIDs:      []int64{4, 9},
	}}
	rows := table.Rows()
	if len(rows) != 1 || len(rows[0]) != len(table.Header()) {
		t.Fatalf("Unexpected rows %v", rows)
	}
	if rows[0][7] != "1 years;5 years" || rows[0][8] != "4,9" {
		t.Errorf("Unexpected row %v", rows[0])
	}
}

func TestRetentionTable(t *testing.T) {
	table := retentionTable{{
		FileID:          10,
		PolicyID:        2,
		RetentionPeriod: 30,
		RetentionUnit:   retention.UnitDays,
		ExpireDate:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Action:          retention.ActionDelete,
		Status:          retention.StatusActive,
		CreatedBy:       "alice",
	}}
	row := table.Rows()[0]
	if row[2] != "30 days" || row[3] != "2024-04-01" || row[6] != "active" {
		t.Errorf("Unexpected row %v", row)
	}
}

func TestSummaryTable(t *testing.T) {
	summary := &scanner.Summary{
		DryRun:    true,
		Processed: []scanner.Item{{FileID: 1, PolicyID: 2, Action: retention.ActionMove, Description: "move file 1 to /old"}},
		Errors:    []scanner.ItemError{{FileID: 5, PolicyID: 2, Action: retention.ActionMove, Error: "not found"}},
	}
	rows := summaryTable{summary}.Rows()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "planned" || rows[0][4] != "move file 1 to /old" {
		t.Errorf("Unexpected dry run row %v", rows[0])
	}
	if rows[1][3] != "failed" || rows[1][4] != "not found" {
		t.Errorf("Unexpected error row %v", rows[1])
	}
}
