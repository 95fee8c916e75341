package cli

import (
	"bytes"
	"strings"
	"testing"
)

type testTable struct {
	rows [][]string
}

func (t testTable) Header() []string { return []string{"ID", "NAME"} }
func (t testTable) Rows() [][]string { return t.rows }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"junit", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	table := testTable{rows: [][]string{{"1", "Short"}, {"12", "Legal hold"}}}
	if err := NewFormatter(FormatText).FormatTo(&buf, table); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %q", buf.String())
	}
	if lines[0] != "ID  NAME" {
		t.Errorf("Unexpected header line %q", lines[0])
	}
	if lines[2] != "12  Legal hold" {
		t.Errorf("Unexpected row line %q", lines[2])
	}
}

func TestTextFormatter_Value(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, "done"); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	if buf.String() != "done\n" {
		t.Errorf("Expected %q, got %q", "done\n", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]int{"processed_count": 2}
	if err := NewFormatter(FormatJSON).FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\"processed_count\": 2") {
		t.Errorf("Expected indented JSON, got %q", buf.String())
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	table := testTable{rows: [][]string{{"1", "a,b"}}}
	if err := NewFormatter(FormatCSV).FormatTo(&buf, table); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	want := "ID,NAME\n1,\"a,b\"\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}

	if err := NewFormatter(FormatCSV).FormatTo(&buf, 42); err == nil {
		t.Error("Expected error for non-table data")
	}
}
