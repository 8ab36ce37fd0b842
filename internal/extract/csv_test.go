package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/bull/docindex/internal/document"
)

// TestParseCSV_QuotedFields tests quoted fields with embedded commas,
// newlines and escaped quotes.
func TestParseCSV_QuotedFields(t *testing.T) {
	input := "name,notes\n\"Smith, John\",\"said \"\"hello\"\"\"\n\"multi\nline\",plain\n"

	records, err := parseCSV(input)
	if err != nil {
		t.Fatalf("parseCSV failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[1][0] != "Smith, John" {
		t.Errorf("Embedded comma: expected %q, got %q", "Smith, John", records[1][0])
	}
	if records[1][1] != `said "hello"` {
		t.Errorf("Escaped quotes: expected %q, got %q", `said "hello"`, records[1][1])
	}
	if records[2][0] != "multi\nline" {
		t.Errorf("Embedded newline: expected %q, got %q", "multi\nline", records[2][0])
	}
}

func TestParseCSV_TrailingNewline(t *testing.T) {
	records, err := parseCSV("a,b\n1,2\n\n")
	if err != nil {
		t.Fatalf("parseCSV failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected blank trailing records to be skipped, got %d records", len(records))
	}
}

func TestParseCSV_UnterminatedQuote(t *testing.T) {
	if _, err := parseCSV("a,b\n\"open,2\n"); err == nil {
		t.Error("Expected error for unterminated quoted field")
	}
}

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"integers", []string{"1", "42", "-7"}, "integer"},
		{"floats", []string{"1.5", "2", "3.25"}, "number"},
		{"thousands separators", []string{"1,200", "3,400"}, "number"},
		{"booleans", []string{"true", "false", "yes"}, "boolean"},
		{"dates", []string{"2024-01-15", "2023-12-01"}, "date"},
		{"emails", []string{"a@example.com", "b@test.org"}, "email"},
		{"urls", []string{"https://example.com", "http://test.org/page"}, "url"},
		{"phones", []string{"+1 (555) 123-4567", "555-987-6543"}, "phone"},
		{"mixed falls back", []string{"42", "hello"}, "string"},
		{"empty column", []string{}, "string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{v}
			}
			if got := inferColumnType(rows, 0); got != tt.want {
				t.Errorf("inferColumnType(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

// TestInferColumnType_IntegerBeatsNumber checks inference priority: a column
// of whole numbers is integer even though every value also parses as float.
func TestInferColumnType_IntegerBeatsNumber(t *testing.T) {
	rows := [][]string{{"10"}, {"20"}, {"30"}}
	if got := inferColumnType(rows, 0); got != "integer" {
		t.Errorf("Expected integer, got %q", got)
	}
}

func TestExtractCSV_Structure(t *testing.T) {
	data := []byte("name,score,active\nAlice,10,true\nBob,90,false\n")

	out, err := extractCSV(data)
	if err != nil {
		t.Fatalf("extractCSV failed: %v", err)
	}

	if out.Structure.Kind != document.KindCSV {
		t.Fatalf("Expected CSV structure, got %v", out.Structure.Kind)
	}
	csv := out.Structure.CSV
	if len(csv.Headers) != 3 {
		t.Errorf("Expected 3 headers, got %d", len(csv.Headers))
	}
	if csv.RowCount != 2 {
		t.Errorf("Expected 2 rows, got %d", csv.RowCount)
	}
	if csv.ColumnTypes["score"] != "integer" {
		t.Errorf("score column type: expected integer, got %q", csv.ColumnTypes["score"])
	}
	if csv.ColumnTypes["active"] != "boolean" {
		t.Errorf("active column type: expected boolean, got %q", csv.ColumnTypes["active"])
	}
	if csv.ColumnTypes["name"] != "string" {
		t.Errorf("name column type: expected string, got %q", csv.ColumnTypes["name"])
	}
	if len(csv.SampleRows) != 2 {
		t.Errorf("Expected 2 sample rows, got %d", len(csv.SampleRows))
	}
}

func TestExtractCSV_SampleRowsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i < 10; i++ {
		b.WriteString("1\n")
	}

	out, err := extractCSV([]byte(b.String()))
	if err != nil {
		t.Fatalf("extractCSV failed: %v", err)
	}
	if len(out.Structure.CSV.SampleRows) != csvSampleRows {
		t.Errorf("Expected %d sample rows, got %d", csvSampleRows, len(out.Structure.CSV.SampleRows))
	}
	if out.Structure.CSV.RowCount != 10 {
		t.Errorf("Expected full row count 10, got %d", out.Structure.CSV.RowCount)
	}
}

func TestExtractCSV_Empty(t *testing.T) {
	if _, err := extractCSV([]byte("   \n  ")); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Expected ErrEmptyContent, got %v", err)
	}
}

func TestExtractCSV_Malformed(t *testing.T) {
	if _, err := extractCSV([]byte("a,b\nva\"lue,2\n")); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Expected ErrMalformedInput, got %v", err)
	}
}
