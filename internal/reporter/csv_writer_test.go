package reporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listing.csv")
	sheet := Sheet{
		Name:    "File Analysis",
		Columns: []string{"Name", "Size", "Ratio", "Note"},
		Rows: [][]any{
			{"a, b.docx", int64(1048576), 12.5, nil},
			{"short", 3},
		},
	}

	if err := WriteCSV(path, sheet); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}

	want := [][]string{
		{"Name", "Size", "Ratio", "Note"},
		{"a, b.docx", "1048576", "12.5", ""},
		{"short", "3", "", ""},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Fatalf("record %d col %d: expected %q, got %q", i, j, want[i][j], records[i][j])
			}
		}
	}
}

func TestWriteCSVBadPath(t *testing.T) {
	if err := WriteCSV(filepath.Join(t.TempDir(), "missing", "x.csv"), Sheet{}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
