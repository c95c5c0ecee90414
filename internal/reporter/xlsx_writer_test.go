package reporter

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	sheets := SheetsFromViews(sampleReport().Views, 90)

	if err := WriteWorkbook(path, sheets); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	got := f.GetSheetList()
	if len(got) != len(sheets) {
		t.Fatalf("expected %d sheets, got %v", len(sheets), got)
	}
	for i, s := range sheets {
		if got[i] != s.Name {
			t.Fatalf("sheet %d: expected %q, got %q", i, s.Name, got[i])
		}
	}

	rows, err := f.GetRows("File Analysis")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Name" || rows[1][0] != "contract.docx" {
		t.Fatalf("unexpected first column: %q, %q", rows[0][0], rows[1][0])
	}
}

func TestWriteWorkbookNoSheets(t *testing.T) {
	if err := WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), nil); err == nil {
		t.Fatal("expected error for empty workbook")
	}
}
