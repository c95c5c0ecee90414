package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONOutputStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	if err := WriteJSON(path, sampleReport()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	for _, key := range []string{"tool", "version", "timestamp", "metadata", "views"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected key %q in report", key)
		}
	}

	views, ok := decoded["views"].(map[string]any)
	if !ok {
		t.Fatalf("expected views object, got %T", decoded["views"])
	}
	for _, key := range []string{"full_listing", "summary", "top_overhead", "by_owner", "stale_files", "by_file_type"} {
		if _, ok := views[key]; !ok {
			t.Fatalf("expected view %q", key)
		}
	}
}

func TestWriteJSONNilReport(t *testing.T) {
	if err := WriteJSON(filepath.Join(t.TempDir(), "r.json"), nil); err == nil {
		t.Fatal("expected error for nil report")
	}
}
