package reporter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/docspectre/internal/models"
)

// WriteJSON writes the report, views included, as indented JSON
func WriteJSON(path string, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
