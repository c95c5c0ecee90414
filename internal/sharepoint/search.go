package sharepoint

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/docspectre/internal/collector"
	"github.com/ppiankov/docspectre/internal/models"
	"gitlab.com/tozd/go/errors"
)

var selectProperties = []string{
	"Path",
	"Filename",
	"FileExtension",
	"FileType",
	"Size",
	"LastModifiedTime",
	"Created",
	"Author",
	"CreatedBy",
	"ModifiedBy",
	"ViewsLifeTime",
	"ViewsRecent",
	"LastViewedTime",
	"CheckoutUser",
	"SPWebUrl",
}

// Layouts seen in search cell values, most common first
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 15:04:05",
}

type searchResponse struct {
	PrimaryQueryResult struct {
		RelevantResults struct {
			RowCount  int `json:"RowCount"`
			TotalRows int `json:"TotalRows"`
			Table     struct {
				Rows []struct {
					Cells []searchCell `json:"Cells"`
				} `json:"Rows"`
			} `json:"Table"`
		} `json:"RelevantResults"`
	} `json:"PrimaryQueryResult"`
}

type searchCell struct {
	Key   string  `json:"Key"`
	Value *string `json:"Value"`
}

// Search returns one page of the search index
func (c *Client) Search(ctx context.Context, query collector.Query, offset, limit int) ([]models.SearchRow, error) {
	params := map[string][]string{
		"querytext":        {"'" + strings.ReplaceAll(query.String(), "'", "''") + "'"},
		"startrow":         {strconv.Itoa(offset)},
		"rowlimit":         {strconv.Itoa(limit)},
		"selectproperties": {"'" + strings.Join(selectProperties, ",") + "'"},
		"trimduplicates":   {"false"},
	}

	var resp searchResponse
	if err := c.getJSON(ctx, c.site, "/_api/search/query", params, &resp); err != nil {
		return nil, errors.Errorf("search at row %d: %w", offset, err)
	}

	results := resp.PrimaryQueryResult.RelevantResults
	rows := make([]models.SearchRow, 0, len(results.Table.Rows))
	for _, r := range results.Table.Rows {
		rows = append(rows, rowFromCells(r.Cells))
	}

	c.logger.Debug().
		Int("offset", offset).
		Int("rows", len(rows)).
		Int("total_rows", results.TotalRows).
		Msg("search page fetched")

	return rows, nil
}

func rowFromCells(cells []searchCell) models.SearchRow {
	values := make(map[string]string, len(cells))
	for _, cell := range cells {
		if cell.Value != nil {
			values[cell.Key] = strings.TrimSpace(*cell.Value)
		}
	}

	row := models.SearchRow{
		Path:          values["Path"],
		Name:          values["Filename"],
		Extension:     values["FileExtension"],
		FileType:      values["FileType"],
		Size:          parseSize(values["Size"]),
		LastModified:  parseTime(values["LastModifiedTime"]),
		Created:       parseTime(values["Created"]),
		Author:        firstName(values["Author"]),
		CreatedBy:     firstName(values["CreatedBy"]),
		ModifiedBy:    firstName(values["ModifiedBy"]),
		ViewsLifetime: parseCount(values["ViewsLifeTime"]),
		ViewsRecent:   parseCount(values["ViewsRecent"]),
		SiteURL:       values["SPWebUrl"],
	}

	if t := parseTime(values["LastViewedTime"]); !t.IsZero() {
		row.LastViewed = &t
	}
	if user := values["CheckoutUser"]; user != "" {
		row.CheckoutUser = &user
	}
	return row
}

// parseSize returns -1 for unparsable sizes so the analyzer rejects the file
func parseSize(value string) int64 {
	if value == "" {
		return -1
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func parseCount(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// firstName takes the first entry of a multi-valued people property
func firstName(value string) string {
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
