package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/ppiankov/docspectre/internal/models"
	"gitlab.com/tozd/go/errors"
)

type versionsResponse struct {
	Value []struct {
		VersionLabel string    `json:"VersionLabel"`
		Size         flexInt64 `json:"Size"`
		Created      string    `json:"Created"`
	} `json:"value"`
}

// flexInt64 accepts sizes encoded as JSON numbers or strings
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errors.Errorf("invalid size %q: %w", string(data), err)
	}
	*f = flexInt64(n)
	return nil
}

// ListVersions returns the historical versions of a document.
// The current content is not part of the list.
func (c *Client) ListVersions(ctx context.Context, file models.CandidateFile) ([]models.VersionEntry, error) {
	var resp versionsResponse
	query := url.Values{"$select": {"VersionLabel,Size,Created"}}
	if err := c.getJSON(ctx, c.webFor(file.SiteURL), fileEndpoint(file.Path, "/Versions"), query, &resp); err != nil {
		return nil, errors.Errorf("versions of %s: %w", file.Path, err)
	}

	versions := make([]models.VersionEntry, 0, len(resp.Value))
	for _, v := range resp.Value {
		versions = append(versions, models.VersionEntry{
			Label:   v.VersionLabel,
			Size:    int64(v.Size),
			Created: parseTime(v.Created),
		})
	}
	return versions, nil
}
