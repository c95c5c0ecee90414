package sharepoint

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/docspectre/internal/models"
	"gitlab.com/tozd/go/errors"
)

type listItemFields struct {
	Modified   string `json:"Modified"`
	AuthorID   *int   `json:"AuthorId"`
	EditorID   *int   `json:"EditorId"`
	CreatedBy  string `json:"Created_x0020_By"`
	ModifiedBy string `json:"Modified_x0020_By"`
}

type siteUser struct {
	Title string `json:"Title"`
	Email string `json:"Email"`
}

// Lookup reads the list item fields of a document.
// It returns nil, nil when the document no longer exists.
func (c *Client) Lookup(ctx context.Context, file models.CandidateFile) (*models.ItemMetadata, error) {
	web := c.webFor(file.SiteURL)

	var fields listItemFields
	query := url.Values{"$select": {"Modified,AuthorId,EditorId,Created_x0020_By,Modified_x0020_By"}}
	if err := c.getJSON(ctx, web, fileEndpoint(file.Path, "/ListItemAllFields"), query, &fields); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Errorf("list item fields for %s: %w", file.Path, err)
	}

	meta := &models.ItemMetadata{
		CreatedBy:  identityFromClaims(fields.CreatedBy),
		ModifiedBy: identityFromClaims(fields.ModifiedBy),
	}

	if t := parseTime(fields.Modified); !t.IsZero() {
		meta.Modified = &t
	}

	var err error
	if fields.AuthorID != nil {
		if meta.Author, err = c.resolveUser(ctx, web, *fields.AuthorID); err != nil {
			return nil, err
		}
	}
	if fields.EditorID != nil {
		if meta.Editor, err = c.resolveUser(ctx, web, *fields.EditorID); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// resolveUser maps a site user id to a display name and email.
// Unknown users resolve to nil rather than an error.
func (c *Client) resolveUser(ctx context.Context, web *url.URL, id int) (*models.Identity, error) {
	key := web.String() + "#" + fmt.Sprint(id)
	if identity, ok := c.users.get(key); ok {
		return identity, nil
	}

	var user siteUser
	endpoint := fmt.Sprintf("/_api/web/getuserbyid(%d)", id)
	err := c.getJSON(ctx, web, endpoint, url.Values{"$select": {"Title,Email"}}, &user)
	if err != nil && !IsNotFound(err) {
		return nil, errors.Errorf("resolve user %d: %w", id, err)
	}

	var identity *models.Identity
	if err == nil && (user.Title != "" || user.Email != "") {
		identity = &models.Identity{
			Name:  strings.TrimSpace(user.Title),
			Email: strings.TrimSpace(user.Email),
		}
	}
	c.users.set(key, identity)
	return identity, nil
}

// identityFromClaims turns a claims login such as
// "i:0#.f|membership|ann@contoso.com" into an identity
func identityFromClaims(claims string) *models.Identity {
	claims = strings.TrimSpace(claims)
	if claims == "" {
		return nil
	}
	if idx := strings.LastIndex(claims, "|"); idx >= 0 {
		claims = claims[idx+1:]
	}
	if claims == "" {
		return nil
	}

	identity := &models.Identity{Name: claims}
	if strings.Contains(claims, "@") {
		identity.Email = claims
	}
	return identity
}
