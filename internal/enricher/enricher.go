// Package enricher resolves ownership and last-access attribution for
// discovered documents.
package enricher

import (
	"context"
	"strings"

	"github.com/ppiankov/docspectre/internal/models"
	"github.com/ppiankov/docspectre/internal/retry"
	"github.com/rs/zerolog"
)

// MetadataLookup reads the secondary metadata record of a document.
// A nil record with a nil error means the document has no record.
type MetadataLookup interface {
	Lookup(ctx context.Context, file models.CandidateFile) (*models.ItemMetadata, error)
}

// Enricher builds Ownership from a metadata lookup with fallbacks to the
// search row. It never fails.
type Enricher struct {
	lookup MetadataLookup
	retry  retry.Policy
	logger zerolog.Logger
}

// New creates an enricher. A nil lookup resolves from the candidate alone.
func New(lookup MetadataLookup, policy retry.Policy, logger zerolog.Logger) *Enricher {
	return &Enricher{
		lookup: lookup,
		retry:  policy,
		logger: logger.With().Str("component", "enricher").Logger(),
	}
}

// Enrich resolves the owner, the last accessor and the last access date of file
func (e *Enricher) Enrich(ctx context.Context, file models.CandidateFile) models.Ownership {
	var meta *models.ItemMetadata
	if e.lookup != nil {
		var err error
		meta, err = retry.Do(ctx, e.retry, "metadata lookup", func(ctx context.Context) (*models.ItemMetadata, error) {
			return e.lookup.Lookup(ctx, file)
		})
		if err != nil {
			e.logger.Warn().
				Err(err).
				Str("path", file.Path).
				Msg("metadata lookup failed, using search attributes")
			meta = nil
		}
	}
	return Resolve(file, meta)
}

// Resolve applies the fallback chains to a candidate and an optional metadata record.
//
//	owner:            Author, Created By, file author, file creator, Unknown
//	last accessed by: Modified By, Editor, file modifier, Unknown
//	last accessed at: Modified, file last-modified
func Resolve(file models.CandidateFile, meta *models.ItemMetadata) models.Ownership {
	if meta == nil {
		meta = &models.ItemMetadata{}
	}

	out := models.Ownership{
		Owner:            models.UnknownIdentity,
		LastAccessedBy:   models.UnknownIdentity,
		LastAccessedDate: file.LastModified,
	}

	if owner := firstIdentity(meta.Author, meta.CreatedBy); owner != nil {
		out.Owner = strings.TrimSpace(owner.Name)
		if email := strings.TrimSpace(owner.Email); email != "" {
			out.OwnerEmail = &email
		}
	} else if name := firstString(file.Author, file.CreatedBy); name != "" {
		out.Owner = name
	}

	if accessor := firstIdentity(meta.ModifiedBy, meta.Editor); accessor != nil {
		out.LastAccessedBy = strings.TrimSpace(accessor.Name)
	} else if name := firstString(file.ModifiedBy); name != "" {
		out.LastAccessedBy = name
	}

	if meta.Modified != nil && !meta.Modified.IsZero() {
		out.LastAccessedDate = meta.Modified.UTC()
	}

	return out
}

func firstIdentity(ids ...*models.Identity) *models.Identity {
	for _, id := range ids {
		if id.Resolved() {
			return id
		}
	}
	return nil
}

func firstString(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

