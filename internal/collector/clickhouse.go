package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ppiankov/docspectre/internal/models"
	"github.com/rs/zerolog"
)

// MirrorSchema is the DDL of an offline inventory mirror
const MirrorSchema = `
CREATE TABLE IF NOT EXISTS documents (
	path String,
	url String,
	name String,
	extension String,
	file_type String,
	size Int64,
	last_modified DateTime64(3),
	created DateTime64(3),
	author String,
	created_by String,
	modified_by String,
	views_lifetime Int64,
	views_recent Int64,
	last_viewed Nullable(DateTime64(3)),
	checkout_user Nullable(String),
	site_url String
) ENGINE = ReplacingMergeTree ORDER BY path;

CREATE TABLE IF NOT EXISTS document_versions (
	path String,
	label String,
	size Int64,
	created DateTime64(3)
) ENGINE = MergeTree ORDER BY (path, created);

CREATE TABLE IF NOT EXISTS document_metadata (
	path String,
	author_name Nullable(String),
	author_email Nullable(String),
	created_by_name Nullable(String),
	created_by_email Nullable(String),
	modified_by_name Nullable(String),
	modified_by_email Nullable(String),
	editor_name Nullable(String),
	editor_email Nullable(String),
	modified Nullable(DateTime64(3))
) ENGINE = ReplacingMergeTree ORDER BY path;
`

var authErrorSubstrings = []string{
	"authentication failed",
	"authentication error",
	"invalid credentials",
	"invalid password",
	"password is incorrect",
	"wrong password",
	"unknown user",
	"unauthorized",
	"access denied",
	"code: 193",
	"code: 194",
	"code: 497",
	"code: 516",
}

// ClickHouseMirror serves search, metadata and version history from a
// ClickHouse copy of the document inventory
type ClickHouseMirror struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// OpenClickHouseMirror connects to the mirror described by dsn
func OpenClickHouseMirror(ctx context.Context, dsn string, timeout time.Duration, logger zerolog.Logger) (*ClickHouseMirror, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ClickHouse DSN: %w", err)
	}

	// Set connection pooling
	opts.MaxOpenConns = 10
	opts.MaxIdleConns = 5
	opts.ConnMaxLifetime = time.Hour

	if timeout > 0 {
		opts.ReadTimeout = timeout
	}
	opts.DialTimeout = 30 * time.Second

	// Readonly users cannot change settings such as max_execution_time
	opts.Settings = nil

	conn := clickhouse.OpenDB(opts)
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	mirror := NewClickHouseMirror(conn, logger)
	mirror.logger.Debug().Str("addr", strings.Join(opts.Addr, ",")).Msg("connected to ClickHouse mirror")
	return mirror, nil
}

// NewClickHouseMirror wraps an open connection
func NewClickHouseMirror(conn *sql.DB, logger zerolog.Logger) *ClickHouseMirror {
	return &ClickHouseMirror{
		conn:   conn,
		logger: logger.With().Str("component", "clickhouse").Logger(),
	}
}

// CheckSchema logs the columns of the documents table
func (m *ClickHouseMirror) CheckSchema(ctx context.Context) error {
	rows, err := m.conn.QueryContext(ctx, "DESCRIBE TABLE documents")
	if err != nil {
		return fmt.Errorf("failed to describe documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, typ, defaultType, defaultExpr, comment, codecExpr, ttlExpr string
		if err := rows.Scan(&name, &typ, &defaultType, &defaultExpr, &comment, &codecExpr, &ttlExpr); err != nil {
			m.logger.Debug().Err(err).Msg("failed to scan schema row")
			continue
		}
		m.logger.Debug().Str("column", name).Str("type", typ).Msg("documents schema")
	}
	return rows.Err()
}

// Search returns one page of documents matching query, largest first
func (m *ClickHouseMirror) Search(ctx context.Context, query Query, offset, limit int) ([]models.SearchRow, error) {
	stmt, args := buildSearchSQL(query, offset, limit)

	rows, err := m.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed at offset %d: %w", offset, err)
	}
	defer rows.Close()

	var page []models.SearchRow
	for rows.Next() {
		var row models.SearchRow
		var lastViewed sql.NullTime
		var checkoutUser sql.NullString

		if err := rows.Scan(
			&row.Path,
			&row.Name,
			&row.Extension,
			&row.FileType,
			&row.Size,
			&row.LastModified,
			&row.Created,
			&row.Author,
			&row.CreatedBy,
			&row.ModifiedBy,
			&row.ViewsLifetime,
			&row.ViewsRecent,
			&lastViewed,
			&checkoutUser,
			&row.SiteURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search row at offset %d: %w", offset+len(page), err)
		}

		if lastViewed.Valid {
			t := lastViewed.Time
			row.LastViewed = &t
		}
		if checkoutUser.Valid && checkoutUser.String != "" {
			user := checkoutUser.String
			row.CheckoutUser = &user
		}
		page = append(page, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search iteration failed at offset %d: %w", offset, err)
	}
	return page, nil
}

func buildSearchSQL(query Query, offset, limit int) (string, []any) {
	var b strings.Builder
	b.WriteString(`
		SELECT
			url,
			name,
			extension,
			file_type,
			size,
			last_modified,
			created,
			author,
			created_by,
			modified_by,
			views_lifetime,
			views_recent,
			last_viewed,
			checkout_user,
			site_url
		FROM documents
		WHERE size >= ?`)

	args := []any{query.MinSizeBytes}
	if len(query.Extensions) > 0 {
		placeholders := make([]string, len(query.Extensions))
		for i, ext := range query.Extensions {
			placeholders[i] = "?"
			args = append(args, ext)
		}
		b.WriteString("\n\t\t  AND lower(extension) IN (" + strings.Join(placeholders, ", ") + ")")
	}
	b.WriteString("\n\t\tORDER BY size DESC, path\n\t\tLIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	return b.String(), args
}

// Lookup returns the metadata record for file, or nil when the mirror has none
func (m *ClickHouseMirror) Lookup(ctx context.Context, file models.CandidateFile) (*models.ItemMetadata, error) {
	query := `
		SELECT
			author_name,
			author_email,
			created_by_name,
			created_by_email,
			modified_by_name,
			modified_by_email,
			editor_name,
			editor_email,
			modified
		FROM document_metadata
		WHERE path = ?
		LIMIT 1
	`

	var authorName, authorEmail, createdByName, createdByEmail sql.NullString
	var modifiedByName, modifiedByEmail, editorName, editorEmail sql.NullString
	var modified sql.NullTime

	err := m.conn.QueryRowContext(ctx, query, file.Path).Scan(
		&authorName, &authorEmail,
		&createdByName, &createdByEmail,
		&modifiedByName, &modifiedByEmail,
		&editorName, &editorEmail,
		&modified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metadata lookup failed for %s: %w", file.Path, err)
	}

	meta := &models.ItemMetadata{
		Author:     identityFrom(authorName, authorEmail),
		CreatedBy:  identityFrom(createdByName, createdByEmail),
		ModifiedBy: identityFrom(modifiedByName, modifiedByEmail),
		Editor:     identityFrom(editorName, editorEmail),
	}
	if modified.Valid && !modified.Time.IsZero() {
		t := modified.Time
		meta.Modified = &t
	}
	return meta, nil
}

func identityFrom(name, email sql.NullString) *models.Identity {
	n := strings.TrimSpace(name.String)
	e := strings.TrimSpace(email.String)
	if n == "" && e == "" {
		return nil
	}
	return &models.Identity{Name: n, Email: e}
}

// ListVersions returns the historical versions of file, oldest first
func (m *ClickHouseMirror) ListVersions(ctx context.Context, file models.CandidateFile) ([]models.VersionEntry, error) {
	query := `
		SELECT label, size, created
		FROM document_versions
		WHERE path = ?
		ORDER BY created
	`

	rows, err := m.conn.QueryContext(ctx, query, file.Path)
	if err != nil {
		return nil, fmt.Errorf("version query failed for %s: %w", file.Path, err)
	}
	defer rows.Close()

	var versions []models.VersionEntry
	for rows.Next() {
		var v models.VersionEntry
		if err := rows.Scan(&v.Label, &v.Size, &v.Created); err != nil {
			return nil, fmt.Errorf("failed to scan version of %s: %w", file.Path, err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("version iteration failed for %s: %w", file.Path, err)
	}
	return versions, nil
}

// Close closes the ClickHouse connection
func (m *ClickHouseMirror) Close() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

// IsAuthError reports whether err is a ClickHouse authentication failure
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range authErrorSubstrings {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
