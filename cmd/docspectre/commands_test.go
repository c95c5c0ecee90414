package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/docspectre/internal/collector"
	"github.com/ppiankov/docspectre/internal/models"
	"github.com/ppiankov/docspectre/internal/sharepoint"
	"github.com/ppiankov/docspectre/pkg/config"
	"github.com/rs/zerolog"
)

type fakeBackend struct {
	rows     []models.SearchRow
	versions map[string][]models.VersionEntry
	closed   bool
}

func (f *fakeBackend) Search(ctx context.Context, query collector.Query, offset, limit int) ([]models.SearchRow, error) {
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

func (f *fakeBackend) Lookup(ctx context.Context, file models.CandidateFile) (*models.ItemMetadata, error) {
	return &models.ItemMetadata{
		Author: &models.Identity{Name: "Ann Lee", Email: "ann@contoso.com"},
	}, nil
}

func (f *fakeBackend) ListVersions(ctx context.Context, file models.CandidateFile) ([]models.VersionEntry, error) {
	return f.versions[file.Path], nil
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func newFakeBackend() *fakeBackend {
	now := time.Now().UTC()
	rows := []models.SearchRow{
		{
			Path:         "https://contoso.sharepoint.com/sites/legal/Shared Documents/contract.docx",
			Size:         20 * models.BytesPerMB,
			LastModified: now.AddDate(0, 0, -120),
			Created:      now.AddDate(0, -8, 0),
			Author:       "Ann Lee",
		},
		{
			Path:         "https://contoso.sharepoint.com/sites/legal/Shared Documents/memo.pdf",
			Size:         5 * models.BytesPerMB,
			LastModified: now.AddDate(0, 0, -3),
			Created:      now.AddDate(0, -1, 0),
			Author:       "Bob Roe",
		},
		{
			Path:     "https://contoso.sharepoint.com/sites/legal/SitePages/Home.aspx",
			FileType: "aspx",
			Size:     30 * models.BytesPerMB,
		},
	}

	return &fakeBackend{
		rows: rows,
		versions: map[string][]models.VersionEntry{
			"/sites/legal/Shared Documents/contract.docx": {
				{Label: "1.0", Size: 10 * models.BytesPerMB, Created: now.AddDate(0, -8, 0)},
				{Label: "2.0", Size: 15 * models.BytesPerMB, Created: now.AddDate(0, -6, 0)},
			},
		},
	}
}

func useBackend(t *testing.T, b backend, openErr error) {
	t.Helper()
	previous := openBackend
	openBackend = func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (backend, error) {
		if openErr != nil {
			return nil, openErr
		}
		return b, nil
	}
	t.Cleanup(func() { openBackend = previous })
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SiteURL = "https://contoso.sharepoint.com/sites/legal"
	cfg.AccessToken = "token"
	cfg.OutputDir = t.TempDir()
	cfg.PageSize = 2
	cfg.PageDelay = 0
	cfg.RequestsPerSecond = 0
	cfg.Normalize()
	return cfg
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".docspectre.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestNewAnalyzeCmdPreRunValidation(t *testing.T) {
	tests := []struct {
		name    string
		flags   map[string]string
		wantErr string
	}{
		{
			name:  "valid_sharepoint",
			flags: map[string]string{"site-url": "https://contoso.sharepoint.com/sites/legal"},
		},
		{
			name:  "valid_clickhouse",
			flags: map[string]string{"source": "clickhouse", "clickhouse-dsn": "clickhouse://localhost:9000/inventory"},
		},
		{
			name:    "missing_site_url",
			flags:   map[string]string{},
			wantErr: "--site-url is required",
		},
		{
			name:    "invalid_source",
			flags:   map[string]string{"source": "onedrive"},
			wantErr: "invalid --source value",
		},
		{
			name: "invalid_page_delay",
			flags: map[string]string{
				"site-url":   "https://contoso.sharepoint.com/sites/legal",
				"page-delay": "soon",
			},
			wantErr: "invalid --page-delay duration",
		},
		{
			name: "invalid_user_cache_ttl",
			flags: map[string]string{
				"site-url":       "https://contoso.sharepoint.com/sites/legal",
				"user-cache-ttl": "bad",
			},
			wantErr: "invalid --user-cache-ttl duration",
		},
		{
			name: "concurrency_out_of_range",
			flags: map[string]string{
				"site-url":    "https://contoso.sharepoint.com/sites/legal",
				"concurrency": "9",
			},
			wantErr: "--concurrency must be between 1 and 8",
		},
		{
			name: "invalid_upload",
			flags: map[string]string{
				"site-url": "https://contoso.sharepoint.com/sites/legal",
				"upload":   "gs://bucket",
			},
			wantErr: "invalid --upload",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := NewAnalyzeCmd()
			tc.flags["config"] = writeConfigFile(t, "stale_days: 45\n")

			for name, value := range tc.flags {
				if err := cmd.Flags().Set(name, value); err != nil {
					t.Fatalf("failed to set %s flag: %v", name, err)
				}
			}

			err := cmd.PreRunE(cmd, nil)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAnalyzeCmdConfigFileAndFlagPrecedence(t *testing.T) {
	path := writeConfigFile(t, strings.Join([]string{
		"site_url: https://contoso.sharepoint.com/sites/legal",
		"stale_days: 30",
		"max_files: 10",
		"page_delay: 2s",
		"extensions: [DOCX, .pdf]",
	}, "\n"))

	cfg := config.DefaultConfig()
	cmd := newAnalyzeCmd(cfg)
	for name, value := range map[string]string{
		"config":    path,
		"max-files": "25",
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("failed to set %s flag: %v", name, err)
		}
	}

	if err := cmd.PreRunE(cmd, nil); err != nil {
		t.Fatalf("PreRunE failed: %v", err)
	}

	if cfg.MaxFiles != 25 {
		t.Fatalf("expected flag to win for max files, got %d", cfg.MaxFiles)
	}
	if cfg.StaleDays != 30 {
		t.Fatalf("expected stale days from file, got %d", cfg.StaleDays)
	}
	if cfg.PageDelay != 2*time.Second {
		t.Fatalf("expected page delay from file, got %s", cfg.PageDelay)
	}
	if cfg.SiteURL != "https://contoso.sharepoint.com/sites/legal" {
		t.Fatalf("unexpected site url %q", cfg.SiteURL)
	}
	if strings.Join(cfg.Extensions, ",") != "docx,pdf" {
		t.Fatalf("expected normalized extensions, got %v", cfg.Extensions)
	}
}

func TestAnalyzeCmdReadsSecretsFromEnv(t *testing.T) {
	t.Setenv(envClientSecret, " s3cret ")
	t.Setenv(envAccessToken, "pre-issued")

	cfg := config.DefaultConfig()
	cmd := newAnalyzeCmd(cfg)
	for name, value := range map[string]string{
		"config":    writeConfigFile(t, "tenant_id: tenant\n"),
		"site-url":  "https://contoso.sharepoint.com/sites/legal",
		"client-id": "app",
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("failed to set %s flag: %v", name, err)
		}
	}
	if err := cmd.PreRunE(cmd, nil); err != nil {
		t.Fatalf("PreRunE failed: %v", err)
	}

	if cfg.ClientSecret != "s3cret" {
		t.Fatalf("expected client secret from env, got %q", cfg.ClientSecret)
	}
	if cfg.AccessToken != "pre-issued" {
		t.Fatalf("expected access token from env, got %q", cfg.AccessToken)
	}
	if cfg.TenantID != "tenant" || cfg.ClientID != "app" {
		t.Fatalf("unexpected credentials %q / %q", cfg.TenantID, cfg.ClientID)
	}
	if cmd.Flags().Lookup("client-secret") != nil {
		t.Fatalf("client secret must not be exposed as a flag")
	}
}

func TestRunAnalyzeWritesArtifacts(t *testing.T) {
	fake := newFakeBackend()
	useBackend(t, fake, nil)

	cfg := testConfig(t)
	cfg.MetricsFile = filepath.Join(cfg.OutputDir, "docspectre.prom")

	var stdout, stderr bytes.Buffer
	if err := runAnalyze(context.Background(), cfg, &stdout, &stderr); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}

	if !fake.closed {
		t.Fatalf("expected backend to be closed")
	}

	for _, pattern := range []string{"docspectre-*.csv", "docspectre-*.xlsx", "docspectre-*.json", "docspectre-*.log"} {
		matches, err := filepath.Glob(filepath.Join(cfg.OutputDir, pattern))
		if err != nil {
			t.Fatalf("glob %s: %v", pattern, err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected one %s artifact, got %v", pattern, matches)
		}
	}
	if _, err := os.Stat(cfg.MetricsFile); err != nil {
		t.Fatalf("expected metrics file: %v", err)
	}

	summary := stdout.String()
	if !strings.Contains(summary, "docspectre version cost report") {
		t.Fatalf("expected summary title, got:\n%s", summary)
	}
	if !strings.Contains(summary, "contract.docx") {
		t.Fatalf("expected largest file in summary, got:\n%s", summary)
	}
	if strings.Contains(summary, "Home.aspx") {
		t.Fatalf("site pages must not be analyzed, got:\n%s", summary)
	}

	if !strings.Contains(stderr.String(), "[2/2") {
		t.Fatalf("expected progress for both files, got:\n%s", stderr.String())
	}

	logs, _ := filepath.Glob(filepath.Join(cfg.OutputDir, "docspectre-*.log"))
	data, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	if !strings.Contains(string(data), "[SUCCESS]") || !strings.Contains(string(data), "run finished") {
		t.Fatalf("expected success milestones in run log, got:\n%s", data)
	}
}

func TestRunAnalyzeDryRunSkipsArtifacts(t *testing.T) {
	useBackend(t, newFakeBackend(), nil)

	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.LogDir = t.TempDir()

	var stdout, stderr bytes.Buffer
	if err := runAnalyze(context.Background(), cfg, &stdout, &stderr); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no artifacts in dry run, got %d entries", len(entries))
	}

	logs, _ := filepath.Glob(filepath.Join(cfg.LogDir, "docspectre-*.log"))
	if len(logs) != 1 {
		t.Fatalf("expected run log in log dir, got %v", logs)
	}
	if !strings.Contains(stdout.String(), "docspectre version cost report") {
		t.Fatalf("expected summary on stdout even in dry run")
	}
}

func TestRunAnalyzeEmptyDiscovery(t *testing.T) {
	useBackend(t, &fakeBackend{}, nil)

	cfg := testConfig(t)
	var stdout, stderr bytes.Buffer
	if err := runAnalyze(context.Background(), cfg, &stdout, &stderr); err != nil {
		t.Fatalf("empty discovery must not fail the run: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(cfg.OutputDir, "docspectre-*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected an empty JSON report, got %v", matches)
	}
}

func TestRunAnalyzeSessionFailure(t *testing.T) {
	sessionErr := fmt.Errorf("failed to establish SharePoint session: %w",
		&sharepoint.StatusError{StatusCode: 401, URL: "https://contoso.sharepoint.com/_api/web"})
	useBackend(t, nil, sessionErr)

	cfg := testConfig(t)
	var stdout, stderr bytes.Buffer
	err := runAnalyze(context.Background(), cfg, &stdout, &stderr)
	if !errors.Is(err, sessionErr) {
		t.Fatalf("expected session error, got %v", err)
	}
	if got := classifyError(err); got != ExitNetwork {
		t.Fatalf("expected exit code %d, got %d", ExitNetwork, got)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no summary after session failure")
	}
}

func TestRunAnalyzeCancelled(t *testing.T) {
	useBackend(t, newFakeBackend(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig(t)
	var stdout, stderr bytes.Buffer
	err := runAnalyze(ctx, cfg, &stdout, &stderr)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(cfg.OutputDir, "docspectre-*.json"))
	if len(matches) != 0 {
		t.Fatalf("cancelled run must not export, got %v", matches)
	}
}

func TestOpenConfiguredBackendBadKubeconfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.CredentialsSecret = "docs/sharepoint-app"
	cfg.KubeConfig = filepath.Join(t.TempDir(), "missing-kubeconfig")

	_, err := openConfiguredBackend(context.Background(), cfg, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "failed to load kubeconfig") {
		t.Fatalf("expected kubeconfig error, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "not_exist", err: os.ErrNotExist, want: ExitNotFound},
		{name: "sharepoint_404", err: &sharepoint.StatusError{StatusCode: 404}, want: ExitNotFound},
		{name: "sharepoint_403", err: &sharepoint.StatusError{StatusCode: 403}, want: ExitNetwork},
		{name: "clickhouse_auth", err: errors.New("code: 516, authentication failed"), want: ExitNetwork},
		{name: "dial", err: errors.New("dial tcp 10.0.0.1:443: connection refused"), want: ExitNetwork},
		{name: "invalid_flag", err: errors.New("invalid --source value \"x\""), want: ExitInvalidArg},
		{name: "required_flag", err: errors.New("--site-url is required for the sharepoint source"), want: ExitInvalidArg},
		{name: "cancelled", err: fmt.Errorf("analysis aborted: %w", context.Canceled), want: ExitInternal},
		{name: "other", err: errors.New("boom"), want: ExitInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyError(tc.err); got != tc.want {
				t.Fatalf("classifyError(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"analyze", "schema", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %s command, got %v (%v)", name, cmd, err)
		}
	}
}

func TestSchemaCmdPrintsMirrorDDL(t *testing.T) {
	cmd := NewSchemaCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("schema command failed: %v", err)
	}
	for _, table := range []string{"documents", "document_versions", "document_metadata"} {
		if !strings.Contains(out.String(), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("expected %s table in schema output", table)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "docspectre "+version+"\n") {
		t.Fatalf("expected version first, got %q", out.String())
	}
}

func TestBuildDetails(t *testing.T) {
	tests := []struct {
		name string
		info *debug.BuildInfo
		want []string
	}{
		{name: "no_build_info", info: nil, want: nil},
		{
			name: "module_only",
			info: &debug.BuildInfo{Main: debug.Module{Path: "github.com/ppiankov/docspectre"}},
			want: []string{"module: github.com/ppiankov/docspectre"},
		},
		{
			name: "clean_commit",
			info: &debug.BuildInfo{
				Main: debug.Module{Path: "github.com/ppiankov/docspectre"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "4f1c2d9e8b7a6f5e4d3c2b1a"},
					{Key: "vcs.modified", Value: "false"},
				},
			},
			want: []string{"module: github.com/ppiankov/docspectre", "commit: 4f1c2d9e8b7a"},
		},
		{
			name: "dirty_commit",
			info: &debug.BuildInfo{
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abc123"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			want: []string{"commit: abc123 (dirty)"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := buildDetails(tc.info)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("buildDetails() = %v, want %v", got, tc.want)
			}
		})
	}
}
