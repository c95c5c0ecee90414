package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/docspectre/internal/aggregator"
	"github.com/ppiankov/docspectre/internal/analyzer"
	"github.com/ppiankov/docspectre/internal/collector"
	"github.com/ppiankov/docspectre/internal/enricher"
	"github.com/ppiankov/docspectre/internal/k8s"
	"github.com/ppiankov/docspectre/internal/logging"
	"github.com/ppiankov/docspectre/internal/models"
	"github.com/ppiankov/docspectre/internal/reporter"
	"github.com/ppiankov/docspectre/internal/retry"
	"github.com/ppiankov/docspectre/internal/sharepoint"
	"github.com/ppiankov/docspectre/pkg/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Environment variables that carry secrets so they stay out of shell history
const (
	envClientSecret = "DOCSPECTRE_CLIENT_SECRET"
	envAccessToken  = "DOCSPECTRE_ACCESS_TOKEN"
)

// backend is a document source: search index, item metadata and version history
type backend interface {
	collector.Searcher
	enricher.MetadataLookup
	analyzer.VersionLister
	Close() error
}

// openBackend is swapped in tests
var openBackend = openConfiguredBackend

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	return newAnalyzeCmd(config.DefaultConfig())
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	// String variables for custom duration parsing
	var pageDelayStr string
	var retryBaseDelayStr string
	var cooldownStr string
	var requestTimeoutStr string
	var userCacheTTLStr string
	var configPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze document version costs and generate reports",
		Long: `Search the site for large documents, read their version history and
ownership, and write a CSV listing, an Excel workbook and a JSON report.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			durations := []struct {
				flag  string
				value string
				dst   *time.Duration
			}{
				{"page-delay", pageDelayStr, &cfg.PageDelay},
				{"retry-base-delay", retryBaseDelayStr, &cfg.RetryBaseDelay},
				{"rate-limit-cooldown", cooldownStr, &cfg.RateLimitCooldown},
				{"request-timeout", requestTimeoutStr, &cfg.RequestTimeout},
				{"user-cache-ttl", userCacheTTLStr, &cfg.UserCacheTTL},
			}
			for _, d := range durations {
				if d.value == "" {
					continue
				}
				parsed, err := config.ParseDuration(d.value)
				if err != nil {
					return fmt.Errorf("invalid --%s duration: %w", d.flag, err)
				}
				*d.dst = parsed
			}

			if err := loadConfigFile(cmd, cfg, configPath); err != nil {
				return err
			}

			if cfg.ClientSecret == "" {
				cfg.ClientSecret = strings.TrimSpace(os.Getenv(envClientSecret))
			}
			if cfg.AccessToken == "" {
				cfg.AccessToken = strings.TrimSpace(os.Getenv(envAccessToken))
			}

			cfg.Normalize()
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				cfg.Verbose = true
			}
			return runAnalyze(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: .docspectre.yaml in cwd or home)")

	// Source flags
	cmd.Flags().StringVar(&cfg.Source, "source", cfg.Source, "Document source (sharepoint or clickhouse)")
	cmd.Flags().StringVar(&cfg.SiteURL, "site-url", "", "SharePoint site URL")
	cmd.Flags().StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", "", "ClickHouse DSN of an inventory mirror")

	// Session flags
	cmd.Flags().StringVar(&cfg.TenantID, "tenant-id", "", "Entra ID tenant ID")
	cmd.Flags().StringVar(&cfg.ClientID, "client-id", "", "App registration client ID (secret via "+envClientSecret+")")
	cmd.Flags().StringVar(&cfg.CredentialsSecret, "credentials-secret", "", "Kubernetes secret holding tenant_id, client_id and client_secret (namespace/name)")
	cmd.Flags().StringVar(&cfg.KubeConfig, "kubeconfig", "", "Path to kubeconfig (default: in-cluster, then ~/.kube/config)")
	cmd.Flags().StringVar(&cfg.Proxy, "proxy", "", "HTTP or SOCKS5 proxy URL")
	cmd.Flags().StringVar(&requestTimeoutStr, "request-timeout", "2m", "Per-request timeout (e.g., 30s, 2m)")
	cmd.Flags().IntVar(&cfg.RequestsPerSecond, "requests-per-second", cfg.RequestsPerSecond, "Client-side request rate limit (0 disables)")
	cmd.Flags().StringVar(&userCacheTTLStr, "user-cache-ttl", "30m", "How long resolved site users are cached")

	// Discovery flags
	cmd.Flags().Float64Var(&cfg.MinSizeMB, "min-size", cfg.MinSizeMB, "Minimum current file size in MB")
	cmd.Flags().IntVar(&cfg.MaxFiles, "max-files", cfg.MaxFiles, "Maximum number of files to analyze")
	cmd.Flags().IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Search results per page")
	cmd.Flags().StringVar(&pageDelayStr, "page-delay", "500ms", "Pause between search pages")
	cmd.Flags().StringSliceVar(&cfg.Extensions, "extensions", nil, "Restrict to file extensions (e.g., docx,pdf)")
	cmd.Flags().StringSliceVar(&cfg.ExcludePaths, "exclude-path", nil, "Exclude document paths matching glob (repeatable)")

	// Retry flags
	cmd.Flags().IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "Retries after the first failed request")
	cmd.Flags().StringVar(&retryBaseDelayStr, "retry-base-delay", "5s", "First retry backoff, doubled on each retry")
	cmd.Flags().StringVar(&cooldownStr, "rate-limit-cooldown", "30s", "Extra wait after a throttled request")

	// Analysis flags
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, fmt.Sprintf("Files analyzed in parallel (1-%d)", config.MaxConcurrency))
	cmd.Flags().IntVar(&cfg.StaleDays, "stale-days", cfg.StaleDays, "Days without access before a file is stale")
	cmd.Flags().IntVar(&cfg.TopOverheadLimit, "top-overhead", cfg.TopOverheadLimit, "Rows in the top version overhead view")

	// Output flags
	cmd.Flags().StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Output directory")
	cmd.Flags().StringVar(&cfg.LogDir, "log-dir", "", "Run log directory (default: output directory)")
	cmd.Flags().StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	cmd.Flags().StringVar(&cfg.UploadURL, "upload", "", "Upload artifacts to s3://bucket/prefix")

	// Operational flags
	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "Analyze without writing report artifacts")

	return cmd
}

// loadConfigFile applies an explicit --config file, or the first auto-discovered one.
// Flags given on the command line win over file values.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config, path string) error {
	var (
		fileCfg *config.FileConfig
		err     error
	)
	if strings.TrimSpace(path) != "" {
		fileCfg, err = config.LoadFile(path)
	} else {
		fileCfg, path, err = config.AutoLoadFile()
	}
	if err != nil {
		return err
	}
	if fileCfg == nil {
		if isFirstRun {
			cmd.PrintErrf("Tip: put defaults such as site_url in %s to skip repeating flags\n", config.DefaultConfigFileYAML)
		}
		return nil
	}

	if err := fileCfg.ApplyTo(cfg, cmd.Flags().Changed); err != nil {
		return fmt.Errorf("failed to apply config file %q: %w", path, err)
	}
	return nil
}

// runAnalyze executes the analysis workflow
func runAnalyze(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()
	runID := uuid.NewString()

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = cfg.OutputDir
	}
	runLog, err := logging.OpenRunLog(logDir, startTime, stderr, cfg.Verbose)
	if err != nil {
		return err
	}
	defer runLog.Close()

	logger := runLog.Logger().With().Str("run_id", runID).Logger()
	logger.Info().
		Str("source", cfg.Source).
		Str("target", cfg.Target()).
		Float64("min_size_mb", cfg.MinSizeMB).
		Int("max_files", cfg.MaxFiles).
		Int("concurrency", cfg.Concurrency).
		Int("retry_attempts", cfg.RetryAttempts).
		Str("log", runLog.Path()).
		Msg("starting analysis")

	// 1. Open the document source
	src, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()
	logging.Success(logger).Str("source", cfg.Source).Msg("session established")

	policy := retry.Policy{
		MaxAttempts:       cfg.RetryAttempts,
		BaseDelay:         cfg.RetryBaseDelay,
		RateLimitCooldown: cfg.RateLimitCooldown,
		IsRateLimited:     sharepoint.IsRateLimited,
		IsPermanent: func(err error) bool {
			return sharepoint.IsPermanent(err) || collector.IsAuthError(err)
		},
	}

	// 2. Discover candidate files
	discovery := collector.NewDiscovery(src, collector.DiscoveryOptions{
		Query:     collector.NewQuery(cfg.MinSizeBytes(), cfg.Extensions),
		PageSize:  cfg.PageSize,
		MaxFiles:  cfg.MaxFiles,
		PageDelay: cfg.PageDelay,
		Exclude:   cfg.IsPathExcluded,
		Retry:     policy,
	}, logger)

	files, err := discovery.Discover(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}
	logging.Success(logger).Int("files", len(files)).Msg("candidate files selected")

	// 3. Enrich and analyze every file
	progress := reporter.NewProgressPrinter(stderr)
	pipeline := analyzer.NewPipeline(
		enricher.New(src, policy, logger),
		analyzer.New(src, policy, logger),
		analyzer.PipelineOptions{Concurrency: cfg.Concurrency, OnProgress: progress.Print},
		logger,
	)

	result, err := pipeline.Run(ctx, files)
	if err != nil {
		return fmt.Errorf("analysis aborted: %w", err)
	}
	stats := result.Accumulator.Snapshot()
	logging.Success(logger).
		Int("analyzed", stats.FilesAnalyzed).
		Int("skipped", result.Skipped).
		Int("with_versions", stats.FilesWithVersions).
		Msg("all files processed")

	// 4. Build views and report
	views := aggregator.BuildViews(result.Accumulator.Records(), stats, aggregator.Options{
		StaleDays:        cfg.StaleDays,
		TopOverheadLimit: cfg.TopOverheadLimit,
	})
	report := buildReport(cfg, runID, len(files), result, views, startTime)

	// 5. Write output
	var artifacts []string
	if !cfg.DryRun {
		uploader, err := newUploader(ctx, cfg, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("upload disabled")
		}

		rep := reporter.New(reporter.Options{
			OutputDir:   cfg.OutputDir,
			StaleDays:   cfg.StaleDays,
			MetricsFile: cfg.MetricsFile,
		}, uploader, logger)

		artifacts, err = rep.Generate(ctx, report, stats, time.Since(startTime))
		if err != nil {
			logger.Warn().Err(err).Msg("some report artifacts were not written")
		}
	} else {
		logger.Info().Msg("dry run, skipping report artifacts")
	}

	if err := reporter.WriteSummary(stdout, report, artifacts); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	logging.Success(logger).
		Str("duration", time.Since(startTime).Round(time.Second).String()).
		Msg("run finished")
	return nil
}

func openConfiguredBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (backend, error) {
	switch cfg.Source {
	case config.SourceClickHouse:
		mirror, err := collector.OpenClickHouseMirror(ctx, cfg.ClickHouseDSN, cfg.RequestTimeout, logger)
		if err != nil {
			return nil, err
		}
		if err := mirror.CheckSchema(ctx); err != nil {
			_ = mirror.Close()
			return nil, err
		}
		return mirror, nil
	default:
		opts := sharepoint.Options{
			SiteURL:           cfg.SiteURL,
			TenantID:          cfg.TenantID,
			ClientID:          cfg.ClientID,
			ClientSecret:      cfg.ClientSecret,
			AccessToken:       cfg.AccessToken,
			Proxy:             cfg.Proxy,
			Timeout:           cfg.RequestTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			UserCacheTTL:      cfg.UserCacheTTL,
		}

		if cfg.CredentialsSecret != "" {
			kc, err := k8s.NewClient(cfg.KubeConfig, logger)
			if err != nil {
				return nil, err
			}
			creds, err := kc.LoadCredentials(ctx, cfg.CredentialsSecret)
			if err != nil {
				return nil, err
			}
			opts.TenantID = creds.TenantID
			opts.ClientID = creds.ClientID
			opts.ClientSecret = creds.ClientSecret
		}

		client, err := sharepoint.NewClient(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		if err := client.Connect(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		return client, nil
	}
}

func newUploader(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (reporter.Uploader, error) {
	if cfg.UploadURL == "" {
		return nil, nil
	}
	uploader, err := reporter.NewS3Uploader(ctx, cfg.UploadURL, logger)
	if err != nil {
		return nil, err
	}
	return uploader, nil
}

// buildReport constructs the final report
func buildReport(
	cfg *config.Config,
	runID string,
	discovered int,
	result *analyzer.Result,
	views *models.Views,
	startTime time.Time,
) *models.Report {
	generatedAt := time.Now().UTC()

	return &models.Report{
		Tool:      "docspectre",
		Version:   version,
		Timestamp: generatedAt.Format(time.RFC3339),
		Metadata: models.Metadata{
			RunID:            runID,
			GeneratedAt:      generatedAt,
			Source:           cfg.Source,
			Target:           cfg.Target(),
			MinSizeMB:        cfg.MinSizeMB,
			Extensions:       cfg.Extensions,
			FilesDiscovered:  discovered,
			FilesSkipped:     result.Skipped,
			StaleDays:        cfg.StaleDays,
			AnalysisDuration: time.Since(startTime).Round(time.Second).String(),
			Version:          version,
		},
		Views: views,
	}
}
