package reporter

import (
	"fmt"

	"github.com/ppiankov/docspectre/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics are the end-of-run gauges exported to a node_exporter textfile
type RunMetrics struct {
	registry *prometheus.Registry

	FilesDiscovered   prometheus.Gauge
	FilesAnalyzed     prometheus.Gauge
	FilesWithVersions prometheus.Gauge
	FilesSkipped      prometheus.Gauge
	StaleFiles        prometheus.Gauge
	CurrentBytes      prometheus.Gauge
	AllVersionsBytes  prometheus.Gauge
	OverheadBytes     prometheus.Gauge
	DurationSeconds   prometheus.Gauge
	LastRunTimestamp  prometheus.Gauge
	ExtensionBytes    *prometheus.GaugeVec
}

// NewRunMetrics registers the run gauges on a fresh registry
func NewRunMetrics(target string) (*RunMetrics, error) {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"target": target}

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "docspectre",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &RunMetrics{
		registry:          reg,
		FilesDiscovered:   gauge("files_discovered", "Candidate files returned by discovery."),
		FilesAnalyzed:     gauge("files_analyzed", "Files with a complete analysis record."),
		FilesWithVersions: gauge("files_with_versions", "Analyzed files with at least one historical version."),
		FilesSkipped:      gauge("files_skipped", "Files dropped because their record could not be built."),
		StaleFiles:        gauge("stale_files", "Analyzed files past the staleness threshold."),
		CurrentBytes:      gauge("current_bytes", "Current content size of analyzed files."),
		AllVersionsBytes:  gauge("all_versions_bytes", "Size of analyzed files across all versions."),
		OverheadBytes:     gauge("version_overhead_bytes", "Bytes held by historical versions."),
		DurationSeconds:   gauge("run_duration_seconds", "Wall time of the analysis phase."),
		LastRunTimestamp:  gauge("last_run_timestamp_seconds", "Unix time the report was generated."),
		ExtensionBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "docspectre",
			Name:        "extension_all_versions_bytes",
			Help:        "Size across all versions by file extension.",
			ConstLabels: labels,
		}, []string{"extension"}),
	}

	collectors := []prometheus.Collector{
		m.FilesDiscovered, m.FilesAnalyzed, m.FilesWithVersions, m.FilesSkipped, m.StaleFiles,
		m.CurrentBytes, m.AllVersionsBytes, m.OverheadBytes, m.DurationSeconds, m.LastRunTimestamp,
		m.ExtensionBytes,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Observe sets every gauge from the report
func (m *RunMetrics) Observe(report *models.Report, stats models.RunStats, durationSeconds float64) {
	m.FilesDiscovered.Set(float64(report.Metadata.FilesDiscovered))
	m.FilesAnalyzed.Set(float64(stats.FilesAnalyzed))
	m.FilesWithVersions.Set(float64(stats.FilesWithVersions))
	m.FilesSkipped.Set(float64(report.Metadata.FilesSkipped))
	m.CurrentBytes.Set(float64(stats.TotalCurrentBytes))
	m.AllVersionsBytes.Set(float64(stats.TotalVersionBytes))
	m.OverheadBytes.Set(float64(stats.TotalVersionBytes - stats.TotalCurrentBytes))
	m.DurationSeconds.Set(durationSeconds)
	m.LastRunTimestamp.Set(float64(report.Metadata.GeneratedAt.Unix()))

	if report.Views != nil {
		m.StaleFiles.Set(float64(len(report.Views.StaleFiles)))
		for _, g := range report.Views.ByFileType {
			m.ExtensionBytes.WithLabelValues(g.Extension).Set(float64(g.TotalSizeBytes))
		}
	}
}

// WriteTextfile atomically writes the gauges in the Prometheus text format
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
