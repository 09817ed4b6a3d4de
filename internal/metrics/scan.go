// Package metrics exposes Prometheus collectors for scans, extraction and HTTP.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Scan and extraction collectors.
var (
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facescan",
			Name:      "scans_total",
			Help:      "Total number of scans by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)

	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "facescan",
			Name:      "scan_duration_seconds",
			Help:      "Scan duration in seconds, extraction included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ScanMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "facescan",
			Name:      "scan_matches",
			Help:      "Number of matches returned per scan",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facescan",
			Name:      "extractions_total",
			Help:      "Descriptor extractions by extractor and result",
		},
		[]string{"extractor", "result"},
	)

	ModelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facescan",
			Name:      "model_loads_total",
			Help:      "Face model readiness probes by outcome",
		},
		[]string{"status"},
	)

	GalleryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "facescan",
			Name:      "gallery_entries",
			Help:      "Number of identities in the active gallery snapshot",
		},
	)
)

func init() {
	prometheus.MustRegister(ScansTotal, ScanDuration, ScanMatches, ExtractionsTotal, ModelLoadsTotal, GalleryEntries)
}
