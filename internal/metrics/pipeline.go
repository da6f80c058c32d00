package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	ScrapeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statuta",
			Name:      "scrape_requests_total",
			Help:      "Total number of upstream page fetches",
		},
		[]string{"source", "kind", "status"}, // kind: "listing" / "detail" / "pdf"
	)

	ScrapeDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statuta",
			Name:      "scrape_documents_total",
			Help:      "Documents extracted from upstream sources",
		},
		[]string{"source", "origin"}, // origin: "page" / "pdf"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "statuta",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"}, // "ok" / "degraded" / "error"
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statuta",
			Name:      "search_cache_total",
			Help:      "Search response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	PDFExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statuta",
			Name:      "pdf_extractions_total",
			Help:      "PDF text extraction attempts",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus search pipeline metrics.
// Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ScrapeRequestsTotal)
	prometheus.MustRegister(ScrapeDocumentsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(PDFExtractionsTotal)
	pipelineMetricsRegistered = true
}
