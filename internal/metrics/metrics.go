package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_http_requests_total",
			Help: "HTTP requests handled, by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	TMDBRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_tmdb_requests_total",
			Help: "Upstream TMDB requests, by endpoint and outcome.",
		},
		[]string{"endpoint", "status"},
	)

	TMDBRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_tmdb_request_duration_seconds",
			Help:    "Upstream TMDB request latency, by endpoint.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_searches_total",
			Help: "Search requests processed, by detected search type.",
		},
		[]string{"search_type"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TMDBRequestsTotal,
		TMDBRequestDuration,
		SearchesTotal,
	)
}
