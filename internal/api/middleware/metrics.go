// metrics.go — Prometheus HTTP метрики Metastore.
// Регистрирует метрики: ms_http_requests_total, ms_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ms_http_requests_total",
			Help: "Общее количество HTTP-запросов к Metastore",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ms_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Metastore в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик: идентификаторы
			// ресурсов (UUID или site_id) заменяются на {id}
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Суффиксы динамических путей, сохраняемые после {id}.
var knownSuffixes = map[string]bool{
	"/content":     true,
	"/submissions": true,
	"/executions":  true,
}

// normalizePath заменяет идентификатор ресурса в пути на {id} для
// предотвращения взрывного роста кардинальности метрик.
// /api/v1/files/MST-FIL-00000042/content → /api/v1/files/{id}/content
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/users/me",
		"/api/v1/metadata",
		"/api/v1/metadatasets",
		"/api/v1/metadatasets/pending",
		"/api/v1/files",
		"/api/v1/submissions",
		"/api/v1/submissions/prevalidate",
		"/api/v1/appsettings":
		return path
	}

	prefixes := []string{
		"/api/v1/users/",
		"/api/v1/groups/",
		"/api/v1/metadata/",
		"/api/v1/metadatasets/",
		"/api/v1/files/",
		"/api/v1/submissions/",
		"/api/v1/services/",
		"/api/v1/appsettings/",
	}

	for _, prefix := range prefixes {
		if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
			continue
		}
		rest := path[len(prefix):]
		result := prefix + "{id}"
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			if suffix := rest[i:]; knownSuffixes[suffix] {
				return result + suffix
			}
		}
		return result
	}

	return path
}
