// metrics.go — Prometheus HTTP метрики Moderation Dashboard.
// Регистрирует метрики: md_http_requests_total, md_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "md_http_requests_total",
			Help: "Общее количество HTTP-запросов к Moderation Dashboard",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "md_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Moderation Dashboard в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			status := strconv.Itoa(wrapped.statusCode)
			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(time.Since(start).Seconds())
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

// normalizePath заменяет идентификатор объявления на {id}, а неизвестные
// пути сводит к "other".
// /item/42 → /item/{id}
// /item/42/reject → /item/{id}/reject
func normalizePath(path string) string {
	switch path {
	case "/", "/list", "/stats", "/health/live", "/health/ready", "/metrics":
		return path
	}

	const itemPrefix = "/item/"
	if rest, ok := strings.CutPrefix(path, itemPrefix); ok && rest != "" {
		_, suffix, _ := strings.Cut(rest, "/")
		switch suffix {
		case "":
			return "/item/{id}"
		case "approve", "reject", "request-changes":
			return "/item/{id}/" + suffix
		}
	}

	return "other"
}
