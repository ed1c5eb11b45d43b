package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets, // [0.005..10]
		},
		[]string{"method", "path", "status"},
	)
)

// Доменные метрики жизненного цикла заявки.
var (
	applicationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_applications_created_total",
		Help: "Loan applications submitted.",
	})

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_status_transitions_total",
			Help: "Application status transitions by edge.",
		},
		[]string{"from", "to"},
	)

	documentsUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_documents_uploaded_total",
		Help: "Documents accepted into the registry.",
	})

	loansAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_offers_accepted_total",
		Help: "Approved offers accepted with banking details.",
	})
)

// Регистрация метрик в default-регистре.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration)
	prometheus.MustRegister(applicationsCreated, statusTransitions, documentsUploaded, loansAccepted)
}

// Хэндлер Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ApplicationCreated() { applicationsCreated.Inc() }

func StatusTransition(from, to string) { statusTransitions.WithLabelValues(from, to).Inc() }

func DocumentUploaded() { documentsUploaded.Inc() }

func LoanAccepted() { loansAccepted.Inc() }

// CanonicalPath сводит пути с идентификаторами к шаблону, чтобы не взрывать
// кардинальность меток. Неизвестные маршруты возвращаются как есть.
func CanonicalPath(raw string) string {
	path := raw
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}

	seg := strings.Split(strings.Trim(path, "/"), "/")
	if len(seg) < 3 || seg[0] != "v1" {
		return path
	}

	switch seg[1] {
	case "applications":
		switch seg[2] {
		case "verify":
			if len(seg) == 4 {
				return "/v1/applications/verify/:token"
			}
		case "document-upload":
			if len(seg) == 5 && seg[4] == "verify" {
				return "/v1/applications/document-upload/:token/verify"
			}
		case "accept-loan", "calculate":
			return path
		default:
			// seg[2] — идентификатор заявки
			rest := seg[3:]
			switch {
			case len(rest) == 0:
				return "/v1/applications/:id"
			case len(rest) == 1 && (rest[0] == "status" || rest[0] == "upload-document" || rest[0] == "banking-info"):
				return "/v1/applications/:id/" + rest[0]
			case len(rest) == 2 && rest[0] == "banking-info" && rest[1] == "full":
				return "/v1/applications/:id/banking-info/full"
			case len(rest) == 2 && rest[0] == "documents":
				return "/v1/applications/:id/documents/:doc"
			}
		}
	case "notifications":
		rest := seg[2:]
		switch {
		case len(rest) == 1 && (rest[0] == "unread-count" || rest[0] == "stream"):
			return path
		case len(rest) == 1:
			return "/v1/notifications/:id"
		case len(rest) == 2 && rest[0] == "applicant":
			return "/v1/notifications/applicant/:address"
		case len(rest) == 2 && rest[1] == "read":
			return "/v1/notifications/:id/read"
		}
	}
	return path
}

// Обёртка для измерения RPS/latency/в полёте.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter — локальная копия, чтобы знать код ответа.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
