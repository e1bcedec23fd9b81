package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/levinOo/truenas-exporter/internal/logger"
)

// Usage возвращается на любой путь, кроме /metrics и /ping.
const Usage = "Usage: Metrics can be retrieved from /metrics"

const pingTimeout = 5 * time.Second

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ContextCollector возвращает коллектор, выполняющий сбор в контексте запроса.
type ContextCollector interface {
	WithContext(ctx context.Context) prometheus.Collector
}

// NewRequestSummary создаёт сводку длительности обработки HTTP-запросов.
func NewRequestSummary() prometheus.Summary {
	return prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "truenas_exporter_requests_seconds",
		Help: "Time spent processing exporter HTTP requests.",
	})
}

func NewRouter(base prometheus.Gatherer, scrape ContextCollector, pinger Pinger, requests prometheus.Observer, sugar *zap.SugaredLogger) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/metrics", LoggerFuncServer(MetricsHandler(base, scrape, sugar), requests, sugar))
	r.Get("/ping", LoggerFuncServer(PingHandler(pinger), requests, sugar))

	usage := LoggerFuncServer(UsageHandler(), requests, sugar)
	r.NotFound(usage)
	r.MethodNotAllowed(usage)

	return r
}

func LoggerFuncServer(h http.Handler, requests prometheus.Observer, sugar *zap.SugaredLogger) http.HandlerFunc {
	logFn := func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()

		responseData := &logger.ResponseData{
			Size:   0,
			Status: 0,
		}
		lw := logger.LoggingRW{
			ResponseWriter: rw,
			ResponseData:   responseData,
		}

		h.ServeHTTP(&lw, r)

		dur := time.Since(start)
		if requests != nil {
			requests.Observe(dur.Seconds())
		}

		sugar.Infow("request served",
			"uri", r.RequestURI,
			"method", r.Method,
			"duration", dur,
			"status", responseData.Status,
			"size", responseData.Size,
		)
	}
	return http.HandlerFunc(logFn)
}

// MetricsHandler отдаёт служебные метрики из base и результат нового сбора.
// Сбор выполняется в контексте запроса: отключение клиента прерывает
// обращения к хранилищу.
func MetricsHandler(base prometheus.Gatherer, scrape ContextCollector, sugar *zap.SugaredLogger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		reg := prometheus.NewRegistry()
		if err := reg.Register(scrape.WithContext(r.Context())); err != nil {
			sugar.Errorw("register scrape collector", "error", err)
			http.Error(rw, "failed to prepare scrape", http.StatusInternalServerError)
			return
		}

		gatherers := prometheus.Gatherers{reg}
		if base != nil {
			gatherers = append(gatherers, base)
		}

		promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
			ErrorLog:      zap.NewStdLog(sugar.Desugar()),
			ErrorHandling: promhttp.ContinueOnError,
		}).ServeHTTP(rw, r)
	}
}

func PingHandler(pinger Pinger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			http.Error(rw, "No connection with appliance", http.StatusServiceUnavailable)
			return
		}

		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("Appliance is reachable"))
	}
}

func UsageHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusNotFound)
		rw.Write([]byte(Usage))
	}
}
