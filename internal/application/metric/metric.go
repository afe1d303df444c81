package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP метрики - количество запросов
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP метрики - время обработки запросов
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP метрики - количество ошибок
	httpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Общее количество HTTP ошибок",
		},
		[]string{"method", "endpoint", "status"},
	)

	// WS метрики - количество активных соединений
	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Количество активных WebSocket соединений",
		},
	)

	// Рассылка - отправленные события по типу
	meetingEventsBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_events_broadcast_total",
			Help: "Количество разосланных событий встреч",
		},
		[]string{"event"},
	)

	// Рассылка - сообщения, отброшенные из-за переполненного буфера соединения
	broadcastDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_dropped_total",
			Help: "Количество сообщений, не доставленных медленным соединениям",
		},
	)

	meetingJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_joins_total",
			Help: "Попытки входа во встречи по результату",
		},
		[]string{"result"},
	)

	networkQualityReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "network_quality_reports_total",
			Help: "Количество отчетов о качестве сети",
		},
		[]string{"quality"},
	)

	reconnectionAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconnection_attempts_total",
			Help: "Количество попыток переподключения",
		},
	)

	reconnectionExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconnection_exhausted_total",
			Help: "Количество пользователей, исчерпавших попытки переподключения",
		},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Количество запросов, отклоненных ограничителем частоты",
		},
		[]string{"action"},
	)
)

// RecordHTTPMetrics записывает метрики HTTP запроса
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())

	// Записываем ошибки (статус >= 400)
	if status >= 400 {
		httpErrorsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	}
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

func IncBroadcastEvent(event string) {
	meetingEventsBroadcastTotal.WithLabelValues(event).Inc()
}

func AddBroadcastDropped(n int) {
	broadcastDroppedTotal.Add(float64(n))
}

// IncMeetingJoin result - "ok" или код доменной ошибки
func IncMeetingJoin(result string) {
	meetingJoinsTotal.WithLabelValues(result).Inc()
}

func IncNetworkQualityReport(quality string) {
	networkQualityReportsTotal.WithLabelValues(quality).Inc()
}

func IncReconnectionAttempt() {
	reconnectionAttemptsTotal.Inc()
}

func IncReconnectionExhausted() {
	reconnectionExhaustedTotal.Inc()
}

func IncRateLimited(action string) {
	rateLimitedTotal.WithLabelValues(action).Inc()
}
