// Package telemetry exposes rotation activity as Prometheus metrics. The
// collectors are fed by the engine's event bus and by HTTP middleware.
package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/events"
)

const namespace = "rotation"

// Metrics holds every collector of the service.
type Metrics struct {
	Events        *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	GamesStarted  prometheus.Counter
	GamesFinished prometheus.Counter
	GameDuration  prometheus.Histogram
	CourtsInPlay  prometheus.Gauge
	Players       *prometheus.GaugeVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
	status  map[string]domain.CourtStatus
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Engine notifications by kind.",
		}, []string{"kind"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Rejected engine operations by operation and error kind.",
		}, []string{"operation", "error_kind"}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games moved into play.",
		}),
		GamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Games completed and recorded in history.",
		}),
		GameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_duration_seconds",
			Help:      "Time between start and completion of a game.",
			Buckets:   []float64{300, 600, 900, 1200, 1500, 1800, 2400, 3600},
		}),
		CourtsInPlay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "courts_in_play",
			Help:      "Courts currently running a game.",
		}),
		Players: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Roster size by player status.",
		}, []string{"status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		started: make(map[string]time.Time),
		status:  make(map[string]domain.CourtStatus),
	}

	reg.MustRegister(
		m.Events,
		m.Failures,
		m.GamesStarted,
		m.GamesFinished,
		m.GameDuration,
		m.CourtsInPlay,
		m.Players,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Subscriber is the subscription side of the event bus.
type Subscriber interface {
	Subscribe(name string, handler events.Handler, kinds ...events.Kind) (unsubscribe func())
}

// Attach subscribes the collectors to every engine notification.
func (m *Metrics) Attach(bus Subscriber) (unsubscribe func()) {
	return bus.Subscribe("metrics", m.Handle)
}

// Handle updates the collectors for a single event.
func (m *Metrics) Handle(ctx context.Context, event events.Event) error {
	m.Events.WithLabelValues(string(event.Kind)).Inc()

	switch event.Kind {
	case events.GameStarted:
		m.GamesStarted.Inc()
		if event.Court != nil && event.Court.StartTime != nil {
			m.mu.Lock()
			m.started[event.Court.ID] = *event.Court.StartTime
			m.mu.Unlock()
		}

	case events.GameCompleted:
		m.GamesFinished.Inc()
		if event.Game != nil {
			m.mu.Lock()
			start, ok := m.started[event.Game.CourtID]
			delete(m.started, event.Game.CourtID)
			m.mu.Unlock()
			if ok && !event.Game.Timestamp.Before(start) {
				m.GameDuration.Observe(event.Game.Timestamp.Sub(start).Seconds())
			}
		}

	case events.CourtUpdated:
		if event.Court != nil {
			m.mu.Lock()
			m.status[event.Court.ID] = event.Court.Status
			inPlay := 0
			for _, status := range m.status {
				if status == domain.CourtInProgress {
					inPlay++
				}
			}
			m.mu.Unlock()
			m.CourtsInPlay.Set(float64(inPlay))
		}

	case events.PlayersUpdated:
		counts := make(map[domain.PlayerStatus]int)
		for _, p := range event.Players {
			counts[p.Status]++
		}
		for _, status := range domain.PlayerStatuses() {
			m.Players.WithLabelValues(status.String()).Set(float64(counts[status]))
		}

	case events.EngineFailure:
		if event.Failure != nil {
			m.Failures.WithLabelValues(event.Failure.Operation, event.Failure.ErrorKind).Inc()
		}
	}
	return nil
}

// Middleware records request counts and latency. route names the matched
// route template so label cardinality stays bounded.
func (m *Metrics) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			name := route(r)
			m.HTTPRequests.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets websocket upgrades pass through the middleware.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("telemetry: %T does not support hijacking", rw.ResponseWriter)
	}
	rw.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
