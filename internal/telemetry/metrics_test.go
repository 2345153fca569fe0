package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/events"
)

func TestNewMetrics_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on double registration")
		}
	}()
	NewMetrics(reg)
}

func TestHandleGameLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())

	start := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	court := domain.Court{ID: "court-1", Status: domain.CourtInProgress, StartTime: &start}
	publish := func(event events.Event) {
		t.Helper()
		if err := m.Handle(ctx, event); err != nil {
			t.Fatalf("Handle(%s) failed: %v", event.Kind, err)
		}
	}

	publish(events.Event{Kind: events.GameStarted, Court: &court})
	publish(events.Event{Kind: events.CourtUpdated, Court: &court})
	if got := testutil.ToFloat64(m.CourtsInPlay); got != 1 {
		t.Fatalf("expected 1 court in play, got %v", got)
	}

	idle := domain.Court{ID: "court-1", Status: domain.CourtEmpty}
	publish(events.Event{Kind: events.GameCompleted, Game: &domain.GameRecord{ID: "g1", CourtID: "court-1", Timestamp: start.Add(15 * time.Minute)}})
	publish(events.Event{Kind: events.CourtUpdated, Court: &idle})

	if got := testutil.ToFloat64(m.GamesStarted); got != 1 {
		t.Fatalf("expected 1 game started, got %v", got)
	}
	if got := testutil.ToFloat64(m.GamesFinished); got != 1 {
		t.Fatalf("expected 1 game completed, got %v", got)
	}
	if got := testutil.ToFloat64(m.CourtsInPlay); got != 0 {
		t.Fatalf("expected no courts in play, got %v", got)
	}
	if got := testutil.CollectAndCount(m.GameDuration); got != 1 {
		t.Fatalf("expected one duration series, got %d", got)
	}
	expected := `
# HELP rotation_game_duration_seconds Time between start and completion of a game.
# TYPE rotation_game_duration_seconds histogram
rotation_game_duration_seconds_bucket{le="300"} 0
rotation_game_duration_seconds_bucket{le="600"} 0
rotation_game_duration_seconds_bucket{le="900"} 1
rotation_game_duration_seconds_bucket{le="1200"} 1
rotation_game_duration_seconds_bucket{le="1500"} 1
rotation_game_duration_seconds_bucket{le="1800"} 1
rotation_game_duration_seconds_bucket{le="2400"} 1
rotation_game_duration_seconds_bucket{le="3600"} 1
rotation_game_duration_seconds_bucket{le="+Inf"} 1
rotation_game_duration_seconds_sum 900
rotation_game_duration_seconds_count 1
`
	if err := testutil.CollectAndCompare(m.GameDuration, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected duration histogram: %v", err)
	}
	if got := testutil.ToFloat64(m.Events.WithLabelValues(string(events.CourtUpdated))); got != 2 {
		t.Fatalf("expected 2 court updates counted, got %v", got)
	}
}

func TestHandleRosterAndFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())

	players := []domain.Player{
		{ID: "a", Status: domain.StatusPlaying},
		{ID: "b", Status: domain.StatusPlaying},
		{ID: "c", Status: domain.StatusResting},
	}
	if err := m.Handle(ctx, events.Event{Kind: events.PlayersUpdated, Players: players}); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if got := testutil.ToFloat64(m.Players.WithLabelValues("playing")); got != 2 {
		t.Fatalf("expected 2 playing, got %v", got)
	}
	if got := testutil.ToFloat64(m.Players.WithLabelValues("nogames")); got != 0 {
		t.Fatalf("expected 0 nogames, got %v", got)
	}

	failure := events.Event{Kind: events.EngineFailure, Failure: &events.Failure{Operation: "magic queue", ErrorKind: "insufficient_players"}}
	if err := m.Handle(ctx, failure); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if got := testutil.ToFloat64(m.Failures.WithLabelValues("magic queue", "insufficient_players")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestAttachReceivesBusEvents(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	bus := events.NewBus(nil)
	unsubscribe := m.Attach(bus)

	if err := bus.Publish(context.Background(), events.Event{Kind: events.PlayerAdded}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	unsubscribe()
	if err := bus.Publish(context.Background(), events.Event{Kind: events.PlayerAdded}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := testutil.ToFloat64(m.Events.WithLabelValues(string(events.PlayerAdded))); got != 1 {
		t.Fatalf("expected exactly one counted event, got %v", got)
	}
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	handler := m.Middleware(func(*http.Request) string { return "/courts/{id}" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/courts/court-9", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/courts/{id}", "404")); got != 1 {
		t.Fatalf("expected one request counted, got %v", got)
	}
}
