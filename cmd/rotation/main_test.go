package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/court-rotation/internal/application"
	"github.com/example/court-rotation/internal/config"
	"github.com/example/court-rotation/internal/matchmaking"
	"github.com/example/court-rotation/internal/persistence"
	"github.com/example/court-rotation/internal/persistence/memory"
)

func testConfig() config.Config {
	seed := uint64(42)
	return config.Config{
		Store:        config.StoreMemory,
		CourtCount:   3,
		HistoryLimit: 50,
		Selection:    "top",
		Strategy:     "tiered",
		RandomSeed:   &seed,
		Weights:      matchmaking.DefaultWeights(),
		CORSOrigins:  []string{"https://club.example"},
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := testConfig()
	got := engineConfig(cfg)

	if len(got.CourtIDs) != 3 || got.CourtIDs[2] != "court-3" {
		t.Fatalf("expected three generated courts, got %v", got.CourtIDs)
	}
	if got.Selection != application.SelectTop || got.Strategy != application.StrategyTiered || got.HistoryLimit != 50 {
		t.Fatalf("unexpected engine config %+v", got)
	}
	if got.Rand == nil {
		t.Fatal("expected a seeded random source")
	}

	first := engineConfig(cfg).Rand.Uint64()
	second := engineConfig(cfg).Rand.Uint64()
	if first != second {
		t.Fatalf("expected identical draws for the same seed, got %d and %d", first, second)
	}

	cfg.CourtIDs = []string{"north", "south"}
	if ids := engineConfig(cfg).CourtIDs; len(ids) != 2 || ids[0] != "north" {
		t.Fatalf("expected explicit court ids, got %v", ids)
	}
}

func TestOpenStore(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "memory", cfg: config.Config{Store: config.StoreMemory}},
		{name: "file", cfg: config.Config{Store: config.StoreFile, StateFile: filepath.Join(dir, "state", "rotation.json")}},
		{name: "sqlite", cfg: config.Config{Store: config.StoreSQLite, SQLiteDSN: filepath.Join(dir, "rotation.db")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo, closer, err := openStore(ctx, tc.cfg, logger)
			if err != nil {
				t.Fatalf("openStore returned error: %v", err)
			}
			defer closer.Close()

			snapshot := persistence.Snapshot{
				Players:     []persistence.PlayerRecord{{ID: "p1", Name: "Ana", Status: "nogames", SkillLevel: 1}},
				Courts:      map[string]persistence.CourtRecord{},
				GameHistory: []persistence.GameRecord{},
			}
			if err := repo.SaveSnapshot(ctx, snapshot); err != nil {
				t.Fatalf("SaveSnapshot returned error: %v", err)
			}
			loaded, err := repo.LoadSnapshot(ctx)
			if err != nil {
				t.Fatalf("LoadSnapshot returned error: %v", err)
			}
			if len(loaded.Players) != 1 || loaded.Players[0].Name != "Ana" {
				t.Fatalf("unexpected snapshot %+v", loaded)
			}
		})
	}

	if _, _, err := openStore(context.Background(), config.Config{Store: "redis"}, logger); err == nil {
		t.Fatal("expected error for unknown store")
	}
}

func TestOriginChecker(t *testing.T) {
	if originChecker([]string{"*"}) != nil {
		t.Fatal("expected wildcard to accept every origin")
	}

	check := originChecker([]string{"https://club.example"})
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Origin", "https://club.example")
	if !check(req) {
		t.Fatal("expected configured origin to be accepted")
	}
	req.Header.Set("Origin", "https://elsewhere.example")
	if check(req) {
		t.Fatal("expected foreign origin to be rejected")
	}
}

func TestNewAppServesAPI(t *testing.T) {
	registry := prometheus.NewRegistry()
	repo := memory.Open()
	a := newApp(testConfig(), repo, registry, slog.New(slog.DiscardHandler))
	defer a.close()

	ctx := context.Background()
	if err := a.engine.Restore(ctx); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}

	server := httptest.NewServer(a.handler)
	defer server.Close()

	resp, err := http.Post(server.URL+"/players/import", "application/json", strings.NewReader(`{"text":"ana\nben\ncara\ndan"}`))
	if err != nil {
		t.Fatalf("import request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/magic-queue", "application/json", nil)
	if err != nil {
		t.Fatalf("magic queue request failed: %v", err)
	}
	var body struct {
		Action string   `json:"action"`
		Match  []string `json:"match"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode magic queue response: %v", err)
	}
	resp.Body.Close()
	if body.Action != "matched" || len(body.Match) != 4 {
		t.Fatalf("expected a matched group of four, got %+v", body)
	}

	if repo.Saves() == 0 {
		t.Fatal("expected the engine to persist through the snapshot store")
	}

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/players", nil)
	req.Header.Set("Origin", "https://club.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight request failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://club.example" {
		t.Fatalf("expected CORS allow origin header, got %q", got)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	metrics := string(raw)
	for _, want := range []string{
		`rotation_games_started_total 1`,
		`rotation_http_requests_total{method="POST",route="/magic-queue",status="200"} 1`,
	} {
		if !strings.Contains(metrics, want) {
			t.Fatalf("expected metrics to contain %q, got:\n%s", want, metrics)
		}
	}
}
