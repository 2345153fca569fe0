package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/example/court-rotation/internal/matchmaking"
)

// Store backends accepted by ROTATION_STORE.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config captures environment driven configuration values for the rotation service.
type Config struct {
	HTTPPort     int
	Store        string
	SQLiteDSN    string
	StateFile    string
	CourtCount   int
	CourtIDs     []string
	HistoryLimit int
	Selection    string
	Strategy     string
	Variety      bool
	// RandomSeed is nil when no seed was configured.
	RandomSeed  *uint64
	WeightsFile string
	Weights     matchmaking.Weights
	CORSOrigins []string
	LogLevel    slog.Level
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields, collects every missing
// and invalid key, and reports them in one error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		Store:        StoreSQLite,
		SQLiteDSN:    "rotation.db",
		CourtCount:   5,
		HistoryLimit: 100,
		Selection:    "weighted",
		Strategy:     "scored",
		Weights:      matchmaking.DefaultWeights(),
		CORSOrigins:  []string{"*"},
		LogLevel:     slog.LevelInfo,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("ROTATION_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "ROTATION_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if store := strings.ToLower(env("ROTATION_STORE")); store != "" {
		switch store {
		case StoreSQLite, StoreFile, StoreMemory:
			cfg.Store = store
		default:
			invalid = append(invalid, "ROTATION_STORE")
		}
	}

	if dsn := env("ROTATION_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.StateFile = env("ROTATION_STATE_FILE")
	if cfg.Store == StoreFile && cfg.StateFile == "" {
		missing = append(missing, "ROTATION_STATE_FILE")
	}

	if countValue := env("ROTATION_COURT_COUNT"); countValue != "" {
		count, err := strconv.Atoi(countValue)
		if err != nil || count <= 0 {
			invalid = append(invalid, "ROTATION_COURT_COUNT")
		} else {
			cfg.CourtCount = count
		}
	}

	if idsValue := env("ROTATION_COURT_IDS"); idsValue != "" {
		ids, ok := parseCourtIDs(idsValue)
		if !ok {
			invalid = append(invalid, "ROTATION_COURT_IDS")
		} else {
			cfg.CourtIDs = ids
			cfg.CourtCount = len(ids)
		}
	}

	if limitValue := env("ROTATION_HISTORY_LIMIT"); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "ROTATION_HISTORY_LIMIT")
		} else {
			cfg.HistoryLimit = limit
		}
	}

	if selection := strings.ToLower(env("ROTATION_SELECTION")); selection != "" {
		if selection != "weighted" && selection != "top" {
			invalid = append(invalid, "ROTATION_SELECTION")
		} else {
			cfg.Selection = selection
		}
	}

	if strategy := strings.ToLower(env("ROTATION_STRATEGY")); strategy != "" {
		if strategy != "scored" && strategy != "tiered" {
			invalid = append(invalid, "ROTATION_STRATEGY")
		} else {
			cfg.Strategy = strategy
		}
	}

	if varietyValue := env("ROTATION_VARIETY"); varietyValue != "" {
		variety, err := strconv.ParseBool(varietyValue)
		if err != nil {
			invalid = append(invalid, "ROTATION_VARIETY")
		} else {
			cfg.Variety = variety
		}
	}

	if seedValue := env("ROTATION_RANDOM_SEED"); seedValue != "" {
		seed, err := strconv.ParseUint(seedValue, 10, 64)
		if err != nil {
			invalid = append(invalid, "ROTATION_RANDOM_SEED")
		} else {
			cfg.RandomSeed = &seed
		}
	}

	if weightsFile := env("ROTATION_WEIGHTS_FILE"); weightsFile != "" {
		weights, err := LoadWeights(weightsFile)
		if err != nil {
			invalid = append(invalid, "ROTATION_WEIGHTS_FILE")
		} else {
			cfg.WeightsFile = weightsFile
			cfg.Weights = weights
		}
	}

	if originsValue := env("ROTATION_CORS_ORIGINS"); originsValue != "" {
		cfg.CORSOrigins = splitList(originsValue)
	}

	if levelValue := env("ROTATION_LOG_LEVEL"); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "ROTATION_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseCourtIDs(value string) ([]string, bool) {
	ids := splitList(value)
	if len(ids) == 0 {
		return nil, false
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, false
		}
		seen[id] = struct{}{}
	}
	return ids, true
}
