package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/court-rotation/internal/matchmaking"
)

// LoadWeights reads a YAML weights file. Keys absent from the file keep
// their default values; unknown keys are rejected.
func LoadWeights(path string) (matchmaking.Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return matchmaking.Weights{}, fmt.Errorf("read weights file: %w", err)
	}
	return ParseWeights(data)
}

// ParseWeights overlays YAML encoded weights onto the defaults.
func ParseWeights(data []byte) (matchmaking.Weights, error) {
	weights := matchmaking.DefaultWeights()
	if len(bytes.TrimSpace(data)) == 0 {
		return weights, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&weights); err != nil {
		return matchmaking.Weights{}, fmt.Errorf("decode weights: %w", err)
	}
	if weights.FamiliarityExponent <= 0 {
		return matchmaking.Weights{}, fmt.Errorf("familiarity_exponent must be positive")
	}
	if weights.MinScore < 1 {
		return matchmaking.Weights{}, fmt.Errorf("min_score must be at least 1")
	}
	return weights, nil
}
