package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/intervue/internal/questionforge"
)

// LoadScenario reads a custom interview brief from a YAML file:
//
//	description: Pitch our analytics product to a skeptical CFO.
//	setting: Video call, 20 minutes.
//	goals: [handle objections, quantify value]
//	focus_areas: [pricing, ROI]
func LoadScenario(path string) (*questionforge.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s questionforge.Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if strings.TrimSpace(s.Description) == "" {
		return nil, fmt.Errorf("scenario %s: description is required", path)
	}
	return &s, nil
}
