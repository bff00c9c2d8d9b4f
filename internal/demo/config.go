package demo

import (
	"fmt"
	"strings"
	"time"
)

// Preset controls demo pacing via a target duration for one plan.
type Preset string

const (
	PresetQuick  Preset = "quick"
	PresetMedium Preset = "medium"
	PresetSlow   Preset = "slow"
)

func ParsePreset(value string) (Preset, error) {
	switch Preset(strings.ToLower(strings.TrimSpace(value))) {
	case PresetQuick, PresetMedium, PresetSlow:
		return Preset(strings.ToLower(strings.TrimSpace(value))), nil
	default:
		return "", fmt.Errorf("invalid demo preset %q (valid: quick, medium, slow)", value)
	}
}

func targetForPreset(preset Preset) (time.Duration, error) {
	switch preset {
	case PresetQuick:
		return 1500 * time.Millisecond, nil
	case PresetMedium:
		return 6 * time.Second, nil
	case PresetSlow:
		return 30 * time.Second, nil
	default:
		return 0, fmt.Errorf("unknown demo preset %q", preset)
	}
}

// Config controls how the demo backend answers.
type Config struct {
	Preset    Preset
	Scenario  Scenario
	Streaming bool
	StepDelay time.Duration
}

var (
	minStepDelay = 5 * time.Millisecond
	maxStepDelay = 10 * time.Second
)

// NewConfig spreads the preset's target duration across the records the
// scenario emits.
func NewConfig(preset Preset, scenario Scenario, streaming bool) (Config, error) {
	target, err := targetForPreset(preset)
	if err != nil {
		return Config{}, err
	}
	if _, err := ParseScenario(string(scenario)); err != nil {
		return Config{}, err
	}

	steps := len(progressSteps) + 1
	return Config{
		Preset:    preset,
		Scenario:  scenario,
		Streaming: streaming,
		StepDelay: clampDuration(target/time.Duration(steps), minStepDelay, maxStepDelay),
	}, nil
}

func clampDuration(value, min, max time.Duration) time.Duration {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
