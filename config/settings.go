package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are optional machine knobs carried by an instruction file. Zero
// values leave the machine defaults in place.
type Settings struct {
	IngredientLimit          *int     `yaml:"ingredient_limit"`
	LowQuantityCheckInterval Duration `yaml:"low_quantity_check_interval"`
	PrepTime                 Duration `yaml:"prep_time"`
	PollInterval             Duration `yaml:"poll_interval"`
}

// Duration accepts a Go duration string ("1500ms") or a number of seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	switch value.Tag {
	case "!!int", "!!float":
		secs, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: parse seconds %q: %w", value.Line, value.Value, err)
		}
		if secs < 0 {
			return fmt.Errorf("line %d: negative duration %q", value.Line, value.Value)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	if parsed < 0 {
		return fmt.Errorf("line %d: negative duration %q", value.Line, value.Value)
	}
	*d = Duration(parsed)
	return nil
}
