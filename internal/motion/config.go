package motion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds the parsed motion-correction section of a settings file.
type Settings struct {
	Strategy        Strategy
	MaxDisplacement [2]int
}

// settingsFile mirrors the on-disk YAML layout. Only the motion-correction
// section is read; unknown sections are ignored so a single settings file can
// serve multiple tools.
type settingsFile struct {
	MotionCorrection struct {
		Strategy        string `yaml:"strategy"`
		MaxDisplacement []int  `yaml:"max-displacement"`
	} `yaml:"motion-correction"`
}

// LoadSettings reads and validates a YAML settings file. The strategy is
// required; max-displacement must be a pair of non-negative pixel bounds.
func LoadSettings(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	var f settingsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}

	mc := f.MotionCorrection
	if mc.Strategy == "" {
		return nil, fmt.Errorf("settings file %s has no motion-correction strategy", path)
	}
	strategy, err := ParseStrategy(mc.Strategy)
	if err != nil {
		return nil, err
	}

	if len(mc.MaxDisplacement) != 2 {
		return nil, fmt.Errorf(
			"max-displacement must be a pair of values, found %d", len(mc.MaxDisplacement),
		)
	}
	for _, v := range mc.MaxDisplacement {
		if v < 0 {
			return nil, fmt.Errorf("max-displacement values must be non-negative, found %d", v)
		}
	}

	return &Settings{
		Strategy:        strategy,
		MaxDisplacement: [2]int{mc.MaxDisplacement[0], mc.MaxDisplacement[1]},
	}, nil
}
