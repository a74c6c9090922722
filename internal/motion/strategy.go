// Package motion orchestrates motion correction of imaging stacks.
//
// The estimation numerics themselves are an external capability consumed
// through the Estimator interface; this package owns configuration, the
// stage discipline around the estimator call, re-encoding of its output into
// the canonical container, and QA figure generation.
package motion

import (
	"fmt"
	"strings"
)

// Strategy selects a motion-estimation algorithm of the external capability.
type Strategy string

// Known strategies, named after the estimation models they select.
const (
	StrategyMarkov  Strategy = "HiddenMarkov2D"
	StrategyPlane   Strategy = "PlaneTranslation2D"
	StrategyFourier Strategy = "DiscreteFourier2D"
)

// ShortName returns the compact strategy name used in attributes and logs.
func (s Strategy) ShortName() string {
	switch s {
	case StrategyMarkov:
		return "Markov"
	case StrategyPlane:
		return "Plane"
	case StrategyFourier:
		return "Fourier"
	}
	return string(s)
}

// KnownStrategies lists the accepted strategy names.
var KnownStrategies = []string{
	string(StrategyMarkov),
	string(StrategyPlane),
	string(StrategyFourier),
}

// strategyAliases maps case-folded spellings onto strategies. Both the full
// algorithm names and their short forms are accepted.
var strategyAliases = map[string]Strategy{
	"hiddenmarkov2d":     StrategyMarkov,
	"markov":             StrategyMarkov,
	"planetranslation2d": StrategyPlane,
	"plane":              StrategyPlane,
	"discretefourier2d":  StrategyFourier,
	"fourier":            StrategyFourier,
}

// ParseStrategy normalizes a strategy spelling (case fold plus alias lookup)
// and resolves it against the fixed strategy set.
func ParseStrategy(name string) (Strategy, error) {
	if s, ok := strategyAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}
	return "", fmt.Errorf(
		"could not parse '%s' as a valid strategy. Valid options: %s",
		name, strings.Join(KnownStrategies, ", "),
	)
}
