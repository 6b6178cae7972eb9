package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// FractionTiers maps a match fraction to a severity. Bounds are inclusive.
type FractionTiers struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
}

// Classify returns high at or above High, medium at or above Medium, else low.
func (t FractionTiers) Classify(fraction float64) core.Severity {
	switch {
	case fraction >= t.High:
		return core.SeverityHigh
	case fraction >= t.Medium:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}

// CountTiers maps a match count to a severity. Bounds are inclusive.
type CountTiers struct {
	High   int `yaml:"high"`
	Medium int `yaml:"medium"`
}

// Classify returns high at or above High, medium at or above Medium, else low.
func (t CountTiers) Classify(n int) core.Severity {
	switch {
	case n >= t.High:
		return core.SeverityHigh
	case n >= t.Medium:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}

// Config holds every threshold used by the rules. Glucose comparisons are strict (>).
type Config struct {
	PostprandialWindow       time.Duration `yaml:"postprandial_window"`
	HyperglycemiaThreshold   float64       `yaml:"hyperglycemia_threshold"`
	MistimedGlucoseThreshold float64       `yaml:"mistimed_glucose_threshold"`
	BolusDelayThreshold      time.Duration `yaml:"bolus_delay_threshold"`

	// Bolus association window around a meal, shared by the mistimed bolus
	// and carb ratio rules.
	BolusLookback  time.Duration `yaml:"bolus_lookback"`
	BolusLookahead time.Duration `yaml:"bolus_lookahead"`

	CarbBinWidth        float64 `yaml:"carb_bin_width"`
	MinMealsPerBin      int     `yaml:"min_meals_per_bin"`
	MinProblematicMeals int     `yaml:"min_problematic_meals"`

	PostprandialSeverity FractionTiers `yaml:"postprandial_severity"`
	MistimedSeverity     FractionTiers `yaml:"mistimed_severity"`
	CarbRatioSeverity    CountTiers    `yaml:"carb_ratio_severity"`
}

// DefaultConfig returns the standard clinical thresholds.
func DefaultConfig() Config {
	return Config{
		PostprandialWindow:       120 * time.Minute,
		HyperglycemiaThreshold:   180,
		MistimedGlucoseThreshold: 160,
		BolusDelayThreshold:      10 * time.Minute,
		BolusLookback:            10 * time.Minute,
		BolusLookahead:           60 * time.Minute,
		CarbBinWidth:             20,
		MinMealsPerBin:           3,
		MinProblematicMeals:      3,
		PostprandialSeverity:     FractionTiers{High: 0.50, Medium: 0.30},
		MistimedSeverity:         FractionTiers{High: 0.30, Medium: 0.20},
		CarbRatioSeverity:        CountTiers{High: 5, Medium: 3},
	}
}

// Validate checks all values and returns every problem at once.
func (c Config) Validate() error {
	var errs []string

	if c.PostprandialWindow <= 0 {
		errs = append(errs, "postprandial window must be positive")
	}
	if c.HyperglycemiaThreshold <= 0 {
		errs = append(errs, "hyperglycemia threshold must be positive")
	}
	if c.MistimedGlucoseThreshold <= 0 {
		errs = append(errs, "mistimed glucose threshold must be positive")
	}
	if c.BolusDelayThreshold < 0 {
		errs = append(errs, "bolus delay threshold must not be negative")
	}
	if c.BolusLookback < 0 || c.BolusLookahead < 0 {
		errs = append(errs, "bolus lookback and lookahead must not be negative")
	}
	if c.CarbBinWidth <= 0 {
		errs = append(errs, "carb bin width must be positive")
	}
	if c.MinMealsPerBin < 1 {
		errs = append(errs, "min meals per bin must be at least 1")
	}
	if c.MinProblematicMeals < 1 {
		errs = append(errs, "min problematic meals must be at least 1")
	}
	if err := validateFractionTiers("postprandial", c.PostprandialSeverity); err != "" {
		errs = append(errs, err)
	}
	if err := validateFractionTiers("mistimed", c.MistimedSeverity); err != "" {
		errs = append(errs, err)
	}
	if c.CarbRatioSeverity.Medium > c.CarbRatioSeverity.High {
		errs = append(errs, "carb ratio severity: medium must not exceed high")
	}

	if len(errs) > 0 {
		return errors.New("rule config: " + strings.Join(errs, "; "))
	}
	return nil
}

func validateFractionTiers(name string, t FractionTiers) string {
	if t.Medium < 0 || t.High > 1 || t.Medium > t.High {
		return fmt.Sprintf("%s severity: need 0 <= medium <= high <= 1, got medium=%g high=%g", name, t.Medium, t.High)
	}
	return ""
}
