package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/trutrend/internal/rules"
)

// ToRules converts the environment values into a rules.Config.
func (r RulesConfig) ToRules() rules.Config {
	return rules.Config{
		PostprandialWindow:       r.PostprandialWindow,
		HyperglycemiaThreshold:   r.HyperglycemiaThreshold,
		MistimedGlucoseThreshold: r.MistimedGlucoseThreshold,
		BolusDelayThreshold:      r.BolusDelayThreshold,
		BolusLookback:            r.BolusLookback,
		BolusLookahead:           r.BolusLookahead,
		CarbBinWidth:             r.CarbBinWidth,
		MinMealsPerBin:           r.MinMealsPerBin,
		MinProblematicMeals:      r.MinProblematicMeals,
		PostprandialSeverity:     rules.FractionTiers{High: r.PostprandialHigh, Medium: r.PostprandialMedium},
		MistimedSeverity:         rules.FractionTiers{High: r.MistimedHigh, Medium: r.MistimedMedium},
		CarbRatioSeverity:        rules.CountTiers{High: r.CarbRatioHigh, Medium: r.CarbRatioMedium},
	}
}

// LoadRulesFile overlays the YAML profile at path onto base. Keys missing
// from the file keep their base value; unknown keys are an error.
//
//	postprandial_window: 90m
//	hyperglycemia_threshold: 200
//	carb_ratio_severity:
//	  high: 6
func LoadRulesFile(path string, base rules.Config) (rules.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read rules file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	cfg := base
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return cfg, nil
}

// RuleConfig returns the effective rule thresholds: the environment values
// with the RULES_FILE profile applied.
func (c *Config) RuleConfig() rules.Config {
	if c.resolved != nil {
		return *c.resolved
	}
	return c.Rules.ToRules()
}

func (c *Config) resolveRules() error {
	rc := c.Rules.ToRules()
	if c.Rules.File != "" {
		var err error
		if rc, err = LoadRulesFile(c.Rules.File, rc); err != nil {
			return err
		}
	}
	c.resolved = &rc
	return nil
}
