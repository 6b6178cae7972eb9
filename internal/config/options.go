package config

import "github.com/JonMunkholm/trutrend/internal/core"

// NormalizeOptions returns the ingestion settings.
func (c *Config) NormalizeOptions() core.NormalizeOptions {
	return core.NormalizeOptions{
		Detect: core.DetectOptions{
			MatchThreshold:      c.Detection.MatchThreshold,
			MaxHeaderSearchRows: c.Detection.MaxHeaderSearchRows,
		},
		SampleLimit: c.Detection.SampleLimit,
	}
}
