package rules

import (
	"math"
	"time"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// postMealPeak returns the highest reading in (meal, meal+window].
// Among equal maxima the earliest reading wins. ok is false when the window
// holds no readings; such a meal is uncovered.
func postMealPeak(glucose core.Stream[core.GlucoseReading], meal time.Time, window time.Duration) (peak core.GlucoseReading, ok bool) {
	for _, r := range glucose.Range(meal, meal.Add(window)) {
		if !ok || r.Value > peak.Value {
			peak, ok = r, true
		}
	}
	return peak, ok
}

// associatedBolus returns the bolus nearest to the meal inside
// [meal-lookback, meal+lookahead].
func associatedBolus(insulin core.Stream[core.InsulinEvent], meal time.Time, cfg Config) (core.InsulinEvent, bool) {
	return insulin.Nearest(meal, cfg.BolusLookback, cfg.BolusLookahead, core.InsulinEvent.IsBolus)
}

func minutesBetween(from, to time.Time) float64 {
	return to.Sub(from).Minutes()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
