package rules

import (
	"fmt"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// MistimedBolus flags meals whose bolus came late and were followed by a spike.
// Meals without an associated bolus are not opportunities.
type MistimedBolus struct {
	cfg Config
}

func NewMistimedBolus(cfg Config) *MistimedBolus { return &MistimedBolus{cfg: cfg} }

func (r *MistimedBolus) Name() string { return core.RuleMistimedBolus }

func (r *MistimedBolus) Evaluate(ds *core.PatientDataset) []core.Finding {
	var evidence []core.Evidence
	opportunities := 0

	for _, meal := range ds.Carbs().All() {
		bolus, ok := associatedBolus(ds.Insulin(), meal.Timestamp, r.cfg)
		if !ok {
			continue
		}
		opportunities++

		delay := bolus.Timestamp.Sub(meal.Timestamp)
		if delay <= r.cfg.BolusDelayThreshold {
			continue
		}
		peak, covered := postMealPeak(ds.Glucose(), meal.Timestamp, r.cfg.PostprandialWindow)
		if !covered || peak.Value <= r.cfg.MistimedGlucoseThreshold {
			continue
		}

		evidence = append(evidence, core.MistimedBolusEvidence{
			MealTime:     meal.Timestamp,
			BolusTime:    bolus.Timestamp,
			DelayMinutes: round1(delay.Minutes()),
			MaxGlucose:   peak.Value,
			Carbs:        meal.Grams,
			InsulinUnits: bolus.Units,
		})
	}

	if len(evidence) == 0 {
		return nil
	}

	fraction := float64(len(evidence)) / float64(opportunities)
	return []core.Finding{{
		RuleName: r.Name(),
		Severity: r.cfg.MistimedSeverity.Classify(fraction),
		Count:    len(evidence),
		Description: fmt.Sprintf("Found %d of %d bolused meals with insulin more than %.0f minutes after the meal and glucose above %g mg/dL",
			len(evidence), opportunities, r.cfg.BolusDelayThreshold.Minutes(), r.cfg.MistimedGlucoseThreshold),
		ClinicalSignificance: "Suggests need for pre-meal insulin timing education",
		Evidence:             evidence,
	}}
}
