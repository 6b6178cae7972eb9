package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// CarbRatio flags carbohydrate bands where similar meals repeatedly end in
// hyperglycemia despite a bolus. It emits one finding per band.
type CarbRatio struct {
	cfg Config
}

func NewCarbRatio(cfg Config) *CarbRatio { return &CarbRatio{cfg: cfg} }

func (r *CarbRatio) Name() string { return core.RuleCarbRatioMismatch }

// carbBin is the band [lower, lower+width).
type carbBin struct {
	index int
	meals []core.CarbEvent
}

func (r *CarbRatio) Evaluate(ds *core.PatientDataset) []core.Finding {
	bins := r.bin(ds.Carbs().All())

	var findings []core.Finding
	for _, b := range bins {
		if len(b.meals) < r.cfg.MinMealsPerBin {
			continue
		}

		label := r.label(b.index)
		var evidence []core.Evidence
		for _, meal := range b.meals {
			bolus, ok := associatedBolus(ds.Insulin(), meal.Timestamp, r.cfg)
			if !ok {
				continue
			}
			peak, covered := postMealPeak(ds.Glucose(), meal.Timestamp, r.cfg.PostprandialWindow)
			if !covered || peak.Value <= r.cfg.HyperglycemiaThreshold {
				continue
			}

			ev := core.CarbRatioEvidence{
				MealTime:     meal.Timestamp,
				CarbRange:    label,
				Carbs:        meal.Grams,
				BolusTime:    bolus.Timestamp,
				InsulinUnits: bolus.Units,
				MaxGlucose:   peak.Value,
			}
			if bolus.Units > 0 {
				ratio := round1(meal.Grams / bolus.Units)
				ev.EstimatedRatio = &ratio
			}
			evidence = append(evidence, ev)
		}

		if len(evidence) < r.cfg.MinProblematicMeals {
			continue
		}
		findings = append(findings, core.Finding{
			RuleName: r.Name(),
			Severity: r.cfg.CarbRatioSeverity.Classify(len(evidence)),
			Count:    len(evidence),
			Description: fmt.Sprintf("Found %d of %d meals of %s carbohydrate with glucose above %g mg/dL despite a bolus",
				len(evidence), len(b.meals), label, r.cfg.HyperglycemiaThreshold),
			ClinicalSignificance: "May indicate incorrect insulin-to-carb ratio requiring adjustment",
			Evidence:             evidence,
		})
	}
	return findings
}

// maxCarbBin caps the band index so oversized entries share the top band.
const maxCarbBin = 1 << 20

// bin groups meals by floor(grams/width), bands ascending. Meals keep time order within a band.
func (r *CarbRatio) bin(meals []core.CarbEvent) []carbBin {
	byIndex := make(map[int]*carbBin)
	for _, m := range meals {
		idx := int(math.Min(math.Floor(m.Grams/r.cfg.CarbBinWidth), maxCarbBin))
		b, ok := byIndex[idx]
		if !ok {
			b = &carbBin{index: idx}
			byIndex[idx] = b
		}
		b.meals = append(b.meals, m)
	}

	out := make([]carbBin, 0, len(byIndex))
	for _, b := range byIndex {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

func (r *CarbRatio) label(index int) string {
	lo := float64(index) * r.cfg.CarbBinWidth
	return fmt.Sprintf("%g-%g g", lo, lo+r.cfg.CarbBinWidth)
}
