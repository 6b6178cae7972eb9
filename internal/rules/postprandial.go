package rules

import (
	"fmt"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// Postprandial flags meals followed by glucose above the hyperglycemia
// threshold within the post-meal window.
type Postprandial struct {
	cfg Config
}

func NewPostprandial(cfg Config) *Postprandial { return &Postprandial{cfg: cfg} }

func (r *Postprandial) Name() string { return core.RulePostprandialHyperglycemia }

func (r *Postprandial) Evaluate(ds *core.PatientDataset) []core.Finding {
	var evidence []core.Evidence
	opportunities := 0

	for _, meal := range ds.Carbs().All() {
		peak, covered := postMealPeak(ds.Glucose(), meal.Timestamp, r.cfg.PostprandialWindow)
		if !covered {
			continue
		}
		opportunities++
		if peak.Value <= r.cfg.HyperglycemiaThreshold {
			continue
		}
		evidence = append(evidence, core.PostprandialEvidence{
			MealTime:        meal.Timestamp,
			MaxGlucose:      peak.Value,
			Carbs:           meal.Grams,
			PeakTimeMinutes: int(minutesBetween(meal.Timestamp, peak.Timestamp)),
		})
	}

	if len(evidence) == 0 {
		return nil
	}

	fraction := float64(len(evidence)) / float64(opportunities)
	return []core.Finding{{
		RuleName: r.Name(),
		Severity: r.cfg.PostprandialSeverity.Classify(fraction),
		Count:    len(evidence),
		Description: fmt.Sprintf("Found %d of %d meals (%.0f%%) followed by glucose above %g mg/dL within %.0f minutes",
			len(evidence), opportunities, fraction*100, r.cfg.HyperglycemiaThreshold, r.cfg.PostprandialWindow.Minutes()),
		ClinicalSignificance: "May indicate need for meal insulin timing or dosing adjustment",
		Evidence:             evidence,
	}}
}
