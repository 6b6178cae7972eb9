package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Rule identifiers. Their order is the order findings are reported in.
const (
	RulePostprandialHyperglycemia = "postprandial_hyperglycemia"
	RuleMistimedBolus             = "mistimed_bolus"
	RuleCarbRatioMismatch         = "carb_ratio_mismatch"
)

// Evidence is one structured record supporting a Finding.
// Concrete types are PostprandialEvidence, MistimedBolusEvidence and CarbRatioEvidence.
type Evidence interface {
	EventTime() time.Time
}

// PostprandialEvidence records a meal followed by a glucose excursion.
type PostprandialEvidence struct {
	MealTime        time.Time `json:"meal_time"`
	MaxGlucose      float64   `json:"max_glucose"`
	Carbs           float64   `json:"carbs"`
	PeakTimeMinutes int       `json:"peak_time_minutes"`
}

func (e PostprandialEvidence) EventTime() time.Time { return e.MealTime }

// MistimedBolusEvidence records a bolus delivered late relative to its meal.
type MistimedBolusEvidence struct {
	MealTime     time.Time `json:"meal_time"`
	BolusTime    time.Time `json:"bolus_time"`
	DelayMinutes float64   `json:"delay_minutes"`
	MaxGlucose   float64   `json:"max_glucose"`
	Carbs        float64   `json:"carbs"`
	InsulinUnits float64   `json:"insulin_units"`
}

func (e MistimedBolusEvidence) EventTime() time.Time { return e.MealTime }

// CarbRatioEvidence records one problematic meal inside a carbohydrate bin.
type CarbRatioEvidence struct {
	MealTime       time.Time `json:"meal_time"`
	CarbRange      string    `json:"carb_range"`
	Carbs          float64   `json:"carbs"`
	BolusTime      time.Time `json:"bolus_time"`
	InsulinUnits   float64   `json:"insulin_units"`
	MaxGlucose     float64   `json:"max_glucose"`
	EstimatedRatio *float64  `json:"estimated_ratio,omitempty"`
}

func (e CarbRatioEvidence) EventTime() time.Time { return e.MealTime }

// Finding is a severity-graded, evidence-backed rule match.
type Finding struct {
	RuleName             string     `json:"rule_name"`
	Severity             Severity   `json:"severity"`
	Count                int        `json:"count"`
	Description          string     `json:"description"`
	ClinicalSignificance string     `json:"clinical_significance"`
	Evidence             []Evidence `json:"evidence"`
}

// UnmarshalJSON decodes evidence into the concrete type for the rule.
func (f *Finding) UnmarshalJSON(data []byte) error {
	var aux struct {
		RuleName             string            `json:"rule_name"`
		Severity             Severity          `json:"severity"`
		Count                int               `json:"count"`
		Description          string            `json:"description"`
		ClinicalSignificance string            `json:"clinical_significance"`
		Evidence             []json.RawMessage `json:"evidence"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	evidence := make([]Evidence, 0, len(aux.Evidence))
	for i, raw := range aux.Evidence {
		e, err := decodeEvidence(aux.RuleName, raw)
		if err != nil {
			return fmt.Errorf("evidence %d: %w", i, err)
		}
		evidence = append(evidence, e)
	}

	*f = Finding{
		RuleName:             aux.RuleName,
		Severity:             aux.Severity,
		Count:                aux.Count,
		Description:          aux.Description,
		ClinicalSignificance: aux.ClinicalSignificance,
		Evidence:             evidence,
	}
	return nil
}

func decodeEvidence(rule string, raw json.RawMessage) (Evidence, error) {
	switch rule {
	case RulePostprandialHyperglycemia:
		var e PostprandialEvidence
		err := json.Unmarshal(raw, &e)
		return e, err
	case RuleMistimedBolus:
		var e MistimedBolusEvidence
		err := json.Unmarshal(raw, &e)
		return e, err
	case RuleCarbRatioMismatch:
		var e CarbRatioEvidence
		err := json.Unmarshal(raw, &e)
		return e, err
	default:
		return nil, fmt.Errorf("unknown rule %q", rule)
	}
}
