package core

// Reliability grades how far a dataset can be trusted for interpretation.
type Reliability string

const (
	ReliabilityHigh       Reliability = "HIGH"
	ReliabilityModerate   Reliability = "MODERATE"
	ReliabilityLow        Reliability = "LOW"
	ReliabilityUnreliable Reliability = "UNRELIABLE"
)

// GlycemicSummary holds descriptive statistics over the glucose stream.
// Percentages are of readings, not of wall-clock time.
type GlycemicSummary struct {
	ReadingCount  int         `json:"reading_count"`
	MeanGlucose   float64     `json:"mean_glucose"`
	MedianGlucose float64     `json:"median_glucose"`
	MinGlucose    float64     `json:"min_glucose"`
	MaxGlucose    float64     `json:"max_glucose"`
	StdDevGlucose float64     `json:"std_dev_glucose"`
	CVPercent     float64     `json:"cv_percent"`
	TimeInRange   float64     `json:"time_in_range_70_180"`
	TimeBelow70   float64     `json:"time_below_70"`
	TimeBelow54   float64     `json:"time_below_54"`
	TimeAbove180  float64     `json:"time_above_180"`
	TimeAbove250  float64     `json:"time_above_250"`
	EstimatedA1C  float64     `json:"estimated_a1c"`
	GMI           float64     `json:"gmi"`
	DataSpanHours float64     `json:"data_span_hours"`
	Quality       DataQuality `json:"data_quality"`
}

// DataQuality describes coverage and plausibility of the glucose stream.
type DataQuality struct {
	Score                      int         `json:"quality_score"`
	Reliability                Reliability `json:"reliability"`
	Issues                     []string    `json:"issues"`
	Warnings                   []string    `json:"warnings"`
	UsableForClinicalDecisions bool        `json:"usable_for_clinical_decisions"`
}
