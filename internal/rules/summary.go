package rules

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// Consensus glucose bands in mg/dL.
const (
	rangeLow       = 70.0
	rangeHigh      = 180.0
	veryLow        = 54.0
	veryHigh       = 250.0
	implausibleLow = 40.0
	implausibleHi  = 400.0

	minSpanHours       = 24.0
	minReadingsPerDay  = 288 // one reading every 5 minutes
	extremeShareLimit  = 0.05
	qualityIssuePoints = 15
)

// Summarize computes descriptive statistics and a data quality grade over the
// glucose stream. Percentages are shares of readings, rounded to 0.1.
func Summarize(ds *core.PatientDataset) core.GlycemicSummary {
	readings := ds.Glucose().All()
	values := make(stats.Float64Data, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}

	s := core.GlycemicSummary{ReadingCount: len(values)}
	if len(readings) > 0 {
		s.DataSpanHours = round1(readings[len(readings)-1].Timestamp.Sub(readings[0].Timestamp).Hours())
	}
	if len(values) == 0 {
		s.Quality = assessQuality(values, s.DataSpanHours)
		return s
	}

	mean, _ := values.Mean()
	median, _ := values.Median()
	lo, _ := values.Min()
	hi, _ := values.Max()
	sd, err := values.StandardDeviationSample()
	if err != nil || math.IsNaN(sd) {
		sd = 0
	}

	s.MeanGlucose = round1(mean)
	s.MedianGlucose = round1(median)
	s.MinGlucose = lo
	s.MaxGlucose = hi
	s.StdDevGlucose = round1(sd)
	if mean > 0 {
		s.CVPercent = round1(sd / mean * 100)
	}

	s.TimeInRange = share(values, func(v float64) bool { return v >= rangeLow && v <= rangeHigh })
	s.TimeBelow70 = share(values, func(v float64) bool { return v < rangeLow })
	s.TimeBelow54 = share(values, func(v float64) bool { return v < veryLow })
	s.TimeAbove180 = share(values, func(v float64) bool { return v > rangeHigh })
	s.TimeAbove250 = share(values, func(v float64) bool { return v > veryHigh })

	s.EstimatedA1C = round1((mean + 46.7) / 28.7)
	s.GMI = round1(3.31 + 0.02392*mean)
	s.Quality = assessQuality(values, s.DataSpanHours)
	return s
}

func share(values stats.Float64Data, pred func(float64) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	n := 0
	for _, v := range values {
		if pred(v) {
			n++
		}
	}
	return round1(float64(n) / float64(len(values)) * 100)
}

func assessQuality(values stats.Float64Data, spanHours float64) core.DataQuality {
	q := core.DataQuality{Issues: []string{}, Warnings: []string{}}
	if len(values) == 0 {
		q.Reliability = core.ReliabilityUnreliable
		q.Warnings = append(q.Warnings, "No valid readings found")
		return q
	}

	if spanHours < minSpanHours {
		q.Issues = append(q.Issues, "insufficient_duration")
		q.Warnings = append(q.Warnings, fmt.Sprintf("Limited data span (%.1f hours) - insufficient for comprehensive analysis", spanHours))
	}
	if len(values) < minReadingsPerDay {
		q.Issues = append(q.Issues, "data_gaps")
		q.Warnings = append(q.Warnings, fmt.Sprintf("Only %d readings - potential data gaps", len(values)))
	}

	lows := countIf(values, func(v float64) bool { return v < implausibleLow })
	highs := countIf(values, func(v float64) bool { return v > implausibleHi })
	limit := float64(len(values)) * extremeShareLimit
	if float64(lows) > limit {
		q.Issues = append(q.Issues, "frequent_severe_hypo")
		q.Warnings = append(q.Warnings, fmt.Sprintf("High frequency of severe hypoglycemia (%d readings)", lows))
	}
	if float64(highs) > limit {
		q.Issues = append(q.Issues, "frequent_severe_hyper")
		q.Warnings = append(q.Warnings, fmt.Sprintf("High frequency of severe hyperglycemia (%d readings)", highs))
	}

	q.Score = 100 - qualityIssuePoints*len(q.Issues)
	if q.Score < 0 {
		q.Score = 0
	}

	switch {
	case q.Score >= 80 && spanHours >= 24:
		q.Reliability = core.ReliabilityHigh
	case q.Score >= 60 && spanHours >= 12:
		q.Reliability = core.ReliabilityModerate
	case q.Score >= 40:
		q.Reliability = core.ReliabilityLow
	default:
		q.Reliability = core.ReliabilityUnreliable
	}
	q.UsableForClinicalDecisions = (q.Reliability == core.ReliabilityHigh || q.Reliability == core.ReliabilityModerate) && spanHours >= 12
	return q
}

func countIf(values stats.Float64Data, pred func(float64) bool) int {
	n := 0
	for _, v := range values {
		if pred(v) {
			n++
		}
	}
	return n
}
