package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/trutrend/internal/core"
)

var day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

// clock returns day at hh:mm.
func clock(hh, mm int) time.Time {
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func glucose(t time.Time, v float64) core.GlucoseReading {
	return core.GlucoseReading{Timestamp: t, Value: v}
}

func bolus(t time.Time, units float64) core.InsulinEvent {
	return core.InsulinEvent{Timestamp: t, Kind: core.InsulinBolus, Units: units}
}

func meal(t time.Time, grams float64) core.CarbEvent {
	return core.CarbEvent{Timestamp: t, Grams: grams}
}

func dataset(g []core.GlucoseReading, i []core.InsulinEvent, c []core.CarbEvent) *core.PatientDataset {
	return core.NewPatientDataset("p1", core.DeviceGlooko, g, i, c)
}

func TestPostprandial_SingleMealSpike(t *testing.T) {
	ds := dataset(
		[]core.GlucoseReading{glucose(clock(8, 30), 150), glucose(clock(9, 15), 210), glucose(clock(9, 45), 190)},
		nil,
		[]core.CarbEvent{meal(clock(8, 0), 45)},
	)

	findings := NewPostprandial(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, core.RulePostprandialHyperglycemia, f.RuleName)
	assert.Equal(t, core.SeverityHigh, f.Severity)
	assert.Equal(t, 1, f.Count)
	assert.Equal(t, []core.Evidence{core.PostprandialEvidence{
		MealTime:        clock(8, 0),
		MaxGlucose:      210,
		Carbs:           45,
		PeakTimeMinutes: 75,
	}}, f.Evidence)
	assert.NotEmpty(t, f.Description)
	assert.NotEmpty(t, f.ClinicalSignificance)
}

func TestPostprandial_ThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"exactly 180 does not trigger", 180, 0},
		{"180.01 triggers", 180.01, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := dataset(
				[]core.GlucoseReading{glucose(clock(9, 0), tt.value)},
				nil,
				[]core.CarbEvent{meal(clock(8, 0), 30)},
			)
			assert.Len(t, NewPostprandial(DefaultConfig()).Evaluate(ds), tt.want)
		})
	}
}

func TestPostprandial_WindowBounds(t *testing.T) {
	ds := dataset(
		[]core.GlucoseReading{
			glucose(clock(8, 0), 300),  // at meal time: excluded
			glucose(clock(10, 1), 300), // after 120 min: excluded
			glucose(clock(10, 0), 170), // exactly 120 min: included
		},
		nil,
		[]core.CarbEvent{meal(clock(8, 0), 30)},
	)
	assert.Empty(t, NewPostprandial(DefaultConfig()).Evaluate(ds))
}

func TestPostprandial_PeakTieUsesEarliestReading(t *testing.T) {
	ds := dataset(
		[]core.GlucoseReading{glucose(clock(8, 40), 220), glucose(clock(9, 20), 220)},
		nil,
		[]core.CarbEvent{meal(clock(8, 0), 30)},
	)
	findings := NewPostprandial(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)
	assert.Equal(t, 40, findings[0].Evidence[0].(core.PostprandialEvidence).PeakTimeMinutes)
}

func TestPostprandial_UncoveredMealsLeaveDenominator(t *testing.T) {
	// Two covered meals (one spike), one meal with no readings at all.
	ds := dataset(
		[]core.GlucoseReading{glucose(clock(8, 30), 200), glucose(clock(12, 30), 150)},
		nil,
		[]core.CarbEvent{meal(clock(8, 0), 40), meal(clock(12, 0), 40), meal(clock(18, 0), 40)},
	)
	findings := NewPostprandial(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)
	// 1/2 = 0.5 is high; counting the uncovered meal would make it 1/3, medium.
	assert.Equal(t, core.SeverityHigh, findings[0].Severity)
	assert.Contains(t, findings[0].Description, "1 of 2 meals")
}

func TestPostprandial_SeverityTiers(t *testing.T) {
	tests := []struct {
		name   string
		spikes int
		meals  int
		want   core.Severity
	}{
		{"half is high", 2, 4, core.SeverityHigh},
		{"three in ten is medium", 3, 10, core.SeverityMedium},
		{"below thirty percent is low", 2, 10, core.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g []core.GlucoseReading
			var c []core.CarbEvent
			for i := 0; i < tt.meals; i++ {
				m := day.Add(time.Duration(i) * 4 * time.Hour)
				c = append(c, meal(m, 40))
				v := 140.0
				if i < tt.spikes {
					v = 240
				}
				g = append(g, glucose(m.Add(time.Hour), v))
			}
			findings := NewPostprandial(DefaultConfig()).Evaluate(dataset(g, nil, c))
			require.Len(t, findings, 1)
			assert.Equal(t, tt.want, findings[0].Severity)
			assert.Equal(t, tt.spikes, findings[0].Count)
		})
	}
}

func TestPostprandial_NoMealsNoFinding(t *testing.T) {
	ds := dataset([]core.GlucoseReading{glucose(clock(8, 0), 300)}, nil, nil)
	assert.Empty(t, NewPostprandial(DefaultConfig()).Evaluate(ds))
}

func TestMistimedBolus_LateBolusWithSpike(t *testing.T) {
	ds := dataset(
		[]core.GlucoseReading{glucose(clock(9, 0), 185)},
		[]core.InsulinEvent{bolus(clock(8, 15), 4)},
		[]core.CarbEvent{meal(clock(8, 0), 45)},
	)

	findings := NewMistimedBolus(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, core.RuleMistimedBolus, f.RuleName)
	assert.Equal(t, 1, f.Count)
	assert.Equal(t, core.SeverityHigh, f.Severity)
	assert.Equal(t, []core.Evidence{core.MistimedBolusEvidence{
		MealTime:     clock(8, 0),
		BolusTime:    clock(8, 15),
		DelayMinutes: 15,
		MaxGlucose:   185,
		Carbs:        45,
		InsulinUnits: 4,
	}}, f.Evidence)
}

func TestMistimedBolus_Cases(t *testing.T) {
	tests := []struct {
		name    string
		insulin []core.InsulinEvent
		peak    float64
		want    int
	}{
		{"delay of exactly 10 minutes is on time", []core.InsulinEvent{bolus(clock(8, 10), 4)}, 250, 0},
		{"pre-bolus is on time", []core.InsulinEvent{bolus(clock(7, 55), 4)}, 250, 0},
		{"late bolus without spike", []core.InsulinEvent{bolus(clock(8, 30), 4)}, 160, 0},
		{"late bolus with spike", []core.InsulinEvent{bolus(clock(8, 30), 4)}, 160.5, 1},
		{"bolus outside lookahead is not associated", []core.InsulinEvent{bolus(clock(9, 1), 4)}, 250, 0},
		{"basal is never a bolus", []core.InsulinEvent{{Timestamp: clock(8, 30), Kind: core.InsulinBasal, Units: 1}}, 250, 0},
		{"nearest bolus wins", []core.InsulinEvent{bolus(clock(7, 58), 2), bolus(clock(8, 40), 4)}, 250, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := dataset(
				[]core.GlucoseReading{glucose(clock(9, 0), tt.peak)},
				tt.insulin,
				[]core.CarbEvent{meal(clock(8, 0), 50)},
			)
			findings := NewMistimedBolus(DefaultConfig()).Evaluate(ds)
			if tt.want == 0 {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Equal(t, tt.want, findings[0].Count)
		})
	}
}

func TestMistimedBolus_DelayRoundedToTenthMinute(t *testing.T) {
	ds := dataset(
		[]core.GlucoseReading{glucose(clock(9, 0), 200)},
		[]core.InsulinEvent{bolus(clock(8, 12).Add(20*time.Second), 3)},
		[]core.CarbEvent{meal(clock(8, 0), 50)},
	)
	findings := NewMistimedBolus(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)
	assert.Equal(t, 12.3, findings[0].Evidence[0].(core.MistimedBolusEvidence).DelayMinutes)
}

func TestMistimedBolus_MealsWithoutBolusExcluded(t *testing.T) {
	// Only the first of five meals has a bolus. 1/1 is high; 1/5 would be medium.
	var c []core.CarbEvent
	for i := 0; i < 5; i++ {
		c = append(c, meal(day.Add(time.Duration(i)*4*time.Hour), 40))
	}
	ds := dataset(
		[]core.GlucoseReading{glucose(day.Add(time.Hour), 220)},
		[]core.InsulinEvent{bolus(day.Add(20*time.Minute), 5)},
		c,
	)
	findings := NewMistimedBolus(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)
	assert.Equal(t, core.SeverityHigh, findings[0].Severity)
	assert.Contains(t, findings[0].Description, "1 of 1 bolused meals")
}

// carbScenario builds meals at 08:00 on consecutive days, each with a bolus five
// minutes later and a reading one hour later.
func carbScenario(grams []float64, peaks []float64) *core.PatientDataset {
	var g []core.GlucoseReading
	var i []core.InsulinEvent
	var c []core.CarbEvent
	for n := range grams {
		m := clock(8, 0).AddDate(0, 0, n)
		c = append(c, meal(m, grams[n]))
		i = append(i, bolus(m.Add(5*time.Minute), 4))
		g = append(g, glucose(m.Add(time.Hour), peaks[n]))
	}
	return dataset(g, i, c)
}

func TestCarbRatio_FiveProblematicMealsIsHigh(t *testing.T) {
	ds := carbScenario(
		[]float64{45, 42, 48, 44, 46},
		[]float64{200, 210, 190, 220, 205},
	)

	findings := NewCarbRatio(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, core.RuleCarbRatioMismatch, f.RuleName)
	assert.Equal(t, core.SeverityHigh, f.Severity)
	assert.Equal(t, 5, f.Count)
	require.Len(t, f.Evidence, 5)

	first := f.Evidence[0].(core.CarbRatioEvidence)
	assert.Equal(t, "40-60 g", first.CarbRange)
	assert.Equal(t, 45.0, first.Carbs)
	assert.Equal(t, 4.0, first.InsulinUnits)
	assert.Equal(t, clock(8, 5), first.BolusTime)
	require.NotNil(t, first.EstimatedRatio)
	assert.Equal(t, 11.3, *first.EstimatedRatio)

	for k := 1; k < len(f.Evidence); k++ {
		assert.True(t, f.Evidence[k].EventTime().After(f.Evidence[k-1].EventTime()))
	}
}

func TestCarbRatio_ThreeOrFourIsMedium(t *testing.T) {
	ds := carbScenario(
		[]float64{45, 42, 48, 44},
		[]float64{200, 210, 150, 220},
	)
	findings := NewCarbRatio(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)
	assert.Equal(t, core.SeverityMedium, findings[0].Severity)
	assert.Equal(t, 3, findings[0].Count)
}

func TestCarbRatio_NoFinding(t *testing.T) {
	tests := []struct {
		name  string
		grams []float64
		peaks []float64
	}{
		{"bin with fewer than three meals", []float64{45, 42}, []float64{250, 250}},
		{"only two problematic meals", []float64{45, 42, 48}, []float64{250, 250, 180}},
		{"meals spread over bins", []float64{15, 45, 65, 85}, []float64{250, 250, 250, 250}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, NewCarbRatio(DefaultConfig()).Evaluate(carbScenario(tt.grams, tt.peaks)))
		})
	}
}

func TestCarbRatio_BinsAreHalfOpenAndOrdered(t *testing.T) {
	// 40 belongs to [40,60); 60 belongs to [60,80).
	ds := carbScenario(
		[]float64{60, 61, 79, 40, 59, 41},
		[]float64{250, 250, 250, 250, 250, 250},
	)
	findings := NewCarbRatio(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 2)
	assert.Equal(t, "40-60 g", findings[0].Evidence[0].(core.CarbRatioEvidence).CarbRange)
	assert.Equal(t, "60-80 g", findings[1].Evidence[0].(core.CarbRatioEvidence).CarbRange)
}

func TestCarbRatio_UnbolusedMealCountsTowardBinOnly(t *testing.T) {
	ds := carbScenario([]float64{45, 42, 48}, []float64{250, 250, 250})
	withoutBolus := core.NewPatientDataset("p1", core.DeviceGlooko,
		ds.Glucose().All(),
		ds.Insulin().All()[:2],
		ds.Carbs().All(),
	)
	assert.Empty(t, NewCarbRatio(DefaultConfig()).Evaluate(withoutBolus))
}

func TestCarbRatio_ConfigurableBinWidth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CarbBinWidth = 10
	ds := carbScenario([]float64{41, 45, 49}, []float64{250, 250, 250})
	findings := NewCarbRatio(cfg).Evaluate(ds)
	require.Len(t, findings, 1)
	assert.Equal(t, "40-50 g", findings[0].Evidence[0].(core.CarbRatioEvidence).CarbRange)
}

func TestCarbRatio_HugeEntriesShareTopBin(t *testing.T) {
	ds := carbScenario([]float64{1e300, 5e300, 1e301}, []float64{250, 250, 250})
	findings := NewCarbRatio(DefaultConfig()).Evaluate(ds)
	require.Len(t, findings, 1)
	assert.Equal(t, 3, findings[0].Count)
	assert.Equal(t, "2.097152e+07-2.097154e+07 g", findings[0].Evidence[0].(core.CarbRatioEvidence).CarbRange)
}

func TestEngine_OrderAndIdempotence(t *testing.T) {
	// Meals that trigger all three rules.
	var g []core.GlucoseReading
	var i []core.InsulinEvent
	var c []core.CarbEvent
	for n := 0; n < 5; n++ {
		m := clock(8, 0).AddDate(0, 0, n)
		c = append(c, meal(m, 45))
		i = append(i, bolus(m.Add(20*time.Minute), 4))
		g = append(g, glucose(m.Add(90*time.Minute), 230))
	}
	ds := dataset(g, i, c)
	engine := NewEngine(DefaultConfig())

	first := engine.Evaluate(ds)
	require.Len(t, first, 3)
	assert.Equal(t, []string{
		core.RulePostprandialHyperglycemia,
		core.RuleMistimedBolus,
		core.RuleCarbRatioMismatch,
	}, []string{first[0].RuleName, first[1].RuleName, first[2].RuleName})
	assert.Equal(t, engine.Names(), []string{first[0].RuleName, first[1].RuleName, first[2].RuleName})

	second := engine.Evaluate(ds)
	assert.Equal(t, first, second)
}

func TestEngine_EmptyResultIsNotNil(t *testing.T) {
	ds := dataset([]core.GlucoseReading{glucose(clock(8, 0), 120)}, nil, nil)
	findings := NewEngine(DefaultConfig()).Evaluate(ds)
	assert.NotNil(t, findings)
	assert.Empty(t, findings)
	assert.NotNil(t, NewEngine(DefaultConfig()).Evaluate(nil))
}

func TestEngine_CustomRuleList(t *testing.T) {
	engine := NewEngineWith(NewCarbRatio(DefaultConfig()))
	assert.Equal(t, []string{core.RuleCarbRatioMismatch}, engine.Names())
}
