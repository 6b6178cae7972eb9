package core_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/trutrend/internal/core"
)

func csvText(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func normalize(t *testing.T, raw []byte, hint core.DeviceType) (*core.PatientDataset, *core.IngestionReport) {
	t.Helper()
	ds, rep, err := core.Normalize(raw, hint, "patient-1", core.DefaultNormalizeOptions())
	require.NoError(t, err)
	require.NotNil(t, ds)
	require.NotNil(t, rep)
	return ds, rep
}

func assertGlucoseConservation(t *testing.T, rep *core.IngestionReport) {
	t.Helper()
	sum := rep.RowsAcceptedByStream.Glucose +
		rep.DroppedFor(core.StreamRow) +
		rep.DroppedFor(core.StreamGlucose)
	assert.Equal(t, rep.RowsSeen, sum, "glucose accounting must cover every row seen")
}

func TestNormalize_DexcomBasic(t *testing.T) {
	raw := csvText(
		"timestamp,glucose_value,trend_arrow",
		"2024-01-15 08:05:00,135,SingleUp",
		"2024-01-15 08:00:00,120,Flat",
	)
	ds, rep := normalize(t, raw, "")

	assert.Equal(t, core.DeviceDexcom, ds.Device())
	assert.Equal(t, "patient-1", ds.PatientID())
	require.Equal(t, 2, ds.Glucose().Len())
	assert.Equal(t, 120.0, ds.Glucose().At(0).Value, "readings are sorted by time")
	assert.Equal(t, "Flat", ds.Glucose().At(0).Trend)
	assert.Equal(t, "SingleUp", ds.Glucose().At(1).Trend)
	assert.Equal(t, 0, ds.Insulin().Len())
	assert.Equal(t, 0, ds.Carbs().Len())

	assert.Equal(t, 2, rep.RowsSeen)
	assert.Equal(t, 2, rep.RowsAcceptedByStream.Glucose)
	assert.Empty(t, rep.Dropped)
	assert.Equal(t, 1, rep.HeaderLine)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), ds.Span().Start)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 5, 0, 0, time.UTC), ds.Span().End)
}

func TestNormalize_OutOfRangeGlucoseDropped(t *testing.T) {
	raw := csvText(
		"timestamp,glucose_value",
		"2024-01-15 08:00:00,120",
		"2024-01-15 08:05:00,700",
		"2024-01-15 08:10:00,10",
		"2024-01-15 08:15:00,600",
		"2024-01-15 08:20:00,20",
	)
	ds, rep := normalize(t, raw, core.DeviceDexcom)

	var values []float64
	for _, r := range ds.Glucose().All() {
		values = append(values, r.Value)
	}
	assert.Equal(t, []float64{120, 600, 20}, values, "bounds are inclusive and values are never clamped")
	assert.Equal(t, []core.DropCount{{Reason: core.ReasonOutOfRange, Stream: core.StreamGlucose, Count: 2}}, rep.Dropped)
	assertGlucoseConservation(t, rep)

	require.Len(t, rep.Samples, 2)
	assert.Equal(t, core.RowProblem{Line: 3, Stream: core.StreamGlucose, Reason: core.ReasonOutOfRange, Value: "700"}, rep.Samples[0])
}

func TestNormalize_SingleOutOfRangeRow(t *testing.T) {
	raw := csvText(
		"timestamp,glucose_value",
		"2024-01-15 08:00:00,120",
		"2024-01-15 08:05:00,700",
	)
	_, rep := normalize(t, raw, "")

	assert.Equal(t, 1, rep.DroppedByReason(core.ReasonOutOfRange))
	assert.Equal(t, 1, rep.DroppedTotal())
}

func TestNormalize_RowProblemsAreCountedNotFatal(t *testing.T) {
	raw := csvText(
		"timestamp,bg_value,insulin_bolus,insulin_basal,carbs,meal_type",
		"2024-01-15 08:00:00,120,4.5,0.8,45,breakfast",
		"yesterday,130,1,,10,",
		"2024-01-15 08:10:00,High,,,,",
		"2024-01-15 08:15:00,,-2,abc,0,",
		"2024-01-15 08:20:00,140,,,-5,",
		"2024-01-15 08:25:00,145,0,,xx,",
		",,,,,",
		"",
	)
	ds, rep := normalize(t, raw, "")

	assert.Equal(t, core.DeviceGlooko, ds.Device())
	assert.Equal(t, 6, rep.RowsSeen, "blank rows are not data rows")

	assert.Equal(t, core.StreamCounts{Glucose: 3, Insulin: 2, Carb: 1}, rep.RowsAcceptedByStream)
	assert.Equal(t, []core.DropCount{
		{Reason: core.ReasonBadTimestamp, Stream: core.StreamRow, Count: 1},
		{Reason: core.ReasonOutOfRange, Stream: core.StreamInsulin, Count: 1},
		{Reason: core.ReasonBadNumeric, Stream: core.StreamGlucose, Count: 2},
		{Reason: core.ReasonBadNumeric, Stream: core.StreamInsulin, Count: 1},
		{Reason: core.ReasonBadNumeric, Stream: core.StreamCarb, Count: 1},
	}, rep.Dropped)
	assertGlucoseConservation(t, rep)

	// One row with bolus and basal amounts yields two independent events.
	require.Equal(t, 2, ds.Insulin().Len())
	assert.Equal(t, core.InsulinBolus, ds.Insulin().At(0).Kind)
	assert.Equal(t, 4.5, ds.Insulin().At(0).Units)
	assert.Equal(t, core.InsulinBasal, ds.Insulin().At(1).Kind)
	assert.Equal(t, 0.8, ds.Insulin().At(1).Units)

	require.Equal(t, 1, ds.Carbs().Len())
	assert.Equal(t, 45.0, ds.Carbs().At(0).Grams)
	assert.Equal(t, "breakfast", ds.Carbs().At(0).MealLabel)
}

func TestNormalize_ImplausibleCarbsDropped(t *testing.T) {
	raw := csvText(
		"timestamp,bg_value,insulin_bolus,carbs",
		"2024-01-15 08:00:00,120,,1e300",
		"2024-01-15 08:05:00,125,,1000",
		"2024-01-15 08:10:00,130,,1000.5",
	)
	ds, rep := normalize(t, raw, "")

	require.Equal(t, 1, ds.Carbs().Len())
	assert.Equal(t, 1000.0, ds.Carbs().At(0).Grams)
	assert.Equal(t, []core.DropCount{
		{Reason: core.ReasonOutOfRange, Stream: core.StreamCarb, Count: 2},
	}, rep.Dropped)
	assert.Equal(t, 3, rep.RowsAcceptedByStream.Glucose)
}

func TestNormalize_TiedLayoutFallsToCompleteOne(t *testing.T) {
	raw := csvText(
		"timestamp,bg_value,insulin_bolus,carbs,trend,notes",
		"2024-01-15 08:00:00,120,,45,Flat,",
	)
	ds, _ := normalize(t, raw, "")
	assert.Equal(t, core.DeviceGlooko, ds.Device())
	assert.Equal(t, 1, ds.Glucose().Len())
}

func TestNormalize_BlankGlucoseRowsKeepConservation(t *testing.T) {
	raw := csvText(
		"timestamp,bg_value,insulin_bolus,insulin_basal,carbs",
		"2024-01-15 08:00:00,120,,,",
		"2024-01-15 08:05:00,,4,,45",
	)
	ds, rep := normalize(t, raw, "")

	assert.Equal(t, 2, rep.RowsSeen)
	assert.Equal(t, 1, rep.RowsAcceptedByStream.Glucose)
	assert.Equal(t, []core.DropCount{{Reason: core.ReasonBadNumeric, Stream: core.StreamGlucose, Count: 1}}, rep.Dropped)
	assert.Empty(t, rep.Samples, "blank cells are counted, not sampled")
	assert.Equal(t, rep.RowsSeen, rep.RowsAcceptedByStream.Glucose+rep.DroppedFor(core.StreamGlucose))
	assertGlucoseConservation(t, rep)

	assert.Equal(t, 1, ds.Insulin().Len())
	assert.Equal(t, 1, ds.Carbs().Len())
}

func TestNormalize_OrderingInvariant(t *testing.T) {
	lines := []string{"timestamp,bg_value,insulin_bolus,carbs"}
	for _, m := range []int{50, 5, 35, 0, 20, 45, 10} {
		lines = append(lines, fmt.Sprintf("2024-01-15 09:%02d:00,%d,%d,%d", m, 100+m, m%3+1, m+1))
	}
	ds, _ := normalize(t, csvText(lines...), "")

	assertSorted := func(name string, times []time.Time) {
		for i := 1; i < len(times); i++ {
			assert.False(t, times[i].Before(times[i-1]), "%s stream out of order at %d", name, i)
		}
	}
	var g, in, c []time.Time
	for _, e := range ds.Glucose().All() {
		g = append(g, e.Timestamp)
	}
	for _, e := range ds.Insulin().All() {
		in = append(in, e.Timestamp)
	}
	for _, e := range ds.Carbs().All() {
		c = append(c, e.Timestamp)
	}
	assertSorted("glucose", g)
	assertSorted("insulin", in)
	assertSorted("carb", c)
	assert.Len(t, g, 7)
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := csvText(
		"timestamp,bg_value,insulin_bolus,carbs",
		"2024-01-15 08:15:00,150,4,",
		"2024-01-15 08:00:00,120,,45",
		"2024-01-15 09:15:00,210,,",
	)
	a, repA := normalize(t, raw, "")
	b, repB := normalize(t, raw, "")

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEmpty(t, a.ID())
	assert.Equal(t, a.Glucose().All(), b.Glucose().All())
	assert.Equal(t, a.Insulin().All(), b.Insulin().All())
	assert.Equal(t, a.Carbs().All(), b.Carbs().All())
	assert.Equal(t, repA, repB)
}

func TestNormalize_Preamble(t *testing.T) {
	raw := csvText(
		"Glucose Data,Generated on,2024-01-16,Generated by,FreeStyle LibreView",
		"Device,Serial Number,Device Timestamp,Record Type,Historic Glucose mg/dL,Notes",
		"FreeStyle Libre 2,ABC,13/01/2024 08:00,0,120,",
		"FreeStyle Libre 2,ABC,13/01/2024 08:15,0,128,after run",
	)
	ds, rep := normalize(t, raw, "")

	assert.Equal(t, core.DeviceLibreView, ds.Device())
	assert.Equal(t, 2, rep.HeaderLine)
	assert.Equal(t, 2, rep.RowsSeen)
	first, _ := ds.Glucose().First()
	assert.Equal(t, time.Date(2024, 1, 13, 8, 0, 0, 0, time.UTC), first.Timestamp, "LibreView dates are day-first")
	last, _ := ds.Glucose().Last()
	assert.Equal(t, "after run", last.Notes)
}

func TestNormalize_MedtronicSplitTimestamp(t *testing.T) {
	raw := csvText(
		"Index,Date,Time,Sensor Glucose (mg/dL),Bolus Volume Delivered (U),BWZ Carb Input (grams)",
		"1,2024/01/15,08:00:00,,5.2,60",
		"2,2024/01/15,08:05:00,142,,",
	)
	ds, rep := normalize(t, raw, "")

	assert.Equal(t, core.DeviceMedtronic, ds.Device())
	require.Equal(t, 1, ds.Glucose().Len())
	assert.Equal(t, time.Date(2024, 1, 15, 8, 5, 0, 0, time.UTC), ds.Glucose().At(0).Timestamp)
	assert.Equal(t, 1, ds.Insulin().Len())
	assert.Equal(t, 1, ds.Carbs().Len())
	assert.Equal(t, 1, rep.DroppedFor(core.StreamGlucose), "the bolus-only row has no reading")
	assert.Empty(t, rep.Samples)
	assertGlucoseConservation(t, rep)
}

func TestNormalize_BOMAndQuotedCells(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, csvText(
		`"timestamp","glucose_value"`,
		`"2024-01-15 08:00:00","120"`,
		`="2024-01-15 08:05:00",="125"`,
	)...)
	ds, _ := normalize(t, raw, "")
	assert.Equal(t, 2, ds.Glucose().Len())
}

func TestNormalize_SampleLimit(t *testing.T) {
	lines := []string{"timestamp,glucose_value"}
	for i := 0; i < 30; i++ {
		lines = append(lines, "bad,120")
	}
	lines = append(lines, "2024-01-15 08:00:00,120")

	_, rep := normalize(t, csvText(lines...), "")
	assert.Len(t, rep.Samples, core.MaxReportSamples)
	assert.Equal(t, 30, rep.DroppedByReason(core.ReasonBadTimestamp))
	assert.Equal(t, 2, rep.Samples[0].Line)
}

func TestNormalize_NoValidRows(t *testing.T) {
	raw := csvText(
		"timestamp,glucose_value",
		"2024-01-15 08:00:00,700",
		"garbage,120",
	)
	ds, rep, err := core.Normalize(raw, "", "p1", core.DefaultNormalizeOptions())

	require.Error(t, err)
	assert.Nil(t, ds)
	assert.True(t, errors.Is(err, core.ErrNoValidRows))

	ie, ok := core.AsIngestionError(err)
	require.True(t, ok)
	assert.Equal(t, core.KindNoValidRows, ie.Kind)
	require.NotNil(t, ie.Report)
	assert.Same(t, rep, ie.Report)
	assert.Equal(t, 2, ie.Report.RowsSeen)
	assertGlucoseConservation(t, rep)
}

func TestNormalize_UnrecognizedFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		hint core.DeviceType
	}{
		{"empty input", []byte("  \n"), ""},
		{"unknown header", csvText("a,b,c", "1,2,3"), ""},
		{"hint missing required column", csvText("timestamp,notes", "2024-01-15 08:00:00,x"), core.DeviceDexcom},
		{"hint not in catalogue", csvText("timestamp,glucose_value"), core.DeviceType("pumpco")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, rep, err := core.Normalize(tt.raw, tt.hint, "p1", core.DefaultNormalizeOptions())
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.Nil(t, rep)
			assert.True(t, errors.Is(err, core.ErrUnrecognizedFormat))
			assert.Equal(t, "FMT001", core.MapError(err).Code)
		})
	}
}
