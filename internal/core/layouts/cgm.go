package layouts

import "github.com/JonMunkholm/trutrend/internal/core"

func init() {
	registerDexcom()
	registerLibreView()
}

func registerDexcom() {
	core.Register(core.LayoutDefinition{
		Device: core.DeviceDexcom,
		Label:  "Dexcom Clarity",
		Order:  orderDexcom,
		Columns: []core.ColumnSpec{
			{Field: core.FieldTimestamp, Names: []string{"timestamp", "Timestamp (YYYY-MM-DDThh:mm:ss)", "display time"}, Required: true},
			{Field: core.FieldGlucose, Names: []string{"glucose_value", "Glucose Value (mg/dL)", "glucose"}, Required: true},
			{Field: core.FieldTrend, Names: []string{"trend_arrow", "Trend Arrow", "trend"}},
			{Field: core.FieldBolus, Names: []string{"Insulin Value (u)", "insulin_bolus"}},
			{Field: core.FieldCarbs, Names: []string{"Carb Value (grams)", "carbs"}},
			{Field: core.FieldNotes, Names: []string{"notes", "event subtype"}},
		},
		TimestampLayouts: []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"},
		Markers:          []string{"dexcom", "clarity"},
	})
}

// LibreView writes day-first dates.
func registerLibreView() {
	core.Register(core.LayoutDefinition{
		Device: core.DeviceLibreView,
		Label:  "FreeStyle LibreView",
		Order:  orderLibreView,
		Columns: []core.ColumnSpec{
			{Field: core.FieldTimestamp, Names: []string{"Device Timestamp", "time"}, Required: true},
			{Field: core.FieldGlucose, Names: []string{"historic_glucose", "Historic Glucose mg/dL", "Historic Glucose (mg/dL)", "Scan Glucose mg/dL"}, Required: true},
			{Field: core.FieldBolus, Names: []string{"Rapid-Acting Insulin (units)"}},
			{Field: core.FieldBasal, Names: []string{"Long-Acting Insulin (units)", "Long-Acting Insulin Value (units)"}},
			{Field: core.FieldCarbs, Names: []string{"Carbohydrates (grams)"}},
			{Field: core.FieldNotes, Names: []string{"Notes"}},
		},
		TimestampLayouts: core.DayFirstLayouts,
		Markers:          []string{"libre", "freestyle", "abbott"},
	})
}
