package layouts

import "github.com/JonMunkholm/trutrend/internal/core"

func init() {
	registerGlooko()
}

func registerGlooko() {
	core.Register(core.LayoutDefinition{
		Device: core.DeviceGlooko,
		Label:  "Glooko",
		Order:  orderGlooko,
		Columns: []core.ColumnSpec{
			{Field: core.FieldTimestamp, Names: []string{"timestamp"}, Required: true},
			{Field: core.FieldGlucose, Names: []string{"bg_value", "blood glucose", "bg (mg/dl)"}, Required: true},
			{Field: core.FieldBolus, Names: []string{"insulin_bolus", "bolus", "bolus (u)"}},
			{Field: core.FieldBasal, Names: []string{"insulin_basal", "basal"}},
			{Field: core.FieldCarbs, Names: []string{"carbs", "carbohydrates", "carbs (g)"}},
			{Field: core.FieldMealLabel, Names: []string{"meal_type", "meal"}},
		},
		TimestampLayouts: []string{"2006-01-02 15:04:05", "2006-01-02 15:04"},
		Markers:          []string{"glooko"},
	})
}
