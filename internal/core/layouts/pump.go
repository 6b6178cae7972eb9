package layouts

import "github.com/JonMunkholm/trutrend/internal/core"

func init() {
	registerTandem()
	registerMedtronic()
	registerOmnipod()
}

func registerTandem() {
	core.Register(core.LayoutDefinition{
		Device: core.DeviceTandem,
		Label:  "Tandem t:connect",
		Order:  orderTandem,
		Columns: []core.ColumnSpec{
			{Field: core.FieldTimestamp, Names: []string{"EventDateTime", "Event Date Time"}, Required: true},
			{Field: core.FieldGlucose, Names: []string{"BG Reading (mg/dL)", "Readings (CGM / BGM)", "BG"}, Required: true},
			{Field: core.FieldBolus, Names: []string{"Insulin Delivered", "Bolus (U)"}},
			{Field: core.FieldBasal, Names: []string{"Basal Rate (U/hr)"}},
			{Field: core.FieldCarbs, Names: []string{"Carb Size", "Carbs (g)"}},
			{Field: core.FieldNotes, Names: []string{"Description"}},
		},
		TimestampLayouts: []string{"2006-01-02T15:04:05", "01/02/2006 15:04"},
		Markers:          []string{"tandem", "t:connect", "t:slim"},
	})
}

// CareLink splits the timestamp into Date and Time columns.
func registerMedtronic() {
	core.Register(core.LayoutDefinition{
		Device: core.DeviceMedtronic,
		Label:  "Medtronic CareLink",
		Order:  orderMedtronic,
		Columns: []core.ColumnSpec{
			{Field: core.FieldTimestamp, Names: []string{"Date", "Timestamp"}, Required: true},
			{Field: core.FieldTimeOfDay, Names: []string{"Time"}},
			{Field: core.FieldGlucose, Names: []string{"Sensor Glucose (mg/dL)", "BG Reading (mg/dL)"}, Required: true},
			{Field: core.FieldBolus, Names: []string{"Bolus Volume Delivered (U)"}},
			{Field: core.FieldBasal, Names: []string{"Basal Rate (U/h)"}},
			{Field: core.FieldCarbs, Names: []string{"BWZ Carb Input (grams)"}},
		},
		TimestampLayouts: []string{"2006/01/02 15:04:05", "1/2/06 15:04:05", "01/02/2006 15:04:05"},
		Markers:          []string{"carelink", "medtronic", "minimed"},
	})
}

func registerOmnipod() {
	core.Register(core.LayoutDefinition{
		Device: core.DeviceOmnipod,
		Label:  "Omnipod VIEW",
		Order:  orderOmnipod,
		Columns: []core.ColumnSpec{
			{Field: core.FieldTimestamp, Names: []string{"Date/Time", "Timestamp"}, Required: true},
			{Field: core.FieldGlucose, Names: []string{"BG Reading (mg/dL)", "Glucose (mg/dL)"}, Required: true},
			{Field: core.FieldBolus, Names: []string{"Bolus Volume Delivered (U)", "Insulin Delivered (U)"}},
			{Field: core.FieldBasal, Names: []string{"Basal (U)"}},
			{Field: core.FieldCarbs, Names: []string{"Carbs (g)"}},
			{Field: core.FieldNotes, Names: []string{"Notes"}},
		},
		TimestampLayouts: []string{"01/02/2006 15:04", "01/02/2006 03:04 PM"},
		Markers:          []string{"omnipod", "insulet"},
	})
}
