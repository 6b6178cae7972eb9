package core

import (
	"time"
)

// DeviceType identifies a known source layout.
type DeviceType string

const (
	DeviceUnknown   DeviceType = "unknown"
	DeviceDexcom    DeviceType = "dexcom"
	DeviceLibreView DeviceType = "libreview"
	DeviceGlooko    DeviceType = "glooko"
	DeviceTandem    DeviceType = "tandem"
	DeviceMedtronic DeviceType = "medtronic"
	DeviceOmnipod   DeviceType = "omnipod"
)

// ParseDeviceType converts a caller-supplied hint into a DeviceType.
// Empty or unrecognized input returns DeviceUnknown.
func ParseDeviceType(s string) DeviceType {
	switch DeviceType(normalizeHeader(s)) {
	case DeviceDexcom:
		return DeviceDexcom
	case DeviceLibreView:
		return DeviceLibreView
	case DeviceGlooko:
		return DeviceGlooko
	case DeviceTandem:
		return DeviceTandem
	case DeviceMedtronic:
		return DeviceMedtronic
	case DeviceOmnipod:
		return DeviceOmnipod
	default:
		return DeviceUnknown
	}
}

// InsulinKind distinguishes meal-time from background insulin.
type InsulinKind string

const (
	InsulinBolus InsulinKind = "bolus"
	InsulinBasal InsulinKind = "basal"
)

// GlucoseReading is a single glucose measurement in mg/dL.
type GlucoseReading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Trend     string    `json:"trend,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Time implements Timed.
func (g GlucoseReading) Time() time.Time { return g.Timestamp }

// InsulinEvent is a single bolus or basal delivery.
type InsulinEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Kind      InsulinKind `json:"kind"`
	Units     float64     `json:"units"`
}

// Time implements Timed.
func (e InsulinEvent) Time() time.Time { return e.Timestamp }

// IsBolus reports whether the event is a bolus.
func (e InsulinEvent) IsBolus() bool { return e.Kind == InsulinBolus }

// CarbEvent is a logged carbohydrate intake. Grams is always positive.
type CarbEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Grams     float64   `json:"grams"`
	MealLabel string    `json:"meal_label,omitempty"`
}

// Time implements Timed.
func (c CarbEvent) Time() time.Time { return c.Timestamp }

// TimeSpan is the closed interval covered by a dataset.
type TimeSpan struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (s TimeSpan) Duration() time.Duration { return s.End.Sub(s.Start) }

// Stream names used for report accounting.
type StreamName string

const (
	StreamRow     StreamName = "row" // whole-row problems such as an unparseable timestamp
	StreamGlucose StreamName = "glucose"
	StreamInsulin StreamName = "insulin"
	StreamCarb    StreamName = "carb"
)

// DropReason is a row-level validation failure code.
type DropReason string

const (
	ReasonBadTimestamp DropReason = "bad_timestamp"
	ReasonOutOfRange   DropReason = "out_of_range"
	ReasonBadNumeric   DropReason = "bad_numeric"
)

// dropReasonOrder fixes the order of report entries.
var dropReasonOrder = []DropReason{ReasonBadTimestamp, ReasonOutOfRange, ReasonBadNumeric}

var streamOrder = []StreamName{StreamRow, StreamGlucose, StreamInsulin, StreamCarb}

// Severity is the tier assigned to a Finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Analysis is the stored outcome of one ingestion + evaluation run.
// A new Analysis for a patient replaces the previous one.
type Analysis struct {
	ID         string           `json:"analysis_id"`
	DatasetID  string           `json:"dataset_id"`
	PatientID  string           `json:"patient_id"`
	Device     DeviceType       `json:"device_type"`
	FileName   string           `json:"file_name,omitempty"`
	ReceivedAt time.Time        `json:"received_at"`
	Span       TimeSpan         `json:"span"`
	Report     IngestionReport  `json:"ingestion_report"`
	Findings   []Finding        `json:"findings"`
	Summary    *GlycemicSummary `json:"summary,omitempty"`
}
