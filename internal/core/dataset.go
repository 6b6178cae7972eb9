package core

import (
	"time"

	"github.com/google/uuid"
)

// datasetNamespace scopes name-based dataset ids.
var datasetNamespace = uuid.MustParse("6f1c2b9e-52c4-4f0e-9a54-3b7d2f8c1e07")

// PatientDataset is the immutable result of one ingestion call.
// A re-upload produces a new dataset; datasets are never merged.
type PatientDataset struct {
	id        string
	patientID string
	device    DeviceType
	glucose   Stream[GlucoseReading]
	insulin   Stream[InsulinEvent]
	carbs     Stream[CarbEvent]
	span      TimeSpan
}

// NewPatientDataset builds a dataset from unsorted event slices.
// The slices are copied; later changes to them do not affect the dataset.
func NewPatientDataset(patientID string, device DeviceType, glucose []GlucoseReading, insulin []InsulinEvent, carbs []CarbEvent) *PatientDataset {
	ds := &PatientDataset{
		patientID: patientID,
		device:    device,
		glucose:   NewStream(glucose),
		insulin:   NewStream(insulin),
		carbs:     NewStream(carbs),
	}
	ds.span = computeSpan(ds.glucose, ds.insulin, ds.carbs)
	return ds
}

// withContentID stamps a name-based id derived from the raw input and patient.
func (d *PatientDataset) withContentID(raw []byte) *PatientDataset {
	name := make([]byte, 0, len(d.patientID)+1+len(d.device)+1+len(raw))
	name = append(name, d.patientID...)
	name = append(name, 0)
	name = append(name, d.device...)
	name = append(name, 0)
	name = append(name, raw...)
	d.id = uuid.NewSHA1(datasetNamespace, name).String()
	return d
}

// ID is stable for identical input text, hint and patient.
// Datasets built directly with NewPatientDataset have an empty ID.
func (d *PatientDataset) ID() string { return d.id }

func (d *PatientDataset) PatientID() string               { return d.patientID }
func (d *PatientDataset) Device() DeviceType              { return d.device }
func (d *PatientDataset) Glucose() Stream[GlucoseReading] { return d.glucose }
func (d *PatientDataset) Insulin() Stream[InsulinEvent]   { return d.insulin }
func (d *PatientDataset) Carbs() Stream[CarbEvent]        { return d.carbs }

// Span returns the min/max timestamp across all three streams.
func (d *PatientDataset) Span() TimeSpan { return d.span }

func computeSpan(g Stream[GlucoseReading], i Stream[InsulinEvent], c Stream[CarbEvent]) TimeSpan {
	var span TimeSpan
	set := false
	extend := func(first, last time.Time) {
		if !set {
			span = TimeSpan{Start: first, End: last}
			set = true
			return
		}
		if first.Before(span.Start) {
			span.Start = first
		}
		if last.After(span.End) {
			span.End = last
		}
	}

	if f, ok := g.First(); ok {
		l, _ := g.Last()
		extend(f.Time(), l.Time())
	}
	if f, ok := i.First(); ok {
		l, _ := i.Last()
		extend(f.Time(), l.Time())
	}
	if f, ok := c.First(); ok {
		l, _ := c.Last()
		extend(f.Time(), l.Time())
	}
	return span
}
