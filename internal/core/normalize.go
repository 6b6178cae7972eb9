package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"
)

// Glucose plausibility bounds in mg/dL. Values outside are dropped, never clamped.
const (
	MinGlucose = 20.0
	MaxGlucose = 600.0
)

// MaxCarbs is the largest single carbohydrate entry, in grams, accepted as real.
const MaxCarbs = 1000.0

// NormalizeOptions tunes ingestion.
type NormalizeOptions struct {
	Detect      DetectOptions
	SampleLimit int // row problems kept in the report
}

// DefaultNormalizeOptions returns the ingestion defaults.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		Detect:      DefaultDetectOptions(),
		SampleLimit: MaxReportSamples,
	}
}

// Normalize parses one complete device export into a PatientDataset.
//
// Row problems are counted in the report and never abort the batch. The
// returned error is an *IngestionError when the layout cannot be resolved or
// no glucose reading survives validation; in the latter case the report is
// returned as well. Any other error means the input is not readable CSV.
func Normalize(raw []byte, hint DeviceType, patientID string, opts NormalizeOptions) (*PatientDataset, *IngestionReport, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, unrecognized("empty file")
	}

	records, lines, err := readRecords(raw)
	if err != nil {
		return nil, nil, err
	}

	det, err := Detect(records, hint, opts.Detect)
	if err != nil {
		return nil, nil, err
	}
	layout := det.Layout

	cols, err := MapColumns(layout, records[det.HeaderRow])
	if err != nil {
		return nil, nil, err
	}

	b := newReportBuilder(layout.Device, lines[det.HeaderRow], opts.SampleLimit)
	n := rowNormalizer{layout: layout, cols: cols, report: b}
	for i := det.HeaderRow + 1; i < len(records); i++ {
		n.row(lines[i], records[i])
	}
	report := b.build()

	if len(n.glucose) == 0 {
		return nil, report, &IngestionError{
			Kind:    KindNoValidRows,
			Message: fmt.Sprintf("%d rows seen, none with a usable glucose value", report.RowsSeen),
			Report:  report,
		}
	}

	ds := NewPatientDataset(patientID, layout.Device, n.glucose, n.insulin, n.carbs).withContentID(raw)
	return ds, report, nil
}

// readRecords reads every record, keeping the input line each one starts on.
func readRecords(raw []byte) ([][]string, []int, error) {
	r := csv.NewReader(NewSanitizingReader(bytes.NewReader(raw)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	var lines []int
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("invalid csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

// rowNormalizer turns data rows into typed events for one layout.
type rowNormalizer struct {
	layout LayoutDefinition
	cols   ColumnMap
	report *reportBuilder

	glucose []GlucoseReading
	insulin []InsulinEvent
	carbs   []CarbEvent
}

func (n *rowNormalizer) row(line int, rec []string) {
	if isBlankRecord(rec) {
		return
	}
	n.report.seen()

	rawTS := n.cols.Cell(rec, FieldTimestamp)
	if n.cols.Has(FieldTimeOfDay) {
		rawTS = CleanCell(rawTS) + " " + CleanCell(n.cols.Cell(rec, FieldTimeOfDay))
	}
	ts, ok := ParseTimestamp(rawTS, n.layout.TimestampLayouts)
	if !ok {
		n.report.drop(line, StreamRow, ReasonBadTimestamp, CleanCell(rawTS))
		return
	}

	n.glucoseCell(line, rec, ts)
	n.insulinCell(line, rec, ts, FieldBolus, InsulinBolus)
	n.insulinCell(line, rec, ts, FieldBasal, InsulinBasal)
	n.carbCell(line, rec, ts)
}

func (n *rowNormalizer) glucoseCell(line int, rec []string, ts time.Time) {
	raw := n.cols.Cell(rec, FieldGlucose)
	v, status := parseNumeric(raw)
	switch {
	case status == cellEmpty:
		// No reading on this row; it still counts against the glucose column.
		n.report.missing(StreamGlucose)
	case status == cellInvalid:
		n.report.drop(line, StreamGlucose, ReasonBadNumeric, CleanCell(raw))
	case v < MinGlucose || v > MaxGlucose:
		n.report.drop(line, StreamGlucose, ReasonOutOfRange, CleanCell(raw))
	default:
		n.glucose = append(n.glucose, GlucoseReading{
			Timestamp: ts,
			Value:     v,
			Trend:     CleanCell(n.cols.Cell(rec, FieldTrend)),
			Notes:     CleanCell(n.cols.Cell(rec, FieldNotes)),
		})
		n.report.accepted(StreamGlucose)
	}
}

// insulinCell handles one insulin column. Zero units is no event, like a blank cell.
func (n *rowNormalizer) insulinCell(line int, rec []string, ts time.Time, field CanonicalField, kind InsulinKind) {
	if !n.cols.Has(field) {
		return
	}
	raw := n.cols.Cell(rec, field)
	v, status := parseNumeric(raw)
	switch {
	case status == cellEmpty || (status == cellOK && v == 0):
		n.report.empty(StreamInsulin)
	case status == cellInvalid:
		n.report.drop(line, StreamInsulin, ReasonBadNumeric, CleanCell(raw))
	case v < 0:
		n.report.drop(line, StreamInsulin, ReasonOutOfRange, CleanCell(raw))
	default:
		n.insulin = append(n.insulin, InsulinEvent{Timestamp: ts, Kind: kind, Units: v})
		n.report.accepted(StreamInsulin)
	}
}

// carbCell handles the carbohydrate column. Zero or negative grams is no event;
// more than MaxCarbs is out of range.
func (n *rowNormalizer) carbCell(line int, rec []string, ts time.Time) {
	if !n.cols.Has(FieldCarbs) {
		return
	}
	raw := n.cols.Cell(rec, FieldCarbs)
	v, status := parseNumeric(raw)
	switch {
	case status == cellEmpty || (status == cellOK && v <= 0):
		n.report.empty(StreamCarb)
	case status == cellInvalid:
		n.report.drop(line, StreamCarb, ReasonBadNumeric, CleanCell(raw))
	case v > MaxCarbs:
		n.report.drop(line, StreamCarb, ReasonOutOfRange, CleanCell(raw))
	default:
		n.carbs = append(n.carbs, CarbEvent{
			Timestamp: ts,
			Grams:     v,
			MealLabel: CleanCell(n.cols.Cell(rec, FieldMealLabel)),
		})
		n.report.accepted(StreamCarb)
	}
}
