package core

// MaxReportSamples caps the number of individual row problems kept in a report.
const MaxReportSamples = 20

// StreamCounts holds one counter per event stream.
type StreamCounts struct {
	Glucose int `json:"glucose"`
	Insulin int `json:"insulin"`
	Carb    int `json:"carb"`
}

func (c *StreamCounts) add(s StreamName) {
	switch s {
	case StreamGlucose:
		c.Glucose++
	case StreamInsulin:
		c.Insulin++
	case StreamCarb:
		c.Carb++
	}
}

// DropCount aggregates dropped rows (or sub-events) by reason and stream.
type DropCount struct {
	Reason DropReason `json:"reason"`
	Stream StreamName `json:"stream"`
	Count  int        `json:"count"`
}

// RowProblem is one sampled validation failure. Line is the 1-based line in the input.
type RowProblem struct {
	Line   int        `json:"line"`
	Stream StreamName `json:"stream"`
	Reason DropReason `json:"reason"`
	Value  string     `json:"value"`
}

// IngestionReport summarises what happened to every data row.
//
// For the glucose stream every counted row ends up in exactly one bucket:
//
//	RowsAcceptedByStream.Glucose + DroppedFor(row) + DroppedFor(glucose) == RowsSeen
//
// A blank glucose cell is a glucose bad_numeric drop, so carb-only and
// bolus-only rows are counted there. They are not sampled.
//
// EmptyByStream counts blank or zero insulin and carb cells, which produce
// no event without being a problem. Insulin is accounted per cell, so a row
// with both a bolus and a basal amount counts twice.
type IngestionReport struct {
	Device               DeviceType   `json:"device_type"`
	HeaderLine           int          `json:"header_line"`
	RowsSeen             int          `json:"rows_seen"`
	RowsAcceptedByStream StreamCounts `json:"rows_accepted_by_stream"`
	EmptyByStream        StreamCounts `json:"empty_by_stream"`
	Dropped              []DropCount  `json:"dropped"`
	Samples              []RowProblem `json:"samples,omitempty"`
}

// DroppedFor returns the number of drops attributed to a stream.
func (r *IngestionReport) DroppedFor(s StreamName) int {
	total := 0
	for _, d := range r.Dropped {
		if d.Stream == s {
			total += d.Count
		}
	}
	return total
}

// DroppedByReason returns the number of drops with the given reason across streams.
func (r *IngestionReport) DroppedByReason(reason DropReason) int {
	total := 0
	for _, d := range r.Dropped {
		if d.Reason == reason {
			total += d.Count
		}
	}
	return total
}

// DroppedTotal returns the number of drops across all reasons and streams.
func (r *IngestionReport) DroppedTotal() int {
	total := 0
	for _, d := range r.Dropped {
		total += d.Count
	}
	return total
}

type dropKey struct {
	reason DropReason
	stream StreamName
}

// reportBuilder accumulates counts while rows are normalized.
type reportBuilder struct {
	report      IngestionReport
	drops       map[dropKey]int
	sampleLimit int
}

func newReportBuilder(device DeviceType, headerLine, sampleLimit int) *reportBuilder {
	if sampleLimit < 0 {
		sampleLimit = 0
	}
	return &reportBuilder{
		report:      IngestionReport{Device: device, HeaderLine: headerLine},
		drops:       make(map[dropKey]int),
		sampleLimit: sampleLimit,
	}
}

func (b *reportBuilder) seen()                 { b.report.RowsSeen++ }
func (b *reportBuilder) accepted(s StreamName) { b.report.RowsAcceptedByStream.add(s) }
func (b *reportBuilder) empty(s StreamName)    { b.report.EmptyByStream.add(s) }

// missing counts a blank cell as a bad_numeric drop without keeping a sample.
func (b *reportBuilder) missing(s StreamName) {
	b.drops[dropKey{ReasonBadNumeric, s}]++
}

func (b *reportBuilder) drop(line int, s StreamName, reason DropReason, value string) {
	b.drops[dropKey{reason, s}]++
	if len(b.report.Samples) < b.sampleLimit {
		b.report.Samples = append(b.report.Samples, RowProblem{
			Line:   line,
			Stream: s,
			Reason: reason,
			Value:  value,
		})
	}
}

// build emits drop counts in fixed reason order, then stream order.
func (b *reportBuilder) build() *IngestionReport {
	r := b.report
	r.Dropped = make([]DropCount, 0, len(b.drops))
	for _, reason := range dropReasonOrder {
		for _, s := range streamOrder {
			if n := b.drops[dropKey{reason, s}]; n > 0 {
				r.Dropped = append(r.Dropped, DropCount{Reason: reason, Stream: s, Count: n})
			}
		}
	}
	return &r
}
