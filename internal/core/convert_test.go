package core

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseTimestamp Tests
// ----------------------------------------------------------------------------

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		preferred []string
		want      time.Time
		wantOK    bool
	}{
		{
			name:   "ISO with seconds",
			input:  "2024-01-15 08:00:00",
			want:   time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "ISO with T separator",
			input:  "2024-01-15T08:05:00",
			want:   time.Date(2024, 1, 15, 8, 5, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "RFC3339 offset converted to UTC",
			input:  "2024-01-15T08:00:00-05:00",
			want:   time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "US month first without seconds",
			input:  "01/15/2024 08:00",
			want:   time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "US single digit month and 12-hour clock",
			input:  "1/5/2024 2:30 PM",
			want:   time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "ambiguous date is month first by default",
			input:  "02/03/2024 10:00",
			want:   time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:      "ambiguous date follows preferred day-first layout",
			input:     "02/03/2024 10:00",
			preferred: DayFirstLayouts,
			want:      time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
			wantOK:    true,
		},
		{
			name:      "day-first falls back to global list",
			input:     "2024-03-02 10:00:00",
			preferred: DayFirstLayouts,
			want:      time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
			wantOK:    true,
		},
		{
			name:   "Excel formula wrapper",
			input:  `="2024-01-15 08:00:00"`,
			want:   time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "date only is rejected",
			input:  "2024-01-15",
			wantOK: false,
		},
		{
			name:   "garbage",
			input:  "not-a-date",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "   ",
			wantOK: false,
		},
		{
			name:   "invalid month",
			input:  "13/45/2024 08:00",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.input, tt.preferred)
			if ok != tt.wantOK {
				t.Fatalf("ParseTimestamp(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if ok && got.Location() != time.UTC {
				t.Errorf("ParseTimestamp(%q) location = %v, want UTC", tt.input, got.Location())
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"120", 120, true},
		{"120.5", 120.5, true},
		{" 95 ", 95, true},
		{"-1.5", -1.5, true},
		{".5", 0.5, true},
		{"1e2", 100, true},
		{"1,250", 1250, true},
		{"180 mg/dL", 180, true},
		{"4.5 U", 4.5, true},
		{"4.5 units", 4.5, true},
		{"45g", 45, true},
		{`="210"`, 210, true},
		{"", 0, false},
		{"High", 0, false},
		{"LOW", 0, false},
		{"12abc", 0, false},
		{"1.2.3", 0, false},
		{"--5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNumeric_EmptyVersusInvalid(t *testing.T) {
	if _, status := parseNumeric("  "); status != cellEmpty {
		t.Errorf("blank cell status = %v, want cellEmpty", status)
	}
	if _, status := parseNumeric(`""`); status != cellEmpty {
		t.Errorf("quoted empty cell status = %v, want cellEmpty", status)
	}
	if _, status := parseNumeric("n/a"); status != cellInvalid {
		t.Errorf("n/a status = %v, want cellInvalid", status)
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple string unchanged", input: "hello", want: "hello"},
		{name: "empty string", input: "", want: ""},
		{name: "surrounded by whitespace", input: "  hello  ", want: "hello"},
		{name: "Excel formula with quotes", input: `="12345"`, want: "12345"},
		{name: "bare equals sign", input: "=SUM(A1)", want: "SUM(A1)"},
		{name: "double quotes", input: `"hello"`, want: "hello"},
		{name: "single quotes", input: `'hello'`, want: "hello"},
		{name: "whitespace inside quotes", input: `" 120 "`, want: "120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Header Tests
// ----------------------------------------------------------------------------

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"glucose_value", "glucose value"},
		{"Glucose Value", "glucose value"},
		{"  GLUCOSE   VALUE ", "glucose value"},
		{"Rapid-Acting Insulin (units)", "rapid acting insulin (units)"},
		{`"Timestamp (YYYY-MM-DDThh:mm:ss)"`, "timestamp (yyyy mm ddthh:mm:ss)"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeHeader(tt.input); got != tt.want {
				t.Errorf("normalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		checks map[string]int // key -> expected index
	}{
		{
			name:   "underscores and case normalized",
			header: []string{"Timestamp", "Glucose_Value", "TREND_ARROW"},
			checks: map[string]int{
				"timestamp":     0,
				"glucose value": 1,
				"trend arrow":   2,
			},
		},
		{
			name:   "headers with quotes and whitespace",
			header: []string{` "timestamp" `, `="bg_value"`},
			checks: map[string]int{
				"timestamp": 0,
				"bg value":  1,
			},
		},
		{
			name:   "empty header",
			header: []string{},
			checks: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := MakeHeaderIndex(tt.header)

			for key, wantPos := range tt.checks {
				gotPos, ok := idx[key]
				if !ok {
					t.Errorf("MakeHeaderIndex(%v)[%q] not found, want index %d",
						tt.header, key, wantPos)
					continue
				}
				if gotPos != wantPos {
					t.Errorf("MakeHeaderIndex(%v)[%q] = %d, want %d",
						tt.header, key, gotPos, wantPos)
				}
			}
		})
	}
}

// TestMakeHeaderIndex_DuplicateHeaders verifies the first of two equal names wins.
func TestMakeHeaderIndex_DuplicateHeaders(t *testing.T) {
	header := []string{"Glucose", "Notes", "glucose"}
	idx := MakeHeaderIndex(header)

	if gotPos, ok := idx["glucose"]; !ok || gotPos != 0 {
		t.Errorf("MakeHeaderIndex with duplicates: glucose index = %d, want 0", gotPos)
	}
}

func TestMakeHeaderIndex_SkipsBlankNames(t *testing.T) {
	idx := MakeHeaderIndex([]string{"", "timestamp", "  "})
	if len(idx) != 1 {
		t.Errorf("len(idx) = %d, want 1", len(idx))
	}
}

func TestIsBlankRecord(t *testing.T) {
	if !isBlankRecord([]string{"", " ", `""`}) {
		t.Error("expected record of empty cells to be blank")
	}
	if isBlankRecord([]string{"", "120"}) {
		t.Error("expected record with a value not to be blank")
	}
}
