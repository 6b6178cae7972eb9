package core

import (
	"fmt"
	"strings"
)

// DetectOptions tunes format detection.
type DetectOptions struct {
	// MatchThreshold is the minimum weighted share of a layout's columns that
	// must be present in a header row for the layout to be considered.
	MatchThreshold float64

	// MaxHeaderSearchRows bounds how many leading rows may be preamble.
	MaxHeaderSearchRows int
}

// DefaultDetectOptions returns the detection defaults.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		MatchThreshold:      0.5,
		MaxHeaderSearchRows: 20,
	}
}

func (o DetectOptions) withDefaults() DetectOptions {
	d := DefaultDetectOptions()
	if o.MatchThreshold <= 0 || o.MatchThreshold > 1 {
		o.MatchThreshold = d.MatchThreshold
	}
	if o.MaxHeaderSearchRows <= 0 {
		o.MaxHeaderSearchRows = d.MaxHeaderSearchRows
	}
	return o
}

// Detection is the outcome of matching the leading rows against the catalogue.
type Detection struct {
	Layout    LayoutDefinition
	HeaderRow int // zero-based record index of the header
	Score     float64
	Hinted    bool
}

// ScoreHeader returns the weighted share of def's columns present in header.
// Required columns weigh 2, optional columns 1.
func ScoreHeader(def LayoutDefinition, header []string) float64 {
	return scoreIndex(def, MakeHeaderIndex(header))
}

func scoreIndex(def LayoutDefinition, idx HeaderIndex) float64 {
	var total, matched int
	for _, col := range def.Columns {
		w := 1
		if col.Required {
			w = 2
		}
		total += w
		if _, ok := idx.find(col.Names); ok {
			matched += w
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// find returns the position of the first name present in the index.
func (h HeaderIndex) find(names []string) (int, bool) {
	for _, n := range names {
		if pos, ok := h[normalizeHeader(n)]; ok {
			return pos, true
		}
	}
	return 0, false
}

// Detect locates the header row among the leading records and picks a layout.
//
// With a hint, the hinted layout is used and the header is the first row that
// holds all of its required columns. Without one, the header is the first row
// where some layout holds all of its required columns and scores at or above
// the threshold; ties on score go to the layout whose vendor marker appears in
// the rows up to and including the header, then to catalogue order. The
// result depends only on the records passed in.
func Detect(records [][]string, hint DeviceType, opts DetectOptions) (Detection, error) {
	opts = opts.withDefaults()

	limit := len(records)
	if limit > opts.MaxHeaderSearchRows {
		limit = opts.MaxHeaderSearchRows
	}
	if limit == 0 {
		return Detection{}, unrecognized("no header row found")
	}

	if hint != "" && hint != DeviceUnknown {
		return detectHinted(records[:limit], hint)
	}

	layouts := All()
	if len(layouts) == 0 {
		return Detection{}, unrecognized("no layouts registered")
	}

	// incomplete remembers the first layout that scored well but lacks a
	// required column, so the error can name what is missing.
	var incomplete error

	for row := 0; row < limit; row++ {
		idx := MakeHeaderIndex(records[row])
		if len(idx) == 0 {
			continue
		}

		var best []LayoutDefinition
		bestScore := 0.0
		for _, def := range layouts {
			s := scoreIndex(def, idx)
			if s < opts.MatchThreshold || s < bestScore {
				continue
			}
			if missing := missingRequired(def, idx); len(missing) > 0 {
				if incomplete == nil {
					incomplete = unrecognized("%s layout: required column %s not found",
						def.Device, strings.Join(missing, ", "))
				}
				continue
			}
			switch {
			case s > bestScore:
				best, bestScore = []LayoutDefinition{def}, s
			default:
				best = append(best, def)
			}
		}
		if len(best) == 0 {
			continue
		}

		chosen := best[0]
		if len(best) > 1 {
			chosen = breakTie(best, preambleText(records[:row+1]))
		}
		return Detection{Layout: chosen, HeaderRow: row, Score: bestScore}, nil
	}

	if incomplete != nil {
		return Detection{}, incomplete
	}
	return Detection{}, unrecognized("no known device layout matches the first %d rows", limit)
}

func detectHinted(records [][]string, hint DeviceType) (Detection, error) {
	def, ok := Get(hint)
	if !ok {
		return Detection{}, unrecognized("unknown device type %q", string(hint))
	}

	for row, rec := range records {
		idx := MakeHeaderIndex(rec)
		if len(idx) == 0 {
			continue
		}
		if missing := missingRequired(def, idx); len(missing) == 0 {
			return Detection{Layout: def, HeaderRow: row, Score: scoreIndex(def, idx), Hinted: true}, nil
		}
	}

	// Report against the first non-empty row so the message names real columns.
	for _, rec := range records {
		idx := MakeHeaderIndex(rec)
		if len(idx) > 0 {
			return Detection{}, unrecognized("%s layout: required column %s not found",
				def.Device, strings.Join(missingRequired(def, idx), ", "))
		}
	}
	return Detection{}, unrecognized("no header row found")
}

func missingRequired(def LayoutDefinition, idx HeaderIndex) []string {
	var missing []string
	for _, col := range def.Columns {
		if !col.Required {
			continue
		}
		if _, ok := idx.find(col.Names); !ok {
			missing = append(missing, string(col.Field))
		}
	}
	return missing
}

// breakTie prefers a layout whose marker appears in text; candidates are in catalogue order.
func breakTie(candidates []LayoutDefinition, text string) LayoutDefinition {
	for _, def := range candidates {
		for _, m := range def.Markers {
			if m != "" && strings.Contains(text, m) {
				return def
			}
		}
	}
	return candidates[0]
}

func preambleText(records [][]string) string {
	var b strings.Builder
	for _, rec := range records {
		for _, c := range rec {
			b.WriteString(strings.ToLower(c))
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ColumnMap resolves canonical fields to column positions for one layout.
type ColumnMap map[CanonicalField]int

// MapColumns maps def's columns onto header. Column order is irrelevant and
// optional columns may be absent; a missing required column is an
// unrecognized format.
func MapColumns(def LayoutDefinition, header []string) (ColumnMap, error) {
	idx := MakeHeaderIndex(header)
	if missing := missingRequired(def, idx); len(missing) > 0 {
		return nil, unrecognized("%s layout: required column %s not found",
			def.Device, strings.Join(missing, ", "))
	}

	m := make(ColumnMap, len(def.Columns))
	for _, col := range def.Columns {
		if pos, ok := idx.find(col.Names); ok {
			m[col.Field] = pos
		}
	}
	return m, nil
}

// Has reports whether the field is mapped.
func (m ColumnMap) Has(f CanonicalField) bool {
	_, ok := m[f]
	return ok
}

// Cell returns the raw cell for f, or "" when unmapped or the row is short.
func (m ColumnMap) Cell(rec []string, f CanonicalField) string {
	pos, ok := m[f]
	if !ok || pos >= len(rec) {
		return ""
	}
	return rec[pos]
}

func (m ColumnMap) String() string {
	parts := make([]string, 0, len(m))
	for _, f := range []CanonicalField{FieldTimestamp, FieldTimeOfDay, FieldGlucose, FieldBolus, FieldBasal, FieldCarbs, FieldMealLabel, FieldTrend, FieldNotes} {
		if pos, ok := m[f]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", f, pos))
		}
	}
	return strings.Join(parts, " ")
}
