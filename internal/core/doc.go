// Package core provides the ingestion pipeline and domain model for device exports.
//
// This package holds all domain logic independent of any transport or storage
// layer. It can be used by web handlers, CLI tools, or tests without
// modification, and it performs no I/O of its own.
//
// # Architecture
//
// Data flows strictly in one direction:
//
//   - Layout Registry: device export layouts are registered at init time via
//     [Register] (see package layouts).
//   - Detection: [Detect] finds the header row and the best matching layout.
//   - Column Mapping: [MapColumns] resolves canonical fields to positions.
//   - Normalization: [Normalize] validates rows into typed events and counts
//     every dropped row in an [IngestionReport].
//   - Event Store: [Stream] keeps each event type sorted and answers range and
//     nearest-event queries by binary search.
//
// # Layout Registry
//
// Each [LayoutDefinition] lists the header names a device uses per canonical
// field and the timestamp forms it prefers:
//
//	core.Register(core.LayoutDefinition{
//	    Device: core.DeviceDexcom,
//	    Label:  "Dexcom Clarity",
//	    Columns: []core.ColumnSpec{
//	        {Field: core.FieldTimestamp, Names: []string{"timestamp"}, Required: true},
//	        {Field: core.FieldGlucose, Names: []string{"glucose value (mg/dl)"}, Required: true},
//	    },
//	})
//
// # Error Handling
//
// Fatal ingestion failures are returned as [*IngestionError] and match
// [ErrUnrecognizedFormat] or [ErrNoValidRows] through errors.Is. Row problems
// are never errors.
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FMT001-FMT002: Format errors (unrecognized layout, unknown device)
//   - ROW001: No usable glucose rows
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - ANL001-ANL003: Analysis service errors
//   - UPL004-UPL005: Request cancelled or timed out
package core
