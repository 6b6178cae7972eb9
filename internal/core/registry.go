package core

import (
	"fmt"
	"sort"
	"sync"
)

// CanonicalField names a device-independent column.
type CanonicalField string

const (
	FieldTimestamp CanonicalField = "timestamp"
	FieldTimeOfDay CanonicalField = "time_of_day" // set when date and time are separate columns
	FieldGlucose   CanonicalField = "glucose"
	FieldBolus     CanonicalField = "bolus"
	FieldBasal     CanonicalField = "basal"
	FieldCarbs     CanonicalField = "carbs"
	FieldMealLabel CanonicalField = "meal_label"
	FieldTrend     CanonicalField = "trend"
	FieldNotes     CanonicalField = "notes"
)

// ColumnSpec binds a canonical field to the header names a device uses for it.
// Names are tried in order; the first one present in the header wins.
type ColumnSpec struct {
	Field    CanonicalField `json:"field"`
	Names    []string       `json:"names"`
	Required bool           `json:"required"`
}

// LayoutDefinition describes one known device export layout.
type LayoutDefinition struct {
	Device DeviceType `json:"device_type"`
	Label  string     `json:"label"`

	// Order is the catalogue position, used as the last detection tie-break.
	Order int `json:"order"`

	Columns []ColumnSpec `json:"columns"`

	// TimestampLayouts are tried before the global list.
	TimestampLayouts []string `json:"timestamp_layouts,omitempty"`

	// Markers are lowercase vendor strings that may appear in preamble lines.
	Markers []string `json:"markers,omitempty"`
}

// Column returns the spec for a canonical field.
func (d LayoutDefinition) Column(f CanonicalField) (ColumnSpec, bool) {
	for _, c := range d.Columns {
		if c.Field == f {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

var (
	registry   = make(map[DeviceType]LayoutDefinition)
	registryMu sync.RWMutex
)

// Register adds a layout to the catalogue.
// Panics if the device is already registered or the layout has no timestamp column.
func Register(def LayoutDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if def.Device == "" || def.Device == DeviceUnknown {
		panic("layout registered without a device type")
	}
	if _, exists := registry[def.Device]; exists {
		panic(fmt.Sprintf("layout already registered: %s", def.Device))
	}
	if ts, ok := def.Column(FieldTimestamp); !ok || !ts.Required {
		panic(fmt.Sprintf("layout %s: timestamp column must be required", def.Device))
	}

	registry[def.Device] = def
}

// Get returns the layout for a device.
// Returns false if not found.
func Get(device DeviceType) (LayoutDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[device]
	return def, ok
}

// All returns every registered layout in catalogue order.
func All() []LayoutDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]LayoutDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Device < result[j].Device
	})

	return result
}

// LayoutCount returns the number of registered layouts.
func LayoutCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
