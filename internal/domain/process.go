package domain

import "fmt"

// ProcessNames is the fixed set of manufacturing steps, in display order.
var ProcessNames = []string{
	"Prefab",
	"Gelcoat",
	"Lamination",
	"Foam",
	"Part & Prep",
	"T&G",
	"Part Inspection",
	"QC Check",
	"Mold Repair",
}

// ProcessTiming is standard vs actual minutes for one step. Actual is nil until measured.
type ProcessTiming struct {
	Standard float64  `json:"standard" yaml:"standard"`
	Actual   *float64 `json:"actual" yaml:"actual,omitempty"`
}

type ProcessData map[string]ProcessTiming

// DefaultStandardTimes are the shop-floor standard minutes used when no override file is set.
var DefaultStandardTimes = map[string]float64{
	"Prefab":          30,
	"Gelcoat":         45,
	"Lamination":      120,
	"Foam":            60,
	"Part & Prep":     40,
	"T&G":             25,
	"Part Inspection": 15,
	"QC Check":        10,
	"Mold Repair":     30,
}

// ProcessDefaults seeds the process data of new records.
type ProcessDefaults struct {
	standard map[string]float64
}

func NewProcessDefaults(overrides map[string]float64) (ProcessDefaults, error) {
	std := make(map[string]float64, len(ProcessNames))
	for name, v := range DefaultStandardTimes {
		std[name] = v
	}
	for name, v := range overrides {
		if !IsProcessName(name) {
			return ProcessDefaults{}, fmt.Errorf("unknown process %q", name)
		}
		if v < 0 {
			return ProcessDefaults{}, fmt.Errorf("process %q: standard time must not be negative", name)
		}
		std[name] = v
	}
	return ProcessDefaults{standard: std}, nil
}

// Seed returns a fresh ProcessData with every step present and no actual values.
func (d ProcessDefaults) Seed() ProcessData {
	out := make(ProcessData, len(ProcessNames))
	for _, name := range ProcessNames {
		std, ok := d.standard[name]
		if !ok {
			std = DefaultStandardTimes[name]
		}
		out[name] = ProcessTiming{Standard: std}
	}
	return out
}

func IsProcessName(name string) bool {
	for _, n := range ProcessNames {
		if n == name {
			return true
		}
	}
	return false
}
