package domain

import (
	"testing"

	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
)

func TestRawMoldFieldsParse(t *testing.T) {
	got, err := RawMoldFields{
		PartNumber:   " PN-1 ",
		MoldNumber:   "MN-1",
		CycleTime:    "12.5",
		BOM:          "resin\ngelcoat",
		NumOperators: "2",
	}.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := MoldFields{PartNumber: "PN-1", MoldNumber: "MN-1", CycleTime: 12.5, BOM: "resin\ngelcoat", NumOperators: 2}
	if got != want {
		t.Fatalf("Parse: want=%+v got=%+v", want, got)
	}
}

func TestRawMoldFieldsParseAcceptsSpreadsheetIntegers(t *testing.T) {
	got, err := RawMoldFields{PartNumber: "A", MoldNumber: "B", CycleTime: "3", BOM: "x", NumOperators: "4.0"}.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.NumOperators != 4 {
		t.Fatalf("NumOperators: want=4 got=%d", got.NumOperators)
	}
}

func TestRawMoldFieldsParseRejects(t *testing.T) {
	valid := RawMoldFields{PartNumber: "A", MoldNumber: "B", CycleTime: "1.5", BOM: "x", NumOperators: "1"}

	cases := []struct {
		name   string
		mutate func(r *RawMoldFields)
		code   string
	}{
		{"missing part", func(r *RawMoldFields) { r.PartNumber = "  " }, "missing_part_number"},
		{"missing mold", func(r *RawMoldFields) { r.MoldNumber = "" }, "missing_mold_number"},
		{"missing bom", func(r *RawMoldFields) { r.BOM = "" }, "missing_bom"},
		{"missing cycle", func(r *RawMoldFields) { r.CycleTime = "" }, "missing_cycle_time"},
		{"bad cycle", func(r *RawMoldFields) { r.CycleTime = "fast" }, "invalid_cycle_time"},
		{"negative cycle", func(r *RawMoldFields) { r.CycleTime = "-1" }, "invalid_cycle_time"},
		{"nan cycle", func(r *RawMoldFields) { r.CycleTime = "NaN" }, "invalid_cycle_time"},
		{"missing ops", func(r *RawMoldFields) { r.NumOperators = "" }, "missing_num_operators"},
		{"fractional ops", func(r *RawMoldFields) { r.NumOperators = "1.5" }, "invalid_num_operators"},
		{"word ops", func(r *RawMoldFields) { r.NumOperators = "two" }, "invalid_num_operators"},
		{"negative ops", func(r *RawMoldFields) { r.NumOperators = "-2" }, "invalid_num_operators"},
		{"long part", func(r *RawMoldFields) { r.PartNumber = string(make([]byte, 51)) + "x" }, "part_number_too_long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := valid
			tc.mutate(&raw)
			_, err := raw.Parse()
			if err == nil {
				t.Fatalf("Parse: expected error")
			}
			if apierr.KindOf(err) != apierr.KindValidation {
				t.Fatalf("kind: want=%q got=%q", apierr.KindValidation, apierr.KindOf(err))
			}
			if got := apierr.CodeOf(err, ""); got != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, got)
			}
		})
	}
}

func TestProcessDefaultsSeed(t *testing.T) {
	d, err := NewProcessDefaults(map[string]float64{"Foam": 75})
	if err != nil {
		t.Fatalf("NewProcessDefaults: %v", err)
	}
	seed := d.Seed()
	if len(seed) != len(ProcessNames) {
		t.Fatalf("len: want=%d got=%d", len(ProcessNames), len(seed))
	}
	for _, name := range ProcessNames {
		pt, ok := seed[name]
		if !ok {
			t.Fatalf("missing process %q", name)
		}
		if pt.Actual != nil {
			t.Fatalf("process %q: actual should start nil", name)
		}
	}
	if seed["Foam"].Standard != 75 {
		t.Fatalf("Foam: want=75 got=%v", seed["Foam"].Standard)
	}
	if seed["Gelcoat"].Standard != DefaultStandardTimes["Gelcoat"] {
		t.Fatalf("Gelcoat: got=%v", seed["Gelcoat"].Standard)
	}

	seed["Foam"] = ProcessTiming{Standard: 1}
	if d.Seed()["Foam"].Standard != 75 {
		t.Fatalf("Seed must return an independent map")
	}
}

func TestProcessDefaultsRejectUnknown(t *testing.T) {
	if _, err := NewProcessDefaults(map[string]float64{"Welding": 5}); err == nil {
		t.Fatalf("expected error for unknown process")
	}
	if _, err := NewProcessDefaults(map[string]float64{"Foam": -1}); err == nil {
		t.Fatalf("expected error for negative standard")
	}
}
