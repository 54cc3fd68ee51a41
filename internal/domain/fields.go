package domain

import (
	"math"
	"strconv"
	"strings"

	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
)

const maxIdentifierLen = 50

// MoldFields are the editable, typed fields of a mold record.
type MoldFields struct {
	PartNumber   string  `json:"part_number"`
	MoldNumber   string  `json:"mold_number"`
	CycleTime    float64 `json:"cycle_time"`
	BOM          string  `json:"bom"`
	NumOperators int     `json:"num_operators"`
}

// RawMoldFields is what arrives from a form post or a spreadsheet row, before coercion.
type RawMoldFields struct {
	PartNumber   string `csv:"part_number"`
	MoldNumber   string `csv:"mold_number"`
	CycleTime    string `csv:"cycle_time"`
	BOM          string `csv:"bom"`
	NumOperators string `csv:"num_operators"`
}

// RequiredColumns lists the inputs every add, edit and import row must supply.
var RequiredColumns = []string{"part_number", "mold_number", "cycle_time", "bom", "num_operators"}

// Parse coerces raw strings into typed fields and validates them.
func (r RawMoldFields) Parse() (MoldFields, error) {
	f := MoldFields{
		PartNumber: strings.TrimSpace(r.PartNumber),
		MoldNumber: strings.TrimSpace(r.MoldNumber),
		BOM:        strings.TrimSpace(r.BOM),
	}

	ct := strings.TrimSpace(r.CycleTime)
	if ct == "" {
		return MoldFields{}, apierr.Validation("missing_cycle_time", "cycle_time is required")
	}
	cycle, err := strconv.ParseFloat(ct, 64)
	if err != nil {
		return MoldFields{}, apierr.Validation("invalid_cycle_time", "cycle_time %q is not a number", ct)
	}
	f.CycleTime = cycle

	ops := strings.TrimSpace(r.NumOperators)
	if ops == "" {
		return MoldFields{}, apierr.Validation("missing_num_operators", "num_operators is required")
	}
	n, err := parseWholeNumber(ops)
	if err != nil {
		return MoldFields{}, apierr.Validation("invalid_num_operators", "num_operators %q is not an integer", ops)
	}
	f.NumOperators = n

	if err := f.Validate(); err != nil {
		return MoldFields{}, err
	}
	return f, nil
}

// parseWholeNumber accepts "2" and the "2.0" spreadsheets tend to produce.
func parseWholeNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, strconv.ErrSyntax
	}
	return int(v), nil
}

// Validate checks required fields and numeric ranges on already-typed fields.
func (f MoldFields) Validate() error {
	switch {
	case f.PartNumber == "":
		return apierr.Validation("missing_part_number", "part_number is required")
	case f.MoldNumber == "":
		return apierr.Validation("missing_mold_number", "mold_number is required")
	case f.BOM == "":
		return apierr.Validation("missing_bom", "bom is required")
	}
	if len(f.PartNumber) > maxIdentifierLen {
		return apierr.Validation("part_number_too_long", "part_number exceeds %d characters", maxIdentifierLen)
	}
	if len(f.MoldNumber) > maxIdentifierLen {
		return apierr.Validation("mold_number_too_long", "mold_number exceeds %d characters", maxIdentifierLen)
	}
	if math.IsNaN(f.CycleTime) || math.IsInf(f.CycleTime, 0) || f.CycleTime < 0 {
		return apierr.Validation("invalid_cycle_time", "cycle_time must be a non-negative number of minutes")
	}
	if f.NumOperators < 0 {
		return apierr.Validation("invalid_num_operators", "num_operators must not be negative")
	}
	return nil
}
