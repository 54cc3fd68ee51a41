package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
)

// Row is one data row. Number is the row as a spreadsheet user sees it: the header is
// row 1, so the first data row is 2.
type Row struct {
	Number int
	Fields domain.RawMoldFields
}

// Parse reads every non-blank data row of a .csv, .xlsx or .xlsm upload.
func Parse(filename string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	default:
		return nil, apierr.Validation("unsupported_spreadsheet", "file %q: expected .xlsx, .xlsm or .csv", filename)
	}
}

// NormalizeHeader maps "  Part Number " to "part_number".
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), "_"))
}

type rowSource func() ([]string, error)

// rowReader feeds csvutil one non-blank row at a time, sized to the header, and
// remembers which spreadsheet row it came from.
type rowReader struct {
	next   rowSource
	width  int
	line   int
	number int
}

func (r *rowReader) Read() ([]string, error) {
	for {
		rec, err := r.next()
		if err != nil {
			return nil, err
		}
		r.line++
		if isBlank(rec) {
			continue
		}
		r.number = r.line
		switch {
		case len(rec) < r.width:
			padded := make([]string, r.width)
			copy(padded, rec)
			rec = padded
		case len(rec) > r.width:
			rec = rec[:r.width]
		}
		return rec, nil
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// decodeRows reads the header from next, checks the required columns and decodes the
// rest into RawMoldFields.
func decodeRows(next rowSource) ([]Row, error) {
	rawHeader, err := next()
	if errors.Is(err, io.EOF) {
		return nil, apierr.Validation("empty_spreadsheet", "spreadsheet has no header row")
	}
	if err != nil {
		return nil, apierr.Validation("unreadable_spreadsheet", "read header: %v", err)
	}

	header := make([]string, len(rawHeader))
	present := map[string]bool{}
	for i, h := range rawHeader {
		name := NormalizeHeader(h)
		if name == "" {
			name = fmt.Sprintf("_unnamed_%d", i+1)
		}
		if present[name] {
			return nil, apierr.Validation("duplicate_column", "column %q appears more than once", name)
		}
		header[i] = name
		present[name] = true
	}
	var missing []string
	for _, col := range domain.RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apierr.Validation("missing_columns", "missing required columns: %s", strings.Join(missing, ", "))
	}

	rr := &rowReader{next: next, width: len(header), line: 1}
	dec, err := csvutil.NewDecoder(rr, header...)
	if err != nil {
		return nil, apierr.Validation("unreadable_spreadsheet", "decode header: %v", err)
	}

	var rows []Row
	for {
		var raw domain.RawMoldFields
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, apierr.Validation("unreadable_spreadsheet", "row %d: %v", rr.line, err)
		}
		rows = append(rows, Row{Number: rr.number, Fields: raw})
	}
	return rows, nil
}
