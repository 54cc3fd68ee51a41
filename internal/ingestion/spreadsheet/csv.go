package spreadsheet

import (
	"encoding/csv"
	"io"
)

func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return decodeRows(cr.Read)
}
