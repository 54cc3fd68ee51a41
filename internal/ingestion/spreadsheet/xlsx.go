package spreadsheet

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
)

// ParseXLSX reads the first worksheet; row 1 is the header.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apierr.Validation("unreadable_spreadsheet", "open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apierr.Validation("empty_spreadsheet", "workbook has no sheets")
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apierr.Validation("unreadable_spreadsheet", "read sheet %q: %v", sheets[0], err)
	}

	i := 0
	return decodeRows(func() ([]string, error) {
		if i >= len(cells) {
			return nil, io.EOF
		}
		row := cells[i]
		i++
		return row, nil
	})
}
