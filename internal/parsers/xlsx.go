package parsers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/pkg/errors"
)

// datePrefix marks columns whose numeric cells are spreadsheet date serials
const datePrefix = "fecha"

func (l *Loader) loadXLSX(ctx context.Context, path string) ([]rows.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer f.Close()

	sheet := l.config.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, errors.ParseError(errors.CodeEmptySheet, path, 0, "", nil)
	}

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", err).
			WithContext("sheet", sheet)
	}

	var headers []string
	var dateColumns []string
	var out []rows.Row
	for i, record := range records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if isBlankRecord(record) {
			continue
		}
		if headers == nil {
			headers = cleanHeaders(record)
			for _, h := range headers {
				if strings.HasPrefix(strings.ToLower(h), datePrefix) {
					dateColumns = append(dateColumns, h)
				}
			}
			continue
		}

		row := rowFromCells(headers, record)
		for _, column := range dateColumns {
			if t, ok := l.serialToTime(row[column]); ok {
				row[column] = t
			}
		}
		out = append(out, row)
	}

	if headers == nil {
		return nil, errors.ParseError(errors.CodeEmptySheet, path, 0, "", nil).
			WithContext("sheet", sheet)
	}
	return out, nil
}

// serialToTime converts a numeric date cell to wall clock time in the
// configured location
func (l *Loader) serialToTime(value any) (time.Time, bool) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, false
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}

	loc := l.config.Location
	if loc == nil {
		loc = time.Local
	}
	t = t.Round(time.Second)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
}
