package parsers

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/pkg/errors"
)

func (l *Loader) loadCSV(ctx context.Context, path string) ([]rows.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	text, err := l.decode(data, path)
	if err != nil {
		return nil, err
	}

	delimiter := l.config.Delimiter
	if delimiter == 0 {
		delimiter = sniffDelimiter(text)
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var headers []string
	var out []rows.Row
	line := 0
	for {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidFormat, path, line, "", err)
		}
		if isBlankRecord(record) {
			continue
		}
		if headers == nil {
			headers = cleanHeaders(record)
			continue
		}
		out = append(out, rowFromCells(headers, record))
	}

	if headers == nil {
		return nil, errors.ParseError(errors.CodeEmptySheet, path, 0, "", nil)
	}
	return out, nil
}

// decode returns UTF-8 text, converting from Windows-1252 when allowed
func (l *Loader) decode(data []byte, path string) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	if l.config.Encoding == EncodingWindows1252 {
		return fromWindows1252(data, path)
	}
	if utf8.Valid(data) {
		return data, nil
	}
	if l.config.Encoding == EncodingUTF8 {
		return nil, errors.ParseError(errors.CodeEncodingError, path, 0, "", nil)
	}

	l.logger.WithField("file_path", path).Debug("Input is not UTF-8, decoding as Windows-1252")
	return fromWindows1252(data, path)
}

func fromWindows1252(data []byte, path string) ([]byte, error) {
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder()))
	if err != nil {
		return nil, errors.ParseError(errors.CodeEncodingError, path, 0, "", err)
	}
	return decoded, nil
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the first line
func sniffDelimiter(text []byte) rune {
	first := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}

	best, bestCount := ',', bytes.Count(first, []byte{','})
	for _, candidate := range []rune{';', '\t'} {
		if n := bytes.Count(first, []byte(string(candidate))); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}
