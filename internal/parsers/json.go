package parsers

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/pkg/errors"
)

func (l *Loader) loadJSON(path string) ([]rows.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	out, err := DecodeJSONRows(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", err).
			WithSuggestion("the file must hold a JSON array of objects")
	}
	return out, nil
}

// DecodeJSONRows reads a JSON array of objects. Numbers keep their textual
// form so long identifiers are not rounded. Null entries are skipped.
func DecodeJSONRows(r io.Reader) ([]rows.Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	out := make([]rows.Row, 0, len(raw))
	for _, obj := range raw {
		if obj == nil {
			continue
		}
		out = append(out, rows.Row(obj))
	}
	return out, nil
}
