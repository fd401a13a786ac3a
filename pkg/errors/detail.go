package errors

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Detailed renders an error as a multi-line block for terminal output
func Detailed(e *AppError) string {
	if e == nil {
		return ""
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("ERROR [%s/%s]: %s", e.Category, e.Code, e.Message))

	if file, ok := e.Context["file"].(string); ok && file != "" {
		location := filepath.Base(file)
		if row, ok := e.Context["row"].(int); ok && row > 0 {
			location += fmt.Sprintf(":%d", row)
		}
		lines = append(lines, fmt.Sprintf("  -> File: %s", location))
	}

	keys := make([]string, 0, len(e.Context))
	for key := range e.Context {
		if key == "file" || key == "row" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("  -> %s: %v", key, e.Context[key]))
	}

	if e.Cause != nil {
		lines = append(lines, fmt.Sprintf("  -> Cause: %v", e.Cause))
	}
	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  -> Suggestion: %s", e.Suggestion))
	}

	return strings.Join(lines, "\n")
}
