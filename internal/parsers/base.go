// Package parsers reads logistics sheets (CSV, XLSX or JSON exports) into
// loosely typed rows keyed by their header names.
//
// Loaders are lenient: blank cells are omitted, blank lines are skipped and
// no column is required. Only an unreadable or header-less file is an error.
package parsers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/pkg/errors"
	"logistics-sla-reconciler/pkg/logger"
)

// Loader reads sheet files into rows
type Loader struct {
	config *LoaderConfig
	logger logger.Logger
}

// NewLoader creates a new Loader with the given configuration
func NewLoader(config *LoaderConfig) (*Loader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "loader", config.Encoding, err)
	}

	log := logger.GetGlobalLogger().WithComponent("loader")
	log.WithFields(logger.Fields{
		"delimiter": string(config.Delimiter),
		"encoding":  config.Encoding,
		"sheet":     config.Sheet,
	}).Debug("Created loader")

	return &Loader{config: config, logger: log}, nil
}

// LoadRows reads path into rows, choosing the format from the extension
func (l *Loader) LoadRows(ctx context.Context, path string) ([]rows.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := l.logger.WithField("file_path", path)

	info, err := os.Stat(path)
	if err != nil {
		log.WithError(err).Error("Failed to open input file")
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	if info.IsDir() {
		return nil, errors.FileError(errors.CodeUnsupportedFormat, path, nil).
			WithSuggestion("pass a file, not a directory")
	}
	if limit := int64(l.config.MaxFileSizeMB) << 20; limit > 0 && info.Size() > limit {
		return nil, errors.FileError(errors.CodeUnsupportedFormat, path, nil).
			WithContext("size_bytes", info.Size()).
			WithSuggestion("split the file or raise max-file-size-mb")
	}

	var out []rows.Row
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		out, err = l.loadCSV(ctx, path)
	case ".xlsx", ".xlsm":
		out, err = l.loadXLSX(ctx, path)
	case ".json":
		out, err = l.loadJSON(path)
	default:
		return nil, errors.FileError(errors.CodeUnsupportedFormat, path, nil)
	}
	if err != nil {
		log.WithError(err).Error("Failed to read rows")
		return nil, err
	}

	log.WithField("rows", len(out)).Debug("Loaded rows")
	return out, nil
}

// rowFromCells pairs headers with cells, leaving blank cells and unnamed
// columns out. The first of two equally named columns wins.
func rowFromCells(headers []string, cells []string) rows.Row {
	row := make(rows.Row, len(headers))
	for i, header := range headers {
		if header == "" || i >= len(cells) {
			continue
		}
		if _, exists := row[header]; exists {
			continue
		}
		value := strings.TrimSpace(cells[i])
		if value == "" {
			continue
		}
		row[header] = value
	}
	return row
}

func cleanHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	for i, cell := range cells {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
	}
	return headers
}

func isBlankRecord(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
