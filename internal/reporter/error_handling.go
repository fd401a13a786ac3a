package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	stderrors "errors"

	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/reconciler"
	"logistics-sla-reconciler/pkg/errors"
	"logistics-sla-reconciler/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and fallbacks
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"output-format",
			config.Format,
			err,
		).WithSuggestion("use one of table, json, yaml, csv")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders the report in memory before writing it, so a
// failed render never leaves partial output behind
func (srg *SafeReportGenerator) GenerateReportSafely(result *reconciler.Result, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if err := srg.validateInputs(result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	data, err := srg.render(result)
	if err != nil {
		srg.logger.WithError(err).Error("Report generation failed")
		return srg.wrapGenerationError(err)
	}

	if _, err := writer.Write(data); err != nil {
		srg.logger.WithError(err).Error("Failed to write report")
		return srg.wrapGenerationError(err)
	}

	srg.logger.WithField("bytes", len(data)).Debug("Report generation completed")
	return nil
}

// WriteReportFile writes the report to path. When path cannot be written a
// backup in the temp directory is tried before giving up.
func (srg *SafeReportGenerator) WriteReportFile(result *reconciler.Result, path string) error {
	if err := srg.validateInputs(result, io.Discard); err != nil {
		return err
	}

	data, err := srg.render(result)
	if err != nil {
		return srg.wrapGenerationError(err)
	}

	err = writeFile(path, data)
	if err == nil {
		srg.logger.WithField("output_file", path).Info("Report written")
		return nil
	}
	if !isFileError(err) {
		return srg.wrapGenerationError(err)
	}

	backupPath := generateBackupPath(path)
	srg.logger.WithFields(logger.Fields{
		"original_file": path,
		"backup_file":   backupPath,
	}).WithError(err).Warn("Attempting output fallback")

	if backupErr := writeFile(backupPath, data); backupErr != nil {
		return errors.FileError(errors.CodeFilePermission, path, err).
			WithContext("backup_file", backupPath).
			WithContext("backup_error", backupErr.Error())
	}

	fmt.Fprintf(os.Stderr, "Warning: could not write to %s, report saved to %s\n", path, backupPath)
	return nil
}

// AppendSnapshot adds a stats snapshot to the JSON history file at path,
// creating it when missing
func (srg *SafeReportGenerator) AppendSnapshot(path string, snapshot models.Snapshot) error {
	history, err := ReadSnapshots(path)
	if err != nil {
		return err
	}
	history = append(history, snapshot)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "encode snapshots", err)
	}
	if err := writeFile(path, append(data, '\n')); err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}

	srg.logger.WithFields(logger.Fields{
		"stats_file":  path,
		"snapshot_id": snapshot.ID,
		"snapshots":   len(history),
	}).Info("Stats snapshot saved")
	return nil
}

// ReadSnapshots loads a snapshot history file. A missing file is an empty
// history.
func ReadSnapshots(path string) ([]models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var history []models.Snapshot
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", err).
			WithSuggestion("the stats file must hold a JSON array written by a previous run")
	}
	return history, nil
}

// validateInputs validates the inputs for report generation
func (srg *SafeReportGenerator) validateInputs(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"result",
			nil,
			nil,
		).WithSuggestion("provide a reconciliation result")
	}

	if writer == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"writer",
			nil,
			nil,
		).WithSuggestion("provide an output writer")
	}

	return nil
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	return errors.InternalError(
		errors.CodeProcessingError,
		"report generation",
		err,
	).WithSuggestion("check the output destination and report format settings")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// isFileError checks if the error is file-related
func isFileError(err error) bool {
	return os.IsPermission(err) ||
		os.IsNotExist(err) ||
		os.IsExist(err) ||
		stderrors.Is(err, syscall.ENOSPC) ||
		stderrors.Is(err, syscall.EISDIR) ||
		stderrors.Is(err, syscall.ENOTDIR)
}

// generateBackupPath creates a backup file path in the temp directory
func generateBackupPath(originalPath string) string {
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]

	return filepath.Join(os.TempDir(), fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
