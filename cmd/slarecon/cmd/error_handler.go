package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"logistics-sla-reconciler/pkg/errors"
	"logistics-sla-reconciler/pkg/logger"
)

// Exit codes outside the AppError categories
const (
	exitGeneric     = 1
	exitFile        = 2
	exitInterrupted = 130
)

// ErrorHandler prints command errors for humans and picks the exit code
type ErrorHandler struct {
	out     io.Writer
	logger  logger.Logger
	verbose bool
}

// NewErrorHandler creates an ErrorHandler writing to out
func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	if out == nil {
		out = os.Stderr
	}
	return &ErrorHandler{
		out:     out,
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: verbose,
	}
}

// HandleError reports err and returns the exit code; nil yields 0
func (h *ErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if stderrors.Is(err, context.Canceled) {
		fmt.Fprintln(h.out, "Interrupted.")
		return exitInterrupted
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return h.handleAppError(appErr)
	}
	return h.handleGenericError(err)
}

func (h *ErrorHandler) handleAppError(err *errors.AppError) int {
	fmt.Fprintln(h.out, errors.Detailed(err))
	if help := categoryHelp(err.Category); help != "" {
		fmt.Fprintf(h.out, "\n%s\n", help)
	}
	if h.verbose && err.StackTrace != nil {
		fmt.Fprintf(h.out, "\nStack trace:%+v\n", err.StackTrace)
	}
	return err.ExitCode()
}

func (h *ErrorHandler) handleGenericError(err error) int {
	switch {
	case os.IsNotExist(err):
		fmt.Fprintf(h.out, "Error: file not found: %v\n", err)
		fmt.Fprintln(h.out, "Suggestion: check that the path is correct and the file exists")
		return exitFile
	case os.IsPermission(err):
		fmt.Fprintf(h.out, "Error: permission denied: %v\n", err)
		fmt.Fprintln(h.out, "Suggestion: check file permissions")
		return exitFile
	case stderrors.Is(err, syscall.ENOSPC):
		fmt.Fprintf(h.out, "Error: insufficient disk space: %v\n", err)
		fmt.Fprintln(h.out, "Suggestion: free up disk space and try again")
		return exitFile
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	if isUsageError(err) {
		fmt.Fprintln(h.out, "Run 'slarecon --help' for usage.")
	}
	return exitGeneric
}

// isUsageError recognises the flag and argument errors cobra returns
func isUsageError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"unknown flag", "unknown shorthand flag", "unknown command", "flag needs an argument", "invalid argument", "accepts"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func categoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
  - check that the file exists and is readable
  - inputs must be .xlsx, .csv or .json`
	case errors.CategoryParse:
		return `Parse error help:
  - the first non-empty row must hold the column headers
  - CSV files may use ',' or ';' and UTF-8 or Windows-1252 text`
	case errors.CategoryValidation:
		return `Validation error help:
  - --internal is required; --carrier and --sla are optional
  - --now takes RFC3339 (2024-01-09T12:00:00-03:00) or YYYY-MM-DD`
	case errors.CategoryConfiguration:
		return `Configuration error help:
  - check command-line flags, SLARECON_* variables and the --config file
  - run 'slarecon <command> --help' to see the accepted values`
	case errors.CategoryNetwork:
		return `Network error help:
  - check that --addr is free and well formed, for example :8080`
	}
	return ""
}
