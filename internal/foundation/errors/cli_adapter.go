package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Exit codes of the daytrack binary. Categories without an entry exit with 1.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryTimezone:   2,
	CategoryNotFound:   4,
	CategoryConfig:     7,
	CategoryStore:      8,
	CategoryEventStore: 8,
	CategoryNotify:     8,
	CategoryInternal:   10,
	CategoryDaemon:     12,
	CategoryRuntime:    12,
}

// userFacing categories print their message even without -v.
var userFacing = map[ErrorCategory]bool{
	CategoryValidation: true,
	CategoryTimezone:   true,
	CategoryNotFound:   true,
	CategoryConfig:     true,
}

// CLIErrorAdapter prints command errors and picks the process exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates an adapter writing to stderr. A nil logger
// uses slog.Default.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor returns 0 for nil, the category's code for classified
// errors and 1 otherwise.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	classified, ok := AsClassified(err)
	if !ok {
		return 1
	}
	if code, ok := exitCodes[classified.Category()]; ok {
		return code
	}
	return 1
}

// FormatError renders err for the terminal. Without -v only input errors
// show their message.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	switch {
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return "Error: " + classified.Error()
	case userFacing[classified.Category()]:
		return "Error: " + classified.Message()
	default:
		return "Internal error occurred (use -v for details)"
	}
}

// HandleError reports err and exits with its code. It returns for nil.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	a.Report(err)
	a.exit(a.ExitCodeFor(err))
}

// Report logs err when verbose or fatal, then prints it.
func (a *CLIErrorAdapter) Report(err error) {
	if err == nil {
		return
	}
	classified, ok := AsClassified(err)
	switch {
	case !ok:
		a.logger.Error("Unclassified error", "error", err)
	case a.verbose || classified.Severity() == SeverityFatal:
		a.logger.LogAttrs(context.Background(), levelFor(classified.Severity()), classified.Message(), classified.LogAttrs()...)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
}

func levelFor(severity ErrorSeverity) slog.Level {
	if severity == SeverityWarning {
		return slog.LevelWarn
	}
	return slog.LevelError
}
