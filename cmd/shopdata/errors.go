package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/shopdata/catalog"
	"github.com/arthur-debert/shopdata/storage"
)

// CLIError is an error with the failed operation and hints for the user.
type CLIError struct {
	Operation   string
	Cause       string
	Details     string
	Suggestions []string
	Underlying  error
}

func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		fmt.Fprintf(&msg, "Failed to %s", e.Operation)
	} else {
		msg.WriteString("Operation failed")
	}
	if e.Cause != "" {
		fmt.Fprintf(&msg, ": %s", e.Cause)
	}
	if e.Details != "" {
		fmt.Fprintf(&msg, " (%s)", e.Details)
	}
	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, s := range e.Suggestions {
			fmt.Fprintf(&msg, "\n  %d. %s", i+1, s)
		}
	}
	return msg.String()
}

func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError reports a bad flag or argument value.
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewNotFoundError reports a missing file or record.
func NewNotFoundError(operation, resource, id string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("%s %q not found", resource, id),
		Suggestions: suggestions,
	}
}

// NewConfigError reports an unusable configuration.
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
	}
}

// NewDataError describes a failure of the data directory.
func NewDataError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "data access failed"
	details := ""
	if underlying != nil {
		details = underlying.Error()
		switch {
		case errors.Is(underlying, storage.ErrNotFound):
			cause = "data file not found"
		case errors.Is(underlying, storage.ErrInvalidName):
			cause = "file name outside the data directory"
		case errors.Is(underlying, storage.ErrNotArray):
			cause = "data file is not a list of records"
		case errors.Is(underlying, catalog.ErrNotFound):
			cause = "record not found"
		case strings.Contains(strings.ToLower(details), "permission denied"):
			cause = "insufficient permissions to access the data directory"
		}
	}
	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// WrapError gives err CLI context. CLIErrors keep their own cause.
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}
	return NewDataError(operation, err, suggestions...)
}

var suggest = struct {
	CheckDataDir string
	SeedData     string
	ListFiles    string
	CheckConfig  string
	RunHelp      string
	CheckPerms   string
}{
	CheckDataDir: "Verify --data-dir points to the shop data directory",
	SeedData:     "Run 'shopdata seed' to write the sample dataset",
	ListFiles:    "Run 'shopdata files' to see the available files",
	CheckConfig:  "Check your configuration file or SHOPDATA_* environment variables",
	RunHelp:      "Run the command with --help for usage information",
	CheckPerms:   "Check file permissions and directory access",
}
