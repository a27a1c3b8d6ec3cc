package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes. Scripts branch on these, so commands pick them deliberately
// rather than letting every failure collapse into 1.
const (
	ExitSuccess      = 0 // command did what was asked
	ExitFailure      = 1 // operation failed (game not installed, launch not confirmed, etc.)
	ExitCommandError = 2 // request never made sense (bad flags, unreadable config, missing paths)
)

// ExitError carries the exit code a failure should terminate with. Command
// implementations return one instead of calling os.Exit, which keeps them
// testable; main translates the code at the very end.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError builds an ExitError with no underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code and context to an underlying error.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps an error to its exit code. Errors that never got a code
// assigned count as operation failures.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope every command emits with --format json.
type CLIResponse struct {
	Status string `json:"status"` // "ok"
	Data   any    `json:"data"`   // command payload
}

// writeJSON wraps data in the response envelope and writes it to w.
func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{Status: "ok", Data: data})
}
