package cli

import "fmt"

// CommandError is returned by a command that has already reported its
// failure on stderr. cmd/taxlots exits with its code and prints nothing more.
type CommandError struct {
	exitCode int
}

// NewCommandError returns a CommandError exiting with exitCode.
func NewCommandError(exitCode int) *CommandError {
	return &CommandError{exitCode: exitCode}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("taxlots: exit status %d", e.exitCode)
}

// ExitCode is the process exit status.
func (e *CommandError) ExitCode() int {
	return e.exitCode
}
