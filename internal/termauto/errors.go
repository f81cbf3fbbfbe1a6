package termauto

import (
	"errors"
	"fmt"
)

// ErrTimedOut means the deadline elapsed before the probe produced any
// output. A capture that was merely incomplete is returned as a success.
var ErrTimedOut = errors.New("timed out before the program produced output")

// BinaryNotFoundError means the target program could not be resolved to an
// executable file. Retrying without fixing the installation will not help.
type BinaryNotFoundError struct {
	Name string
}

func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: install it or make sure it is on PATH", e.Name)
}

// LaunchFailedError means PTY allocation, process creation, or a terminal
// write failed. The invocation cannot be salvaged.
type LaunchFailedError struct {
	Reason string
	Err    error
}

func (e *LaunchFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("launch failed: %s: %v", e.Reason, e.Err)
	}
	return "launch failed: " + e.Reason
}

func (e *LaunchFailedError) Unwrap() error {
	return e.Err
}
