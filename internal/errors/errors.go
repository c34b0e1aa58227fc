// Package errors provides sentinel errors and custom error types for the stackline application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrNotOnBranch indicates that HEAD is not on a branch
	ErrNotOnBranch = errors.New("not on a branch")

	// ErrBranchUnclassified indicates that a branch has never been marked
	// managed or unmanaged
	ErrBranchUnclassified = errors.New("branch not classified")

	// ErrValidation indicates that the local stack is not publishable as-is
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates that a ref update lost an optimistic-lock race
	ErrConflict = errors.New("remote ref conflict")

	// ErrTransport indicates a network, auth or timeout failure talking to the remote
	ErrTransport = errors.New("transport failure")

	// ErrPartialSync indicates that some pull request updates failed after
	// the refs were already published
	ErrPartialSync = errors.New("partial pull request sync")
)

// ValidationError represents a problem with the local stack that must be
// fixed before anything is published. It is always raised before any remote
// write, so rerunning after the fix is safe.
type ValidationError struct {
	Reason string
	Advice string
}

func (e *ValidationError) Error() string {
	if e.Advice != "" {
		return fmt.Sprintf("%s\n%s", e.Reason, e.Advice)
	}
	return e.Reason
}

// Is returns true if the target error is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError
func NewValidationError(reason, advice string) *ValidationError {
	return &ValidationError{Reason: reason, Advice: advice}
}

// ConflictError represents an atomic push rejected because at least one ref
// no longer matched its lease. The batch was applied all-or-nothing, so no
// ref changed. A rerun re-reads leases and re-allocates versions.
type ConflictError struct {
	Remote string
	Output string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("push to %s rejected: a phantom branch or version tag changed since it was read", e.Remote)
	if e.Output != "" {
		msg += "\n" + strings.TrimSpace(e.Output)
	}
	return msg
}

// Is returns true if the target error is ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError creates a new ConflictError
func NewConflictError(remote, output string) *ConflictError {
	return &ConflictError{Remote: remote, Output: output}
}

// TransportError represents a network, auth or timeout failure
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Is returns true if the target error is ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// PartialSyncError reports pull request updates that failed after the atomic
// push already landed. The published refs stay valid; the next run converges
// the remaining pull requests.
type PartialSyncError struct {
	Succeeded []string
	Failed    []string
	Causes    []error
}

func (e *PartialSyncError) Error() string {
	msg := fmt.Sprintf("%d of %d pull request updates failed", len(e.Failed), len(e.Failed)+len(e.Succeeded))
	for i, id := range e.Failed {
		msg += fmt.Sprintf("\n  %s: %v", id, e.Causes[i])
	}
	return msg
}

// Is returns true if the target error is ErrPartialSync
func (e *PartialSyncError) Is(target error) bool {
	return target == ErrPartialSync
}

// NewPartialSyncError creates a new PartialSyncError
func NewPartialSyncError(succeeded, failed []string, causes []error) *PartialSyncError {
	return &PartialSyncError{Succeeded: succeeded, Failed: failed, Causes: causes}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
