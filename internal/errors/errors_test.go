package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"stackline.dev/stackline/internal/errors"
)

func TestValidationError(t *testing.T) {
	t.Run("matches ErrValidation", func(t *testing.T) {
		err := errors.NewValidationError("commit is missing a trailer", "amend the commit")
		require.True(t, stderrors.Is(err, errors.ErrValidation))
		require.False(t, stderrors.Is(err, errors.ErrConflict))
	})

	t.Run("includes advice when present", func(t *testing.T) {
		err := errors.NewValidationError("commit is missing a trailer", "amend the commit")
		require.Equal(t, "commit is missing a trailer\namend the commit", err.Error())
	})

	t.Run("omits advice when empty", func(t *testing.T) {
		err := errors.NewValidationError("commit is missing a trailer", "")
		require.Equal(t, "commit is missing a trailer", err.Error())
	})
}

func TestConflictError(t *testing.T) {
	t.Run("matches ErrConflict", func(t *testing.T) {
		err := errors.NewConflictError("origin", "")
		require.True(t, stderrors.Is(err, errors.ErrConflict))
		require.False(t, stderrors.Is(err, errors.ErrTransport))
	})

	t.Run("names the remote", func(t *testing.T) {
		err := errors.NewConflictError("origin", "")
		require.Contains(t, err.Error(), "push to origin rejected")
	})

	t.Run("appends trimmed git output", func(t *testing.T) {
		err := errors.NewConflictError("origin", "  ! [rejected] stale info\n")
		require.Contains(t, err.Error(), "! [rejected] stale info")
	})
}

func TestTransportError(t *testing.T) {
	t.Run("matches ErrTransport and unwraps the cause", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := errors.NewTransportError("ls-remote", cause)
		require.True(t, stderrors.Is(err, errors.ErrTransport))
		require.ErrorIs(t, err, cause)
		require.Contains(t, err.Error(), "ls-remote: connection refused")
	})

	t.Run("tolerates a nil cause", func(t *testing.T) {
		err := errors.NewTransportError("ls-remote", nil)
		require.Equal(t, "ls-remote", err.Error())
	})
}

func TestPartialSyncError(t *testing.T) {
	t.Run("matches ErrPartialSync", func(t *testing.T) {
		err := errors.NewPartialSyncError([]string{"gaaa"}, []string{"gbbb"}, []error{stderrors.New("boom")})
		require.True(t, stderrors.Is(err, errors.ErrPartialSync))
	})

	t.Run("counts failures against the total", func(t *testing.T) {
		err := errors.NewPartialSyncError(
			[]string{"gaaa", "gbbb"},
			[]string{"gccc"},
			[]error{stderrors.New("boom")},
		)
		require.Contains(t, err.Error(), "1 of 3 pull request updates failed")
		require.Contains(t, err.Error(), "gccc: boom")
	})
}

func TestGitCommandError(t *testing.T) {
	t.Run("reports command, output and cause", func(t *testing.T) {
		cause := stderrors.New("exit status 128")
		err := errors.NewGitCommandError("git", []string{"push", "origin"}, "out", "fatal: nope", cause)
		require.Contains(t, err.Error(), "git command failed: git")
		require.Contains(t, err.Error(), "stderr: fatal: nope")
		require.Contains(t, err.Error(), "stdout: out")
		require.ErrorIs(t, err, cause)
	})

	t.Run("sentinels stay distinct", func(t *testing.T) {
		err := errors.NewGitCommandError("git", nil, "", "", nil)
		require.False(t, stderrors.Is(err, errors.ErrValidation))
		require.False(t, stderrors.Is(err, errors.ErrConflict))
	})
}
