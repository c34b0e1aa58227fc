// Package managed tracks which local branches stackline controls and how.
// State lives in git config under branch.<name>.stacklineManaged and is only
// ever changed by explicit user command, never during a sync.
package managed

import (
	"context"
	"fmt"

	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
)

// Store abstracts the key-value store holding branch management state.
// Real runs use git config; tests use an in-memory fake.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Unset(ctx context.Context, key string) error
}

// GitConfigStore is the Store implementation backed by local git config
type GitConfigStore struct{}

func (GitConfigStore) Get(ctx context.Context, key string) (string, error) {
	return git.ConfigGet(ctx, key)
}

func (GitConfigStore) Set(ctx context.Context, key, value string) error {
	return git.ConfigSet(ctx, key, value)
}

func (GitConfigStore) Unset(ctx context.Context, key string) error {
	return git.ConfigUnset(ctx, key)
}

// State is the recorded management decision for a branch
type State int

const (
	// Unclassified means no decision has been recorded yet
	Unclassified State = iota

	// Unmanaged branches are ignored by every hook; pushes pass through
	Unmanaged

	// ManagedPrivate branches sync their stack but the branch itself is
	// never published under its own name
	ManagedPrivate

	// ManagedPublic branches sync their stack and also push the branch
	// under its own name
	ManagedPublic
)

// Config values persisted for each state. "true" is a legacy spelling of
// managedPrivate still accepted on read.
const (
	stateValuePublic        = "managedPublic"
	stateValuePrivate       = "managedPrivate"
	stateValueLegacyPrivate = "true"
	stateValueUnmanaged     = "false"
)

func (s State) String() string {
	switch s {
	case Unmanaged:
		return "unmanaged"
	case ManagedPrivate:
		return "managed (private)"
	case ManagedPublic:
		return "managed (public)"
	default:
		return "unclassified"
	}
}

// IsManaged reports whether the state lets the sync pipeline run
func (s State) IsManaged() bool {
	return s == ManagedPrivate || s == ManagedPublic
}

// configValue returns the string persisted for a state
func (s State) configValue() string {
	switch s {
	case ManagedPublic:
		return stateValuePublic
	case ManagedPrivate:
		return stateValuePrivate
	default:
		return stateValueUnmanaged
	}
}

// StateKey returns the config key holding a branch's management state
func StateKey(branch string) string {
	return "branch." + branch + ".stacklineManaged"
}

// GetState reads the recorded management state for a branch. An unset key
// means no decision has been made and yields Unclassified.
func GetState(ctx context.Context, store Store, branch string) (State, error) {
	value, err := store.Get(ctx, StateKey(branch))
	if err != nil {
		return Unclassified, err
	}

	switch value {
	case "":
		return Unclassified, nil
	case stateValuePublic:
		return ManagedPublic, nil
	case stateValuePrivate, stateValueLegacyPrivate:
		return ManagedPrivate, nil
	case stateValueUnmanaged:
		return Unmanaged, nil
	default:
		return Unclassified, stacklineerrors.NewValidationError(
			fmt.Sprintf("invalid %s value: %q", StateKey(branch), value),
			"Expected 'managedPublic', 'managedPrivate', 'true', or 'false'.",
		)
	}
}

// Check is the gate consulted before the sync pipeline runs. Branches with
// no recorded decision are rejected so a raw push never slips through by
// accident.
func Check(ctx context.Context, store Store, branch string) (State, error) {
	state, err := GetState(ctx, store, branch)
	if err != nil {
		return state, err
	}
	if state == Unclassified {
		return state, fmt.Errorf("branch %q: %w", branch, stacklineerrors.ErrBranchUnclassified)
	}
	return state, nil
}
