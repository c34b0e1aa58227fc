package managed

import (
	"context"
)

// BranchConfig is the git config triple stackline maintains alongside the
// management state. An empty field means the key is unset.
type BranchConfig struct {
	PushRemote string
	Remote     string
	Merge      string
}

// ExpectedConfig returns the config triple a branch in the given state
// should carry. Private stacks push to the local loopback remote "." so a
// plain `git push` never publishes the branch name itself.
func ExpectedConfig(state State, branch, defaultRemote string) BranchConfig {
	switch state {
	case ManagedPrivate:
		return BranchConfig{
			PushRemote: ".",
			Remote:     ".",
			Merge:      "refs/heads/" + branch,
		}
	case ManagedPublic:
		return BranchConfig{
			PushRemote: defaultRemote,
			Remote:     ".",
			Merge:      "refs/heads/" + branch,
		}
	default:
		return BranchConfig{}
	}
}

// ReadBranchConfig reads the branch's live config triple from the store
func ReadBranchConfig(ctx context.Context, store Store, branch string) (BranchConfig, error) {
	key := func(suffix string) string { return "branch." + branch + "." + suffix }

	pushRemote, err := store.Get(ctx, key("pushRemote"))
	if err != nil {
		return BranchConfig{}, err
	}
	remote, err := store.Get(ctx, key("remote"))
	if err != nil {
		return BranchConfig{}, err
	}
	merge, err := store.Get(ctx, key("merge"))
	if err != nil {
		return BranchConfig{}, err
	}

	return BranchConfig{PushRemote: pushRemote, Remote: remote, Merge: merge}, nil
}

// FieldDrift records one config key that no longer matches the value its
// recorded state implies
type FieldDrift struct {
	Key      string
	Current  string
	Expected string
}

// DetectDrift compares the branch's live config triple against what its
// recorded state implies and returns the mismatched keys.
func DetectDrift(ctx context.Context, store Store, branch, defaultRemote string) (State, []FieldDrift, error) {
	state, err := GetState(ctx, store, branch)
	if err != nil {
		return state, nil, err
	}

	expected := ExpectedConfig(state, branch, defaultRemote)
	current, err := ReadBranchConfig(ctx, store, branch)
	if err != nil {
		return state, nil, err
	}

	var drifts []FieldDrift
	compare := func(key, cur, exp string) {
		if cur != exp {
			drifts = append(drifts, FieldDrift{Key: key, Current: cur, Expected: exp})
		}
	}
	compare("pushRemote", current.PushRemote, expected.PushRemote)
	compare("remote", current.Remote, expected.Remote)
	compare("merge", current.Merge, expected.Merge)

	return state, drifts, nil
}

// SetState records newState for the branch and rewrites the config triple to
// match. When the live config has drifted from the recorded state and force
// is false, nothing is written and the drift list is returned so the caller
// can warn the user.
func SetState(ctx context.Context, store Store, branch string, newState State, defaultRemote string, force bool) ([]FieldDrift, error) {
	oldState, drifts, err := DetectDrift(ctx, store, branch, defaultRemote)
	if err != nil {
		return nil, err
	}
	if len(drifts) > 0 && !force {
		return drifts, nil
	}

	if err := store.Set(ctx, StateKey(branch), newState.configValue()); err != nil {
		return nil, err
	}

	// Only clear the triple when leaving a managed state. A branch that was
	// never managed keeps whatever upstream the user configured.
	if !newState.IsManaged() && !oldState.IsManaged() {
		return nil, nil
	}

	key := func(suffix string) string { return "branch." + branch + "." + suffix }
	apply := func(k, v string) error {
		if v == "" {
			return store.Unset(ctx, k)
		}
		return store.Set(ctx, k, v)
	}

	config := ExpectedConfig(newState, branch, defaultRemote)
	if err := apply(key("pushRemote"), config.PushRemote); err != nil {
		return nil, err
	}
	if err := apply(key("remote"), config.Remote); err != nil {
		return nil, err
	}
	if err := apply(key("merge"), config.Merge); err != nil {
		return nil, err
	}

	return nil, nil
}
