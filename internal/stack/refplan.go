package stack

import (
	"stackline.dev/stackline/internal/git"
)

// MaxPushRefspecs bounds the ref updates sent in one push so the command
// line stays well under platform argument limits.
const MaxPushRefspecs = 80

// Plan is the batch of conditional ref updates publishing one sync. Updates
// are grouped per commit so a change's branch head and version tag always
// travel in the same push.
type Plan struct {
	groups [][]git.RefUpdate
}

// BuildPlan turns allocations into the publish batch. Each changed commit
// contributes its phantom branch head plus a create-only version tag; an
// unchanged commit contributes a branch heal only when its phantom head has
// drifted from the published content. An all-unchanged stack yields an empty
// plan and the remote write path is never touched.
func BuildPlan(allocs []Allocation) *Plan {
	plan := &Plan{}

	for _, alloc := range allocs {
		c := alloc.Commit

		if alloc.Unchanged {
			if alloc.BranchLease != c.SHA {
				plan.add(git.RefUpdate{
					Name:     PhantomBranchRef(c.ID),
					OldValue: alloc.BranchLease,
					NewValue: c.SHA,
				})
			}
			continue
		}

		plan.add(
			git.RefUpdate{
				Name:     PhantomBranchRef(c.ID),
				OldValue: alloc.BranchLease,
				NewValue: c.SHA,
			},
			git.RefUpdate{
				// Empty OldValue makes the tag create-only; versions
				// are never rewritten
				Name:     VersionTagRef(c.ID, alloc.Version),
				NewValue: c.SHA,
			},
		)
	}

	return plan
}

func (p *Plan) add(updates ...git.RefUpdate) {
	p.groups = append(p.groups, updates)
}

// IsEmpty reports whether the plan carries no updates
func (p *Plan) IsEmpty() bool {
	return len(p.groups) == 0
}

// Size returns the total number of ref updates
func (p *Plan) Size() int {
	n := 0
	for _, g := range p.groups {
		n += len(g)
	}
	return n
}

// Updates returns all ref updates in stack order
func (p *Plan) Updates() []git.RefUpdate {
	updates := make([]git.RefUpdate, 0, p.Size())
	for _, g := range p.groups {
		updates = append(updates, g...)
	}
	return updates
}

// Batches splits the plan into pushes of at most MaxPushRefspecs updates.
// Groups are never split, so a lease failure can not leave a commit with a
// published tag but a stale branch head within one batch.
func (p *Plan) Batches() [][]git.RefUpdate {
	var batches [][]git.RefUpdate
	var current []git.RefUpdate

	for _, g := range p.groups {
		if len(current) > 0 && len(current)+len(g) > MaxPushRefspecs {
			batches = append(batches, current)
			current = nil
		}
		current = append(current, g...)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}
