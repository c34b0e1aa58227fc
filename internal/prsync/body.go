// Package prsync reconciles the remote pull request set with the local
// commit stack: one pull request per commit, bases chained bottom to top,
// bodies carrying stack navigation and the cascade agent's metadata.
package prsync

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"stackline.dev/stackline/internal/changeid"
	"stackline.dev/stackline/internal/stack"
)

const (
	// generatedWarning heads every body so nobody edits generated text by
	// accident
	generatedWarning = "<!-- WARNING: This PR description is automatically generated by stackline. Any manual edits will be overwritten on the next push. -->"

	// metaWarning guards the machine-readable block the cascade agent reads
	metaWarning = "<!-- WARNING: stackline relies on the following metadata to work properly. DO NOT EDIT OR REMOVE. -->"
)

// metaBlockPattern extracts the metadata line from an existing body
var metaBlockPattern = regexp.MustCompile(`<!-- stackline-meta: (\{.*\}) -->`)

// MetaBlock is the hidden machine-readable block carried in every PR body.
// The cascade agent uses it to find the next PR in the stack after a merge.
// Parent is empty for the bottom PR, Child for the top.
type MetaBlock struct {
	ID     changeid.ID
	Parent changeid.ID
	Child  changeid.ID
}

// Render produces the metadata comment. Field order and null semantics are
// fixed; consumers parse this line, not the rest of the body.
func (m MetaBlock) Render() string {
	parent := "null"
	if m.Parent != "" {
		parent = fmt.Sprintf("%q", m.Parent)
	}
	child := "null"
	if m.Child != "" {
		child = fmt.Sprintf("%q", m.Child)
	}
	return fmt.Sprintf(`<!-- stackline-meta: {"id": %q, "parent": %s, "child": %s} -->`, m.ID, parent, child)
}

// ParseMetaBlock extracts the metadata block from a PR body
func ParseMetaBlock(body string) (MetaBlock, bool) {
	m := metaBlockPattern.FindStringSubmatch(body)
	if m == nil {
		return MetaBlock{}, false
	}

	var raw struct {
		ID     string  `json:"id"`
		Parent *string `json:"parent"`
		Child  *string `json:"child"`
	}
	if err := json.Unmarshal([]byte(m[1]), &raw); err != nil {
		return MetaBlock{}, false
	}

	block := MetaBlock{ID: changeid.ID(raw.ID)}
	if raw.Parent != nil {
		block.Parent = changeid.ID(*raw.Parent)
	}
	if raw.Child != nil {
		block.Child = changeid.ID(*raw.Child)
	}
	return block, true
}

// BodyInput carries everything body rendering needs for one PR
type BodyInput struct {
	Commit *stack.Commit

	// Version is the latest published version of the commit's content
	Version int

	// BaseBranch is the PR's base, used in history compare links
	BaseBranch string

	// RepoURL is the repository's web URL. Empty disables compare links.
	RepoURL string

	// SourceBranch names the local branch the stack lives on. Empty for
	// private stacks, where the branch name is nobody's business.
	SourceBranch string

	// Navigation is the prerendered sibling list for this PR
	Navigation string

	Meta MetaBlock
}

// RenderBody assembles the full PR description. The metadata block is always
// the last line.
func RenderBody(in BodyInput) string {
	sections := []string{generatedWarning}

	if body := in.Commit.Body(); body != "" {
		sections = append(sections, body)
	}

	sections = append(sections, "---")

	trailer := in.Navigation
	if in.SourceBranch != "" {
		trailer = fmt.Sprintf("This PR is on branch [%s](../tree/%s).\n\n%s", in.SourceBranch, in.SourceBranch, trailer)
	}
	if trailer != "" {
		sections = append(sections, trailer)
	}

	if history := renderHistory(in); history != "" {
		sections = append(sections, history)
	}

	sections = append(sections, metaWarning+"\n"+in.Meta.Render())

	return strings.Join(sections, "\n\n")
}

// renderNavigation lists every PR of the stack, top of stack first. The
// host renders "#N" references as links; the marker flags the PR the body
// belongs to.
func renderNavigation(numbers []int, current int) string {
	var b strings.Builder
	for i := len(numbers) - 1; i >= 0; i-- {
		if numbers[i] == 0 {
			continue
		}
		fmt.Fprintf(&b, "- #%d", numbers[i])
		if i == current {
			b.WriteString(" 👈")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderHistory produces the latest-update line and the collapsed patch
// history table. Nothing is rendered for v1 or when no repo URL is known.
func renderHistory(in BodyInput) string {
	if in.Version < 2 || in.RepoURL == "" {
		return ""
	}

	id := in.Commit.ID
	compare := func(from, to string) string {
		return fmt.Sprintf("%s/compare/%s..%s", in.RepoURL, from, to)
	}
	tagRef := func(v int) string {
		return fmt.Sprintf("stackline/%s/v%d", id, v)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Latest update:** v%d — [Compare vs v%d](%s)\n\n",
		in.Version, in.Version-1, compare(tagRef(in.Version-1), tagRef(in.Version)))

	b.WriteString("<details>\n<summary><strong>📚 Full patch history</strong></summary>\n\n")
	b.WriteString("| Version | vs Base | vs Previous |\n")
	b.WriteString("| :--- | :--- | :--- |\n")
	for v := in.Version; v >= 1; v-- {
		fmt.Fprintf(&b, "| v%d | [vs %s](%s) |", v, in.BaseBranch, compare(in.BaseBranch, tagRef(v)))
		if v > 1 {
			fmt.Fprintf(&b, " [vs v%d](%s) |", v-1, compare(tagRef(v-1), tagRef(v)))
		} else {
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n</details>")

	return b.String()
}
