package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// STACKLINE_COLORS defines the color palette cycled through when rendering
// stack entries in status output
var STACKLINE_COLORS = [][]int{
	{76, 203, 241},  // Light blue
	{77, 202, 125},  // Green
	{110, 173, 38},  // Dark green
	{245, 200, 0},   // Yellow
	{248, 144, 72},  // Orange
	{244, 98, 81},   // Red
	{235, 130, 188}, // Pink
	{159, 131, 228}, // Purple
	{80, 132, 243},  // Blue
}

// ColorForPosition returns the RGB triple for a stack position, cycling
// through the palette for deep stacks.
func ColorForPosition(pos int) []int {
	if pos < 0 {
		pos = -pos
	}
	return STACKLINE_COLORS[pos%len(STACKLINE_COLORS)]
}

// ColorStackEntry renders text in the palette color of its stack position
func ColorStackEntry(text string, pos int) string {
	c := ColorForPosition(pos)
	hexColor := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
	return lipgloss.NewStyle().
		Foreground(hexColor).
		Render(text)
}

// ColorBranchName colors a branch name, marking the current branch
func ColorBranchName(branchName string, isCurrent bool) string {
	if isCurrent {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Render(branchName + " (current)")
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Render(branchName)
}

// ColorDim makes text dim/gray
func ColorDim(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(text)
}

// ColorSuccess makes text green
func ColorSuccess(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("2")).
		Render(text)
}

// ColorEmphasis highlights a name inside a log message (yellow)
func ColorEmphasis(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("3")).
		Render(text)
}

// ColorPRNumber colors a PR number (yellow)
func ColorPRNumber(prNumber int) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("3")).
		Render(fmt.Sprintf("PR #%d", prNumber))
}

// ColorPRState colors a pull request state label
func ColorPRState(state string, merged, draft bool) string {
	switch {
	case merged:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Render("(Merged)")
	case state == "closed":
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Render("(Closed)")
	case draft:
		return ColorDim("(Draft)")
	default:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Render("(Open)")
	}
}
