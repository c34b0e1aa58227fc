package output

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func init() {
	// Force color output for all tests in this file so ANSI escape codes are
	// generated regardless of where the tests run.
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestColorForPosition(t *testing.T) {
	t.Parallel()

	require.Equal(t, STACKLINE_COLORS[0], ColorForPosition(0))
	require.Equal(t, STACKLINE_COLORS[1], ColorForPosition(1))

	// Deep stacks cycle through the palette.
	require.Equal(t, STACKLINE_COLORS[0], ColorForPosition(len(STACKLINE_COLORS)))
	require.Equal(t, STACKLINE_COLORS[2], ColorForPosition(len(STACKLINE_COLORS)+2))

	// Negative positions never panic.
	require.Equal(t, STACKLINE_COLORS[1], ColorForPosition(-1))
}

func TestColorStackEntry(t *testing.T) {
	t.Parallel()

	entry := ColorStackEntry("abc1234 Add parser", 0)
	require.Contains(t, entry, "abc1234 Add parser")
	require.Contains(t, entry, "38;2;76;203;241", "position 0 renders in the first palette color")

	// Cycled positions render identically.
	require.Equal(t, entry, ColorStackEntry("abc1234 Add parser", len(STACKLINE_COLORS)))
	require.NotEqual(t, entry, ColorStackEntry("abc1234 Add parser", 1))
}

func TestColorBranchName(t *testing.T) {
	t.Parallel()

	require.Contains(t, ColorBranchName("feature", true), "feature (current)")
	plain := ColorBranchName("feature", false)
	require.Contains(t, plain, "feature")
	require.NotContains(t, plain, "(current)")
}

func TestColorPRState(t *testing.T) {
	t.Parallel()

	require.Contains(t, ColorPRState("open", false, false), "Open")
	require.Contains(t, ColorPRState("open", false, true), "Draft")
	require.Contains(t, ColorPRState("closed", false, false), "Closed")

	// Merged wins over everything else.
	require.Contains(t, ColorPRState("closed", true, false), "Merged")
	require.Contains(t, ColorPRState("open", true, true), "Merged")
}

func TestSimpleHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	quiet := false
	h := &simpleHandler{writer: &buf, debugMode: false, quiet: &quiet}

	require.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	require.False(t, h.Enabled(context.Background(), slog.LevelDebug), "debug is gated behind DEBUG")

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "publishing stack", 0)
	require.NoError(t, h.Handle(context.Background(), rec))
	require.Equal(t, "publishing stack\n", buf.String())

	quiet = true
	require.NoError(t, h.Handle(context.Background(), rec))
	require.Equal(t, "publishing stack\n", buf.String(), "quiet mode suppresses console output")
}

func TestSplogLogFile(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "logs", "stackline.log")

	splog, err := NewSplogWithLogFile(logPath)
	require.NoError(t, err)
	splog.SetQuiet(true)

	splog.Debug("probing the remote for %d refs", 3)
	splog.Info("sync complete")
	require.NoError(t, splog.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "probing the remote for 3 refs", "the file gets debug records even without DEBUG")
	require.Contains(t, string(data), "sync complete")
	require.Contains(t, string(data), "level=DEBUG")
}

func TestSimpleSyncProgress(t *testing.T) {
	t.Parallel()

	splog := NewSplog()
	splog.SetQuiet(true)

	progress := NewSimpleSyncProgress(splog)
	progress.Start([]SyncItem{
		{ChangeID: "ga", Title: "Add parser", Action: "create", Status: "pending"},
		{ChangeID: "gb", Title: "Add lexer", Action: "update", Status: "pending"},
	})

	progress.UpdateItem(0, "done", "https://github.com/octocat/widgets/pull/1", nil)
	progress.UpdateItem(1, "error", "", errors.New("boom"))
	progress.Complete()

	require.Equal(t, 1, progress.completed)
	require.Equal(t, 1, progress.failed)
	require.Equal(t, "done", progress.items[0].Status)
	require.Equal(t, "https://github.com/octocat/widgets/pull/1", progress.items[0].URL)
	require.EqualError(t, progress.items[1].Error, "boom")

	// Out-of-range updates are ignored.
	progress.UpdateItem(5, "done", "", nil)
	require.Equal(t, 1, progress.completed)
}

func TestTTYProgressModel(t *testing.T) {
	t.Parallel()

	model := newTTYProgressModel([]SyncItem{
		{ChangeID: "ga", Title: "Add parser", Action: "create", Status: "pending"},
		{ChangeID: "gb", Title: "Add lexer", Action: "update", Status: "pending"},
	})

	updated, _ := model.Update(progressUpdateMsg{idx: 0, status: "done", url: "https://example.test/pull/1"})
	model = updated.(*ttyProgressModel)
	require.Equal(t, "done", model.items[0].Status)

	view := model.View()
	require.Contains(t, view, "Add parser")
	require.Contains(t, view, "created")
	require.Contains(t, view, "pending")

	updated, cmd := model.Update(progressCompleteMsg{})
	model = updated.(*ttyProgressModel)
	require.True(t, model.done)
	require.NotNil(t, cmd, "completion quits the program")

	require.Contains(t, model.View(), "All 1 PRs synced")
}
