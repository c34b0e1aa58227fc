package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// SyncItem is one pull request being reconciled for one stack commit
type SyncItem struct {
	ChangeID string
	Title    string
	Action   string // "create" or "update"
	Status   string // "pending", "syncing", "done", "error"
	URL      string
	Error    error
}

// SyncProgressUI defines the interface for sync progress display
type SyncProgressUI interface {
	// Start initializes the UI with the items being synced
	Start(items []SyncItem)
	// UpdateItem updates the status of a specific item
	UpdateItem(idx int, status string, url string, err error)
	// Complete finalizes the UI and shows a summary
	Complete()
}

// NewSyncProgressUI creates the appropriate progress UI based on TTY
// availability. Hook invocations never have a TTY, so they get the plain
// line-by-line reporter.
func NewSyncProgressUI(splog *Splog) SyncProgressUI {
	if IsTTY() {
		return NewTTYSyncProgress(splog)
	}
	return NewSimpleSyncProgress(splog)
}

// IsTTY returns true if we can use a TTY for interactive output
func IsTTY() bool {
	if !((isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))) {
		return false
	}
	// Also try to open /dev/tty to verify it's actually available
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// SimpleSyncProgress prints progress line by line (non-TTY)
type SimpleSyncProgress struct {
	splog     *Splog
	items     []SyncItem
	completed int
	failed    int
}

// NewSimpleSyncProgress creates a new simple progress UI
func NewSimpleSyncProgress(splog *Splog) *SimpleSyncProgress {
	return &SimpleSyncProgress{splog: splog}
}

func (p *SimpleSyncProgress) Start(items []SyncItem) {
	p.items = items
	p.completed = 0
	p.failed = 0
}

func (p *SimpleSyncProgress) UpdateItem(idx int, status string, url string, err error) {
	if idx >= len(p.items) {
		return
	}

	item := p.items[idx]

	switch status {
	case "syncing":
		action := "Creating PR for"
		if item.Action == "update" {
			action = "Updating PR for"
		}
		p.splog.Info("  ⋯ %s %s...", action, item.Title)

	case "done":
		p.completed++
		actionDone := "created"
		if item.Action == "update" {
			actionDone = "updated"
		}
		p.splog.Info("  ✓ %s %s → %s", item.Title, actionDone, url)

	case "skipped":
		p.completed++
		p.splog.Info("  ✓ %s already up to date", item.Title)

	case "error":
		p.failed++
		p.splog.Info("  ✗ %s failed: %v", item.Title, err)
	}

	p.items[idx].Status = status
	p.items[idx].URL = url
	p.items[idx].Error = err
}

func (p *SimpleSyncProgress) Complete() {
	p.splog.Newline()
	if p.failed > 0 {
		p.splog.Info("Completed: %d, Failed: %d", p.completed, p.failed)
	} else if p.completed > 0 {
		p.splog.Info("✓ All %d PRs synced", p.completed)
	}
}

// TTYSyncProgress uses bubbletea for animated progress (TTY)
type TTYSyncProgress struct {
	splog    *Splog
	items    []SyncItem
	program  *tea.Program
	model    *ttyProgressModel
	wasQuiet bool
}

// NewTTYSyncProgress creates a new TTY progress UI
func NewTTYSyncProgress(splog *Splog) *TTYSyncProgress {
	return &TTYSyncProgress{splog: splog}
}

func (p *TTYSyncProgress) Start(items []SyncItem) {
	p.items = make([]SyncItem, len(items))
	copy(p.items, items)

	// Silence the logger while bubbletea owns the terminal, restoring the
	// caller's setting afterwards.
	p.wasQuiet = p.splog.IsQuiet()
	p.splog.SetQuiet(true)
	p.model = newTTYProgressModel(p.items)
	p.program = tea.NewProgram(p.model, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))

	go func() {
		_, _ = p.program.Run()
	}()
}

func (p *TTYSyncProgress) UpdateItem(idx int, status string, url string, err error) {
	if p.program == nil {
		return
	}
	p.program.Send(progressUpdateMsg{
		idx:    idx,
		status: status,
		url:    url,
		err:    err,
	})
}

func (p *TTYSyncProgress) Complete() {
	if p.program == nil {
		return
	}
	p.program.Send(progressCompleteMsg{})
	p.program.Wait()
	p.splog.SetQuiet(p.wasQuiet)
}

// Internal bubbletea model for TTY progress
type ttyProgressModel struct {
	items   []SyncItem
	spinner spinner.Model
	done    bool
	styles  syncStyles
}

type syncStyles struct {
	spinnerStyle lipgloss.Style
	doneStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	titleStyle   lipgloss.Style
	urlStyle     lipgloss.Style
	dimStyle     lipgloss.Style
}

type progressUpdateMsg struct {
	idx    int
	status string
	url    string
	err    error
}

type progressCompleteMsg struct{}

func newTTYProgressModel(items []SyncItem) *ttyProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &ttyProgressModel{
		items:   items,
		spinner: s,
		styles: syncStyles{
			spinnerStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
			doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
			titleStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
			urlStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			dimStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

func (m *ttyProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *ttyProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		if msg.idx < len(m.items) {
			m.items[msg.idx].Status = msg.status
			m.items[msg.idx].URL = msg.url
			m.items[msg.idx].Error = msg.err
		}
		return m, m.spinner.Tick

	case progressCompleteMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *ttyProgressModel) View() string {
	var b strings.Builder

	for i, item := range m.items {
		var icon, status string
		switch item.Status {
		case "syncing":
			icon = m.spinner.View()
			status = m.styles.dimStyle.Render("syncing...")
		case "done":
			icon = m.styles.doneStyle.Render("✓")
			if item.Action == "update" {
				status = "updated"
			} else {
				status = "created"
			}
		case "skipped":
			icon = m.styles.doneStyle.Render("✓")
			status = m.styles.dimStyle.Render("up to date")
		case "error":
			icon = m.styles.errorStyle.Render("✗")
			status = "failed"
		default:
			icon = m.styles.dimStyle.Render("•")
			status = m.styles.dimStyle.Render("pending")
		}

		title := m.styles.titleStyle.Render(item.Title)
		line := fmt.Sprintf("  %s %s %s", icon, title, status)

		if item.Status == "done" && item.URL != "" {
			line += " " + m.styles.urlStyle.Render("→ "+item.URL)
		}
		if item.Status == "error" && item.Error != nil {
			line += " " + m.styles.errorStyle.Render(item.Error.Error())
		}

		b.WriteString(line)
		if i < len(m.items)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")

	if m.done {
		completed := 0
		failed := 0
		for _, item := range m.items {
			switch item.Status {
			case "done", "skipped":
				completed++
			case "error":
				failed++
			}
		}
		b.WriteString("\n")
		if failed > 0 {
			b.WriteString(m.styles.errorStyle.Render(fmt.Sprintf("Completed: %d, Failed: %d", completed, failed)))
		} else {
			b.WriteString(m.styles.doneStyle.Render(fmt.Sprintf("✓ All %d PRs synced", completed)))
		}
		b.WriteString("\n")
	}

	return b.String()
}
