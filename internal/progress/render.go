package progress

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tickMsg drives the refresh cadence; refreshInterval is chosen within the
// spec's 10-20Hz band.
type tickMsg time.Time

const refreshInterval = 66 * time.Millisecond // ~15Hz, within [10Hz, 20Hz]

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// tableModel is the tea.Model backing the TTY renderer. It polls a
// *TableSink rather than receiving pushed events, since Events arrive from
// executor workers outside bubbletea's own goroutine.
type tableModel struct {
	sink      *TableSink
	table     table.Model
	detached  bool
	detachMsg string
}

func newTableModel(sink *TableSink) tableModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Tool", Width: 24},
			{Title: "Status", Width: 12},
			{Title: "Elapsed", Width: 10},
			{Title: "Errors", Width: 8},
			{Title: "Warnings", Width: 8},
		}),
		table.WithHeight(15),
	)
	return tableModel{sink: sink, table: t}
}

func (m tableModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m tableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Ctrl-C does not kill the child; it detaches the renderer only
		// (spec.md §4.9).
		if msg.String() == "ctrl+c" {
			m.detached = true
			m.detachMsg = "now running in background"
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(msg.Height - 4)
		return m, nil
	case tickMsg:
		snap := m.sink.Snapshot()
		m.table.SetRows(rowsFromSnapshot(snap))
		if snap.Finished {
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

func rowsFromSnapshot(snap Snapshot) []table.Row {
	sort.Slice(snap.Rows, func(i, j int) bool { return snap.Rows[i].ToolName < snap.Rows[j].ToolName })
	rows := make([]table.Row, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		rows = append(rows, table.Row{
			r.ToolName,
			string(r.Status),
			r.Elapsed.Round(100 * time.Millisecond).String(),
			fmt.Sprintf("%d", r.Errors),
			fmt.Sprintf("%d", r.Warnings),
		})
	}
	return rows
}

func (m tableModel) View() string {
	if m.detached {
		return pendingStyle.Render(m.detachMsg) + "\n"
	}
	snap := m.sink.Snapshot()
	header := headerStyle.Render(fmt.Sprintf("validating — %d/%d", snap.Complete, snap.Total))
	return header + "\n\n" + m.table.View() + "\n"
}

// RunTUI blocks running the TTY renderer until the run finishes or the user
// detaches with Ctrl-C. It is the caller's responsibility to keep feeding
// sink from executor callbacks concurrently.
func RunTUI(sink *TableSink) error {
	p := tea.NewProgram(newTableModel(sink))
	_, err := p.Run()
	return err
}
