package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/RayforceDB/raylens/bridge"
	"github.com/RayforceDB/raylens/history"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive query shell",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runRepl()
		},
	}
}

func runRepl() error {
	b, err := openBridge(cfg)
	if err != nil {
		return err
	}
	defer b.Stop()

	store := openHistory(cfg)
	if store != nil {
		defer store.Close()
	}

	p := tea.NewProgram(newReplModel(b, store), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

type replState int

const (
	stateInput replState = iota
	stateResult
)

type replModel struct {
	bridge *bridge.Bridge
	store  *history.Store

	input   textinput.Model
	state   replState
	err     error
	elapsed time.Duration

	// Result being viewed. The engine-side value stays behind meta.Handle
	// until the user leaves the result view.
	meta  bridge.Meta
	rows  []bridge.Row
	start uint64

	// Previously executed queries, newest first. histIdx -1 means the
	// user is typing a fresh query.
	histSources []string
	histIdx     int
	draft       string
}

func newReplModel(b *bridge.Bridge, store *history.Store) *replModel {
	ti := textinput.New()
	ti.Placeholder = "query"
	ti.Prompt = "> "
	ti.Width = 80
	ti.Focus()

	return &replModel{
		bridge:  b,
		store:   store,
		input:   ti,
		histIdx: -1,
	}
}

type historyLoadedMsg struct {
	sources []string
}

type queryDoneMsg struct {
	meta    bridge.Meta
	err     error
	source  string
	elapsed time.Duration
}

type pageMsg struct {
	rows  []bridge.Row
	start uint64
	err   error
}

func (m *replModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadHistory)
}

func (m *replModel) loadHistory() tea.Msg {
	if m.store == nil {
		return historyLoadedMsg{}
	}
	sources, err := m.store.Sources(context.Background(), 200)
	if err != nil {
		return historyLoadedMsg{}
	}
	return historyLoadedMsg{sources: sources}
}

// submit runs the query on the bridge and records the outcome.
func (m *replModel) submit(source string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		queryID := uuid.NewString()
		started := time.Now()

		meta, err := m.bridge.Query(ctx, queryID, source)
		elapsed := time.Since(started)

		entry := history.Entry{ID: queryID, Source: source, Elapsed: elapsed}
		if err != nil {
			entry.Err = err.Error()
		} else {
			entry.ResultType = meta.ResultType
			entry.RowCount = meta.RowCount
		}
		recordHistory(ctx, m.store, entry)

		return queryDoneMsg{meta: meta, err: err, source: source, elapsed: elapsed}
	}
}

// fetchPage loads one window of rows for the current result.
func (m *replModel) fetchPage(start uint64) tea.Cmd {
	handle := m.meta.Handle
	return func() tea.Msg {
		rows, err := m.bridge.FetchRows(context.Background(), handle, start, cfg.FetchWindow)
		return pageMsg{rows: rows, start: start, err: err}
	}
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.dropResult()
			return m, tea.Quit
		}
		switch m.state {
		case stateInput:
			return m.updateInput(msg)
		case stateResult:
			return m.updateResult(msg)
		}

	case historyLoadedMsg:
		m.histSources = msg.sources

	case queryDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.meta = msg.meta
		m.elapsed = msg.elapsed
		m.start = 0
		m.state = stateResult
		m.rememberSource(msg.source)
		m.input.SetValue("")
		m.histIdx = -1
		return m, m.fetchPage(0)

	case pageMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.rows = msg.rows
		m.start = msg.start
	}

	if m.state == stateInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *replModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		source := strings.TrimSpace(m.input.Value())
		if source == "" {
			return m, nil
		}
		return m, m.submit(source)

	case "up":
		if m.histIdx+1 < len(m.histSources) {
			if m.histIdx == -1 {
				m.draft = m.input.Value()
			}
			m.histIdx++
			m.input.SetValue(m.histSources[m.histIdx])
			m.input.CursorEnd()
		}
		return m, nil

	case "down":
		if m.histIdx >= 0 {
			m.histIdx--
			if m.histIdx == -1 {
				m.input.SetValue(m.draft)
			} else {
				m.input.SetValue(m.histSources[m.histIdx])
			}
			m.input.CursorEnd()
		}
		return m, nil

	case "esc":
		m.input.SetValue("")
		m.histIdx = -1
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *replModel) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "right", "pgdown", "n":
		next := m.start + cfg.FetchWindow
		if next < m.meta.RowCount {
			return m, m.fetchPage(next)
		}

	case "left", "pgup", "p":
		if m.start > 0 {
			prev := uint64(0)
			if m.start > cfg.FetchWindow {
				prev = m.start - cfg.FetchWindow
			}
			return m, m.fetchPage(prev)
		}

	case "enter", "esc", "q":
		m.dropResult()
		m.state = stateInput
		return m, textinput.Blink
	}
	return m, nil
}

// dropResult releases the engine-side value behind the current result.
func (m *replModel) dropResult() {
	if m.meta.Handle != 0 {
		_ = m.bridge.Release(m.meta.Handle)
		m.meta = bridge.Meta{}
		m.rows = nil
		m.start = 0
	}
}

// rememberSource puts source at the front of the in-session history.
func (m *replModel) rememberSource(source string) {
	filtered := make([]string, 0, len(m.histSources)+1)
	filtered = append(filtered, source)
	for _, s := range m.histSources {
		if s != source {
			filtered = append(filtered, s)
		}
	}
	m.histSources = filtered
}

func (m *replModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("raylens"))
	b.WriteString("\n\n")

	switch m.state {
	case stateInput:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter run • ↑/↓ history • esc clear • ctrl+c quit"))

	case stateResult:
		b.WriteString(metaStyle.Render(fmt.Sprintf("%s • %d rows • %s",
			m.meta.ResultType, m.meta.RowCount, m.elapsed.Round(time.Microsecond))))
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.renderPage()))
		}
		b.WriteString("\n")
		if m.meta.RowCount > cfg.FetchWindow {
			end := m.start + uint64(len(m.rows))
			b.WriteString(metaStyle.Render(fmt.Sprintf("rows %d-%d of %d", m.start, end, m.meta.RowCount)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("←/→ page • enter back • ctrl+c quit"))
	}

	return b.String()
}

func (m *replModel) renderPage() string {
	if len(m.rows) == 0 {
		return "(0 rows)"
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(m.meta.Columns))
	for i, col := range m.meta.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range m.rows {
		row := make(table.Row, len(m.meta.Columns))
		for i, col := range m.meta.Columns {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}
	return t.Render()
}
