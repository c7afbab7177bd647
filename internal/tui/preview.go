// Package tui renders an interactive preview of which rules fire on
// which events, fed by the background worker host.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fintally/tally/internal/cli"
	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/worker"
)

// resultMsg carries a completed run from the worker host.
type resultMsg worker.Result

// runSubmittedMsg records the runID of a newly submitted run.
type runSubmittedMsg struct{ runID uint64 }

// submitFailedMsg reports a failed submission.
type submitFailedMsg struct{ err error }

// hostClosedMsg signals the worker host shut down.
type hostClosedMsg struct{}

// Model is the bubbletea model for the rule collection preview.
type Model struct {
	host        *worker.Host
	err         error
	events      []model.Event
	eventsByID  map[string]model.Event
	collection  model.RuleCollection
	table       table.Model
	results      []model.EventMatchResult
	latestRunID  uint64
	lastResultID uint64
	showAll      bool
	waiting      bool
}

// NewModel creates a preview model for a collection and event batch.
func NewModel(host *worker.Host, collection model.RuleCollection, events []model.Event) Model {
	byID := make(map[string]model.Event, len(events))
	for _, event := range events {
		byID[event.EventID()] = event
	}

	columns := []table.Column{
		{Title: "Event", Width: 28},
		{Title: "Kind", Width: 16},
		{Title: "Amount", Width: 12},
		{Title: "Rules", Width: 24},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(cli.PrimaryColor)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("0")).Background(cli.PrimaryColor)
	t.SetStyles(styles)

	return Model{
		host:       host,
		collection: collection,
		events:     events,
		eventsByID: byID,
		table:      t,
		showAll:    true,
	}
}

// Init submits the first run and starts listening for results.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.submitRun(), m.awaitResult())
}

// Update handles key presses and worker results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.submitRun()
		case "a":
			m.showAll = !m.showAll
			m.refreshRows()
			return m, nil
		}

	case runSubmittedMsg:
		if msg.runID > m.latestRunID {
			m.latestRunID = msg.runID
		}
		// a fast worker can deliver the result before the submission
		// ack; only wait while a run is actually outstanding
		m.waiting = m.latestRunID > m.lastResultID
		return m, nil

	case submitFailedMsg:
		m.err = msg.err
		m.waiting = false
		return m, nil

	case resultMsg:
		// a result from a superseded run arrives late; drop it
		if msg.RunID < m.latestRunID {
			return m, m.awaitResult()
		}
		m.lastResultID = msg.RunID
		m.results = msg.Results
		m.waiting = false
		m.refreshRows()
		return m, m.awaitResult()

	case hostClosedMsg:
		m.err = worker.ErrHostClosed
		m.waiting = false
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the preview table with a status line.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(cli.TitleStyle.Render(fmt.Sprintf("Preview: %s", m.collection.Name)))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(cli.ErrorStyle.Render("preview unavailable: " + m.err.Error()))
	case m.waiting:
		b.WriteString(cli.SubtleStyle.Render("evaluating..."))
	default:
		b.WriteString(m.table.View())
	}

	b.WriteString("\n")
	b.WriteString(cli.SubtleStyle.Render("r refresh · a toggle matches-only · q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) submitRun() tea.Cmd {
	host, collection, events := m.host, m.collection, m.events
	return func() tea.Msg {
		runID, err := host.Submit(collection, events, model.AllMatches)
		if err != nil {
			return submitFailedMsg{err: err}
		}
		return runSubmittedMsg{runID: runID}
	}
}

func (m Model) awaitResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-m.host.Results()
		if !ok {
			return hostClosedMsg{}
		}
		return resultMsg(result)
	}
}

func (m *Model) refreshRows() {
	rows := make([]table.Row, 0, len(m.results))

	for _, result := range m.results {
		if !m.showAll && !result.Matches {
			continue
		}

		event := m.eventsByID[result.EventID]
		rows = append(rows, table.Row{
			describeEvent(event, result.EventID),
			kindOf(event),
			amountOf(event),
			describeMatches(result),
		})
	}

	m.table.SetRows(rows)
}

func describeEvent(event model.Event, fallback string) string {
	if event == nil {
		return fallback
	}

	switch e := event.(type) {
	case model.Payment:
		return e.Description
	case model.CardTransaction:
		return e.Description
	case model.RequestInquiry:
		return e.Description
	case model.RequestResponse:
		return e.Description
	case model.BunqMeTab:
		return e.Description
	}
	return fallback
}

func kindOf(event model.Event) string {
	if event == nil {
		return "?"
	}
	return string(event.Kind())
}

func amountOf(event model.Event) string {
	switch e := event.(type) {
	case model.Payment:
		return formatMoney(e.Amount)
	case model.CardTransaction:
		return formatMoney(e.Amount)
	case model.RequestInquiry:
		return formatMoney(e.Amount)
	case model.RequestResponse:
		return formatMoney(e.Amount)
	case model.BunqMeTab:
		return formatMoney(e.Amount)
	}
	return ""
}

func formatMoney(m model.Money) string {
	return fmt.Sprintf("%.2f %s", m.Value, m.Currency)
}

func describeMatches(result model.EventMatchResult) string {
	if !result.Matches {
		return cli.NoMatchStyle.Render("none")
	}

	ids := make([]string, 0, len(result.MatchedRuleIDs))
	for _, id := range result.MatchedRuleIDs {
		ids = append(ids, strconv.Itoa(id))
	}
	return cli.MatchStyle.Render(strings.Join(ids, ", "))
}

// Run starts the preview program in the alternate screen.
func Run(host *worker.Host, collection model.RuleCollection, events []model.Event) error {
	program := tea.NewProgram(NewModel(host, collection, events), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}
	return nil
}
