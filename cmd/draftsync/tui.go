package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	draftsync "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/conversation"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/guided"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
)

type (
	draftChangedMsg struct {
		version int
		fields  []string
	}
	turnCompletedMsg struct{ event events.TurnCompleted }
	policyChangedMsg struct{ policy syncstore.InputPolicy }
	syncMsg          struct {
		outcome conversation.Outcome
		err     error
	}
	guidedMsg struct {
		result guided.Result
		err    error
	}
	errMsg struct{ err error }
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

type model struct {
	session *draftsync.Session
	msgs    <-chan tea.Msg
	input   textinput.Model

	width   int
	status  string
	err     error
	changed map[string]bool
}

func newModel(session *draftsync.Session, msgs <-chan tea.Msg) model {
	input := textinput.New()
	input.Placeholder = "type an answer, or \"field: value\""
	input.Focus()
	input.CharLimit = 2000

	return model{
		session: session,
		msgs:    msgs,
		input:   input,
		width:   80,
		changed: map[string]bool{},
	}
}

func (m model) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		return <-m.msgs
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForMsg())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			m.session.Cancel(errors.New("cancelled from the terminal"))
			m.status = "exchange cancelled"
			return m, nil
		case tea.KeyCtrlP:
			policy := syncstore.PolicyMixed
			if m.session.Store().Policy() == syncstore.PolicyMixed {
				policy = syncstore.PolicyExclusive
			}
			m.session.SetPolicy(policy)
			return m, nil
		case tea.KeyCtrlS:
			m.status = "syncing"
			return m, m.sync()
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			m.changed = map[string]bool{}
			m.err = nil
			return m, m.submit(text)
		}

		previous := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if _, guidedMode := m.session.Guided(); !guidedMode && m.input.Value() != previous {
			m.session.Gateway().OnTypingChange(m.input.Value())
		}
		return m, cmd

	case draftChangedMsg:
		for _, field := range msg.fields {
			m.changed[field] = true
		}
		return m, m.waitForMsg()

	case turnCompletedMsg:
		switch {
		case msg.event.Cancelled:
			m.status = "agent turn cancelled"
		case !msg.event.HasAppliedPatch:
			m.status = "nothing extracted"
		default:
			m.status = fmt.Sprintf("agent turn done in %s", msg.event.Duration.Round(time.Millisecond))
		}
		return m, m.waitForMsg()

	case policyChangedMsg:
		m.status = "policy: " + string(msg.policy)
		return m, m.waitForMsg()

	case syncMsg:
		if msg.err != nil && !errors.Is(msg.err, conversation.ErrCancelled) {
			m.err = msg.err
		}
		return m, m.waitForMsg()

	case guidedMsg:
		m.applyGuided(msg)
		return m, m.waitForMsg()

	case guidedResultMsg:
		m.applyGuided(guidedMsg(msg))
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, m.waitForMsg()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// guidedResultMsg answers a submission made from the input line, unlike
// guidedMsg which arrives through the session callbacks.
type guidedResultMsg guidedMsg

func (m *model) applyGuided(msg guidedMsg) {
	if msg.err != nil && !errors.Is(msg.err, conversation.ErrCancelled) {
		m.err = msg.err
	}
	switch {
	case msg.result.Fallback:
		m.status = "agent unavailable, answer kept as typed"
	case msg.result.Action == guided.ActionAnswer && !msg.result.Extracted:
		m.status = "nothing extracted, try rephrasing"
	case msg.result.State == guided.StateConfirmed:
		m.status = "draft confirmed"
	default:
		m.status = string(msg.result.Action)
	}
}

func (m model) submit(text string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		result, err := session.Submit(context.Background(), events.ChannelTyping, text)
		if _, guidedMode := session.Guided(); guidedMode {
			return guidedResultMsg{result: result, err: err}
		}
		if err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m model) sync() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		outcome, err := session.Sync(context.Background())
		return syncMsg{outcome, err}
	}
}

func (m model) View() string {
	snapshot := m.session.Snapshot()
	var b strings.Builder

	b.WriteString(titleStyle.Render("draftsync"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  v%d  policy %s", snapshot.Version, snapshot.Policy)))
	if m.session.Controller().InFlight() {
		b.WriteString(mutedStyle.Render("  syncing..."))
	}
	b.WriteString("\n\n")

	orchestrator, guidedMode := m.session.Guided()
	var current validation.Field
	if guidedMode {
		current, _ = orchestrator.Current()
	}

	issues := m.session.Store().Issues()
	fields := m.fields()
	for _, field := range fields {
		marker := "  "
		if guidedMode && field.ID == current.ID {
			marker = "> "
		}
		label := labelStyle.Render(field.DisplayName())
		if m.changed[field.ID] {
			label = changedStyle.Render(field.DisplayName())
		}

		value := mutedStyle.Render("-")
		if raw, ok := snapshot.Draft[field.ID]; ok {
			value = wordwrap.String(formatValue(raw), max(m.width-6, 20))
		}
		fmt.Fprintf(&b, "%s%s\n    %s\n", marker, label, strings.ReplaceAll(value, "\n", "\n    "))

		for _, issue := range issues[field.ID] {
			style := warningStyle
			if issue.Severity == validation.SeverityError {
				style = errorStyle
			}
			b.WriteString("    " + style.Render(issue.Message) + "\n")
		}
	}

	b.WriteString("\n")
	if guidedMode {
		switch orchestrator.State() {
		case guided.StateReviewing:
			b.WriteString(labelStyle.Render("Review the draft, then type confirm or edit <field>") + "\n")
		case guided.StateConfirmed:
			b.WriteString(changedStyle.Render("Confirmed") + "\n")
		default:
			b.WriteString(labelStyle.Render(current.DisplayName()+"?") + mutedStyle.Render("  skip · back · edit <field> · review") + "\n")
		}
	}
	b.WriteString(m.input.View() + "\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString(mutedStyle.Render(m.status) + "\n")
	}
	b.WriteString(mutedStyle.Render("enter submit · esc cancel · ctrl+s sync · ctrl+p policy · ctrl+c quit"))
	return b.String()
}

func (m model) fields() []validation.Field {
	if orchestrator, ok := m.session.Guided(); ok {
		return orchestrator.Fields()
	}

	var fields []validation.Field
	for _, field := range cfg.Schema {
		if !field.Hidden {
			fields = append(fields, field)
		}
	}
	return fields
}

func formatValue(raw any) string {
	switch value := raw.(type) {
	case []string:
		return "• " + strings.Join(value, "\n• ")
	case []any:
		items := make([]string, 0, len(value))
		for _, item := range value {
			items = append(items, fmt.Sprint(item))
		}
		return "• " + strings.Join(items, "\n• ")
	default:
		return fmt.Sprint(value)
	}
}
