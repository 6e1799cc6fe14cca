package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

type Timeframe int

const (
	TimeframeThisWeek Timeframe = iota
	TimeframeLastWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeThisYear
	TimeframeAll
	TimeframeCustom
)

var timeframeLabels = [...]string{
	TimeframeThisWeek:  "This Week",
	TimeframeLastWeek:  "Last Week",
	TimeframeThisMonth: "This Month",
	TimeframeLastMonth: "Last Month",
	TimeframeThisYear:  "This Year",
	TimeframeAll:       "All Time",
	TimeframeCustom:    "Custom Range",
}

func (t Timeframe) String() string {
	if t < 0 || int(t) >= len(timeframeLabels) {
		return "Unknown"
	}

	return timeframeLabels[t]
}

// Range resolves a preset against now as whole calendar days. Weeks start on
// Monday. All Time and Custom resolve to an open range.
func (t Timeframe) Range(now time.Time) client.Range {
	today := civilDay(now)

	// Days since Monday, with Sunday counted as the seventh day.
	sinceMonday := (int(today.Weekday()) + 6) % 7

	switch t {
	case TimeframeThisWeek:
		return closedRange(today.AddDate(0, 0, -sinceMonday), today)
	case TimeframeLastWeek:
		lastSunday := today.AddDate(0, 0, -sinceMonday-1)
		return closedRange(lastSunday.AddDate(0, 0, -6), lastSunday)
	case TimeframeThisMonth:
		return closedRange(today.AddDate(0, 0, 1-today.Day()), today)
	case TimeframeLastMonth:
		first := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		return closedRange(first, first.AddDate(0, 1, -1))
	case TimeframeThisYear:
		return closedRange(time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), today)
	}

	return client.Range{}
}

// civilDay keeps the wall-clock date of t and drops everything else; the API
// compares whole dates.
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func closedRange(start, end time.Time) client.Range {
	return client.Range{Start: &start, End: &end}
}

func parseCustomRange(startRaw, endRaw string) (client.Range, error) {
	start, err := time.Parse(time.DateOnly, strings.TrimSpace(startRaw))
	if err != nil {
		return client.Range{}, errors.New("invalid start date (YYYY-MM-DD)")
	}

	end, err := time.Parse(time.DateOnly, strings.TrimSpace(endRaw))
	if err != nil {
		return client.Range{}, errors.New("invalid end date (YYYY-MM-DD)")
	}

	if end.Before(start) {
		return client.Range{}, errors.New("end date is before start date")
	}

	return closedRange(start, end), nil
}

// TimeframeSelectedMsg carries the chosen range; both ends are nil for All Time.
type TimeframeSelectedMsg struct {
	Range client.Range
	Label string
}

// TimeframePicker lists the presets from a minimum upwards and falls through to
// a two-field custom range form.
type TimeframePicker struct {
	first  Timeframe
	cursor Timeframe

	custom bool
	inputs [2]textinput.Model
	focus  int

	now func() time.Time
	err error
}

func NewTimeframePicker(first Timeframe) TimeframePicker {
	p := TimeframePicker{first: first, cursor: first, now: time.Now}

	for i, prompt := range []string{"Start Date: ", "End Date:   "} {
		in := textinput.New()
		in.Placeholder = "YYYY-MM-DD"
		in.CharLimit = 10
		in.Width = 12
		in.Prompt = prompt
		p.inputs[i] = in
	}

	return p
}

func (m TimeframePicker) Init() tea.Cmd { return nil }

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	key, isKey := msg.(tea.KeyMsg)

	switch {
	case m.custom && isKey:
		return m.updateCustom(key)
	case m.custom:
		return m.forward(msg)
	case isKey:
		return m.updatePresets(key)
	}

	return m, nil
}

func (m TimeframePicker) updatePresets(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		m.cursor = max(m.cursor-1, m.first)
	case tea.KeyDown:
		m.cursor = min(m.cursor+1, TimeframeCustom)
	case tea.KeyEnter:
		if m.cursor == TimeframeCustom {
			m.custom = true
			cmd := m.focusInput(0)

			return m, cmd
		}

		sel := TimeframeSelectedMsg{Range: m.cursor.Range(m.now()), Label: m.cursor.String()}
		return m, func() tea.Msg { return sel }
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.custom = false
		m.err = nil
		return m, nil
	case "tab", "shift+tab":
		cmd := m.focusInput(1 - m.focus)
		return m, cmd
	case "enter":
		r, err := parseCustomRange(m.inputs[0].Value(), m.inputs[1].Value())
		if err != nil {
			m.err = err
			return m, nil
		}

		m.err = nil
		sel := TimeframeSelectedMsg{
			Range: r,
			Label: fmt.Sprintf("%s to %s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly)),
		}

		return m, func() tea.Msg { return sel }
	}

	return m.forward(msg)
}

func (m *TimeframePicker) focusInput(i int) tea.Cmd {
	m.focus = i
	m.inputs[1-i].Blur()

	return m.inputs[i].Focus()
}

func (m TimeframePicker) forward(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)

	return m, cmd
}

func (m TimeframePicker) View() string {
	var b strings.Builder

	if m.custom {
		b.WriteString("Enter Custom Range:\n\n")
		b.WriteString(m.inputs[0].View() + "\n" + m.inputs[1].View())
		b.WriteString("\n\n(Enter to confirm, Tab to switch, Esc to back)")
	} else {
		b.WriteString("Select Timeframe:\n\n")

		for tf := m.first; tf <= TimeframeCustom; tf++ {
			cursor := " "
			if tf == m.cursor {
				cursor = ">"
			}

			fmt.Fprintf(&b, "%s %s\n", cursor, tf)
		}

		b.WriteString("\n(Enter to select, Esc to back)")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("\n\nError: " + m.err.Error()))
	}

	return b.String()
}

// IsSelecting reports whether the preset list, not the custom form, is shown.
func (m TimeframePicker) IsSelecting() bool { return !m.custom }

func (m *TimeframePicker) Reset() {
	m.custom = false
	m.cursor = m.first
	m.err = nil

	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
}
