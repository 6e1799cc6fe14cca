package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

type GoalsModel struct {
	CommonModel
	api *client.Client

	goals  []client.Goal
	cursor int
	bar    progress.Model

	form   *huh.Form
	amount *string

	loading bool
	err     error
	status  string
}

func NewGoalsModel(api *client.Client) GoalsModel {
	return GoalsModel{
		api:     api,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		loading: true,
	}
}

func (m GoalsModel) Title() string { return "Savings Goals" }
func (m GoalsModel) ShortHelp() string {
	if m.form != nil {
		return "Enter: save | Esc: cancel"
	}
	return "Esc: back | ↑/↓: select | u: update saved amount | r: refresh"
}

func (m GoalsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m GoalsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadGoalsMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.goals = msg.goals
			m.cursor = min(m.cursor, max(len(m.goals)-1, 0))
		}
		return m, expired(msg.err)

	case goalSavedMsg:
		m.form = nil
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, expired(msg.err)
		}

		m.status = fmt.Sprintf("%s: %d%%", msg.goal.Name, msg.goal.Progress)
		if msg.goal.Status == "completed" {
			m.status = fmt.Sprintf("%s reached its target!", msg.goal.Name)
		}

		return m, m.loadCmd()
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.goals)-1 {
				m.cursor++
			}
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "u":
			if len(m.goals) == 0 {
				return m, nil
			}

			g := m.goals[m.cursor]
			m.amount = new(g.CurrentAmount.StringFixed(2))
			m.form = huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title(fmt.Sprintf("Saved so far for %q", g.Name)).
						Description(fmt.Sprintf("Target %s", FormatAmount(g.TargetAmount))).
						Value(m.amount).
						Validate(validAmount),
				),
			).WithWidth(50).WithShowHelp(false)

			return m, m.form.Init()
		}
	}

	return m, nil
}

func (m GoalsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	amount, _ := decimal.NewFromString(strings.TrimSpace(*m.amount))

	return m, m.saveCmd(m.goals[m.cursor], amount)
}

func validAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("not a number")
	}

	if d.IsNegative() {
		return errors.New("must be zero or more")
	}

	return nil
}

func (m GoalsModel) View() string {
	if m.loading && m.goals == nil {
		return lipgloss.NewStyle().Padding(2).Render("Loading goals...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if len(m.goals) == 0 {
		return lipgloss.NewStyle().Padding(2).Render("No goals yet.\n\n(Esc to back)")
	}

	var b strings.Builder

	for i, g := range m.goals {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		flags := faintStyle.Render(fmt.Sprintf("[%s, %s]", g.Status, g.Priority))
		if g.Overdue {
			flags += " " + errorStyle.Render("overdue")
		}

		fmt.Fprintf(&b, "%s%s %s\n", cursor, titleStyle.Render(g.Name), flags)
		fmt.Fprintf(&b, "  %s %s / %s  due %s\n\n",
			m.bar.ViewAs(float64(g.Progress)/100),
			FormatAmount(g.CurrentAmount),
			FormatAmount(g.TargetAmount),
			g.TargetDate,
		)
	}

	content := b.String()

	if m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content,
			lipgloss.NewStyle().
				Padding(1, 2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Render(m.form.View()))
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type loadGoalsMsg struct {
	goals []client.Goal
	err   error
}

func (m GoalsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		goals, err := m.api.Goals(ctx)
		return loadGoalsMsg{goals: goals, err: err}
	}
}

type goalSavedMsg struct {
	goal *client.Goal
	err  error
}

func (m GoalsModel) saveCmd(g client.Goal, amount decimal.Decimal) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		updated, err := m.api.UpdateGoalProgress(ctx, g.ID, amount)
		return goalSavedMsg{goal: updated, err: err}
	}
}
