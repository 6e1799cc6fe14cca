package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

type BudgetsModel struct {
	CommonModel
	api *client.Client

	budgets []client.Budget
	bar     progress.Model

	loading bool
	err     error
}

func NewBudgetsModel(api *client.Client) BudgetsModel {
	return BudgetsModel{
		api:     api,
		bar:     progress.New(progress.WithSolidFill("63"), progress.WithWidth(30)),
		loading: true,
	}
}

func (m BudgetsModel) Title() string     { return "Budgets" }
func (m BudgetsModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m BudgetsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m BudgetsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadBudgetsMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.budgets = msg.budgets
		}
		return m, expired(msg.err)

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	return m, nil
}

func (m BudgetsModel) View() string {
	if m.loading && m.budgets == nil {
		return lipgloss.NewStyle().Padding(2).Render("Loading budgets...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if len(m.budgets) == 0 {
		return lipgloss.NewStyle().Padding(2).Render("No budgets yet.\n\n(Esc to back)")
	}

	var b strings.Builder

	for _, bu := range m.budgets {
		state := successStyle.Render("on track")
		switch {
		case bu.Exceeded:
			state = errorStyle.Render("exceeded")
		case bu.Alert:
			state = activeStyle("near limit")
		}

		if !bu.IsActive {
			state = faintStyle.Render("inactive")
		}

		fmt.Fprintf(&b, "%s %s %s\n",
			titleStyle.Render(bu.Category),
			faintStyle.Render("("+bu.Period+")"),
			state,
		)
		fmt.Fprintf(&b, "  %s %s / %s  %s left\n\n",
			m.bar.ViewAs(min(float64(bu.PercentageSpent)/100, 1)),
			FormatAmount(bu.Spent),
			FormatAmount(bu.Amount),
			FormatAmount(bu.Remaining),
		)
	}

	return lipgloss.NewStyle().Padding(1).Render(b.String())
}

type loadBudgetsMsg struct {
	budgets []client.Budget
	err     error
}

func (m BudgetsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		budgets, err := m.api.Budgets(ctx)
		return loadBudgetsMsg{budgets: budgets, err: err}
	}
}
