package view

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

const (
	barWidth      = 30
	topCategories = 5
)

var dashboardFrames = []Timeframe{TimeframeThisMonth, TimeframeLastMonth, TimeframeThisYear, TimeframeAll}

type DashboardModel struct {
	CommonModel
	api *client.Client
	now func() time.Time

	frameIdx int
	loading  bool
	err      error

	summary    *client.Summary
	months     []client.Month
	categories []client.CategoryTotal
}

func NewDashboardModel(api *client.Client) DashboardModel {
	return DashboardModel{api: api, now: time.Now, loading: true}
}

func (m DashboardModel) Title() string     { return "Dashboard" }
func (m DashboardModel) ShortHelp() string { return "Esc: back | t: timeframe | r: refresh" }

func (m DashboardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, expired(msg.err)
		}

		m.err = nil
		m.summary = msg.summary
		m.months = msg.months
		m.categories = msg.categories

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "t":
			m.frameIdx = (m.frameIdx + 1) % len(dashboardFrames)
			m.loading = true
			return m, m.loadCmd()
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	return m, nil
}

func (m DashboardModel) frameRange() client.Range {
	return dashboardFrames[m.frameIdx].Range(m.now())
}

type dashboardMsg struct {
	summary    *client.Summary
	months     []client.Month
	categories []client.CategoryTotal
	err        error
}

func (m DashboardModel) loadCmd() tea.Cmd {
	r := m.frameRange()
	year := m.now().Year()

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		var res dashboardMsg

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			s, err := m.api.Summary(ctx, r)
			res.summary = s
			return err
		})
		g.Go(func() error {
			months, err := m.api.Monthly(ctx, year)
			res.months = months
			return err
		})
		g.Go(func() error {
			cats, err := m.api.Categories(ctx, r, "expense")
			res.categories = cats
			return err
		})

		res.err = g.Wait()

		return res
	}
}

func (m DashboardModel) View() string {
	header := fmt.Sprintf("Timeframe: [t] %s", activeStyle(dashboardFrames[m.frameIdx].String()))

	if m.loading {
		return lipgloss.NewStyle().Padding(1).Render(header + "\n\nLoading dashboard...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(1).Render(header + "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.viewCards(),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewTrend(),
			lipgloss.NewStyle().PaddingLeft(4).Render(m.viewCategories()),
		),
	))
}

func (m DashboardModel) viewCards() string {
	card := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 2).
		Width(22)

	balance := successStyle
	if m.summary.Balance.IsNegative() {
		balance = errorStyle
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		card.Render("Income\n"+successStyle.Render(FormatAmount(m.summary.TotalIncome))),
		card.Render("Expenses\n"+errorStyle.Render(FormatAmount(m.summary.TotalExpenses))),
		card.Render("Balance\n"+balance.Render(FormatAmount(m.summary.Balance))),
	)
}

func (m DashboardModel) viewTrend() string {
	var peak decimal.Decimal
	for _, mo := range m.months {
		peak = decimal.Max(peak, mo.Income, mo.Expense)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(fmt.Sprintf("%d trend", m.now().Year())))

	for _, mo := range m.months {
		name := time.Month(mo.Month).String()[:3]
		fmt.Fprintf(&b, "%s %s %s\n", name,
			successStyle.Render(bar(mo.Income, peak)),
			faintStyle.Render(FormatAmount(mo.Income)))
		fmt.Fprintf(&b, "    %s %s\n",
			errorStyle.Render(bar(mo.Expense, peak)),
			faintStyle.Render(FormatAmount(mo.Expense)))
	}

	return b.String()
}

func (m DashboardModel) viewCategories() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Top expense categories"))

	if len(m.categories) == 0 {
		b.WriteString(faintStyle.Render("No expenses in this timeframe."))
		return b.String()
	}

	cats := m.categories
	if len(cats) > topCategories {
		cats = cats[:topCategories]
	}

	for _, c := range cats {
		fmt.Fprintf(&b, "%-20s %10s  %s\n", c.Category, FormatAmount(c.Total), faintStyle.Render(fmt.Sprintf("(%d)", c.Count)))
	}

	return b.String()
}

// bar scales v against peak into at most barWidth cells.
func bar(v, peak decimal.Decimal) string {
	if peak.IsZero() || !v.IsPositive() {
		return ""
	}

	n := int(v.Div(peak).Mul(decimal.NewFromInt(barWidth)).Round(0).IntPart())
	if n == 0 {
		n = 1
	}

	return strings.Repeat("█", n)
}
