package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/view"
)

type config struct {
	APIURL  string        `envconfig:"FINSIGHT_API_URL" default:"http://localhost:5000"`
	Timeout time.Duration `envconfig:"FINSIGHT_API_TIMEOUT" default:"30s"`
	Email   string        `envconfig:"FINSIGHT_EMAIL"`
}

type menuItem struct {
	key   string
	label string
	open  func(api *client.Client) view.View
}

var menu = []menuItem{
	{"1", "Dashboard", func(api *client.Client) view.View { return view.NewDashboardModel(api) }},
	{"2", "Transactions", func(api *client.Client) view.View { return view.NewListModel(api) }},
	{"3", "Review Categories", func(api *client.Client) view.View { return view.NewReviewModel(api) }},
	{"4", "Import CSV", func(api *client.Client) view.View { return view.NewImportModel(api) }},
	{"5", "Export Transactions", func(api *client.Client) view.View { return view.NewExportModel(api) }},
	{"6", "Goals", func(api *client.Client) view.View { return view.NewGoalsModel(api) }},
	{"7", "Budgets", func(api *client.Client) view.View { return view.NewBudgetsModel(api) }},
}

type model struct {
	// anon never carries a token; api is anon bound to the current session.
	anon  *client.Client
	api   *client.Client
	email string
	user  *client.User

	// active is nil while the menu is shown.
	active view.View
	size   tea.WindowSizeMsg
}

func initialModel(cfg config) model {
	api := client.New(cfg.APIURL, cfg.Timeout)

	return model{
		anon:   api,
		api:    api,
		email:  cfg.Email,
		active: view.NewLoginModel(api, cfg.Email),
	}
}

func (m model) Init() tea.Cmd {
	return m.active.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.size = msg
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.active == nil {
			return m.updateMenu(msg)
		}
	case view.LoggedInMsg:
		m.api = m.anon.WithToken(msg.Session.Token)
		m.user = &msg.Session.User
		m.active = nil
		return m, nil
	case view.SessionExpiredMsg:
		m.api = m.anon
		m.user = nil
		m.active = view.NewLoginModel(m.anon, m.email)
		return m, m.active.Init()
	case view.BackMsg:
		m.active = nil
		return m, nil
	}

	if m.active == nil {
		return m, nil
	}

	next, cmd := m.active.Update(msg)
	if v, ok := next.(view.View); ok {
		m.active = v
	}

	return m, cmd
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "l":
		return m, func() tea.Msg { return view.SessionExpiredMsg{} }
	}

	for _, item := range menu {
		if msg.String() != item.key {
			continue
		}

		m.active = item.open(m.api)
		cmds := []tea.Cmd{m.active.Init()}

		if m.size.Width > 0 {
			size := m.size
			cmds = append(cmds, func() tea.Msg { return size })
		}

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m model) View() string {
	if m.active != nil {
		help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(m.active.ShortHelp())
		title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).PaddingLeft(1).Render(m.active.Title())

		return lipgloss.JoinVertical(lipgloss.Left, title, m.active.View(), help)
	}

	var b strings.Builder

	b.WriteString("FinSight TUI\n")
	if m.user != nil {
		fmt.Fprintf(&b, "Signed in as %s %s <%s>\n", m.user.FirstName, m.user.LastName, m.user.Email)
	}
	b.WriteString("\n")

	for _, item := range menu {
		fmt.Fprintf(&b, "%s. %s\n", item.key, item.label)
	}

	b.WriteString("\nl. Log out\nq. Quit")

	return lipgloss.NewStyle().Padding(2).Render(b.String())
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
