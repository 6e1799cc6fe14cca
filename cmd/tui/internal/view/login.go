package view

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

const (
	modeLogin    = "login"
	modeRegister = "register"
)

// LoggedInMsg carries the session returned by a successful sign in.
type LoggedInMsg struct {
	Session *client.Session
}

type LoginModel struct {
	CommonModel
	api *client.Client

	form       *huh.Form
	in         *loginInput
	submitting bool
	err        error
}

// loginInput lives on the heap so the form bindings survive model copies.
type loginInput struct {
	mode      string
	firstName string
	lastName  string
	email     string
	password  string
}

func NewLoginModel(api *client.Client, email string) LoginModel {
	in := &loginInput{mode: modeLogin, email: email}

	return LoginModel{api: api, in: in, form: buildLoginForm(in)}
}

func (m LoginModel) Title() string     { return "Sign In" }
func (m LoginModel) ShortHelp() string { return "Enter: next | Ctrl+C: quit" }

func (m LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

func buildLoginForm(in *loginInput) *huh.Form {
	required := func(name string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", name)
			}
			return nil
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("FinSight").
				Options(
					huh.NewOption("Sign in", modeLogin),
					huh.NewOption("Create an account", modeRegister),
				).
				Value(&in.mode),
		),
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&in.firstName).Validate(required("first name")),
			huh.NewInput().Title("Last name").Value(&in.lastName).Validate(required("last name")),
		).WithHideFunc(func() bool { return in.mode != modeRegister }),
		huh.NewGroup(
			huh.NewInput().Title("Email").Value(&in.email).Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&in.password).
				Validate(func(s string) error {
					if in.mode == modeRegister && len(s) < 6 {
						return errors.New("password must be at least 6 characters")
					}
					return required("password")(s)
				}),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if res, ok := msg.(loginResultMsg); ok {
		m.submitting = false
		if res.err != nil {
			m.err = res.err
			m.in.password = ""
			m.form = buildLoginForm(m.in)

			return m, m.form.Init()
		}

		return m, func() tea.Msg { return LoggedInMsg{Session: res.session} }
	}

	if m.submitting {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.submitting = true
	m.err = nil

	return m, m.submitCmd()
}

func (m LoginModel) View() string {
	content := m.form.View()

	if m.submitting {
		content = "Signing in..."
	}

	if m.err != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, errorStyle.Render(m.err.Error()), "", content)
	}

	return lipgloss.NewStyle().Padding(2).Render(content)
}

type loginResultMsg struct {
	session *client.Session
	err     error
}

func (m LoginModel) submitCmd() tea.Cmd {
	mode := m.in.mode
	first, last := strings.TrimSpace(m.in.firstName), strings.TrimSpace(m.in.lastName)
	email, password := strings.TrimSpace(m.in.email), m.in.password

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		var (
			s   *client.Session
			err error
		)

		if mode == modeRegister {
			s, err = m.api.Register(ctx, first, last, email, password)
		} else {
			s, err = m.api.Login(ctx, email, password)
		}

		return loginResultMsg{session: s, err: err}
	}
}
