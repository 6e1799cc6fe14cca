package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

const exportTimeout = 2 * time.Minute

type exportOptions struct {
	format string
	dir    string
}

// saveExport downloads into a hidden temporary file in dir and renames it to
// the server supplied filename once the body is complete.
func saveExport(ctx context.Context, api *client.Client, opts exportOptions, r client.Range) (string, error) {
	dir := opts.dir
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	name, err := api.Export(ctx, opts.format, r, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return "", err
	}

	if name == "" {
		name = fmt.Sprintf("transactions_%s.%s", time.Now().Format("20060102"), opts.format)
	}

	dest := filepath.Join(dir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}

	return dest, nil
}

type ExportModel struct {
	CommonModel
	api *client.Client

	picker TimeframePicker
	// form is nil until a timeframe was chosen.
	form  *huh.Form
	opts  *exportOptions
	rng   client.Range
	label string

	running bool
	spinner spinner.Model

	finished bool
	saved    string
	err      error
}

func NewExportModel(api *client.Client) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ExportModel{
		api:     api,
		picker:  NewTimeframePicker(TimeframeThisMonth),
		opts:    &exportOptions{format: "csv", dir: "./exports"},
		spinner: s,
	}
}

func (m ExportModel) Title() string { return "Export Transactions" }

func (m ExportModel) ShortHelp() string {
	switch {
	case m.finished:
		return "Esc: back to menu"
	case m.running:
		return "Exporting..."
	}

	return "Esc: back | Enter: confirm"
}

func (m ExportModel) Init() tea.Cmd { return nil }

type exportDoneMsg struct {
	path string
	err  error
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.rng, m.label = msg.Range, msg.Label
		m.form = exportForm(m.opts)

		return m, m.form.Init()

	case exportDoneMsg:
		m.running, m.finished = false, true
		m.saved, m.err = msg.path, msg.err

		return m, expired(msg.err)

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.escape()
		}
	}

	switch {
	case m.finished:
		return m, nil
	case m.running:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case m.form != nil:
		return m.updateForm(msg)
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	return m, cmd
}

func (m ExportModel) escape() (tea.Model, tea.Cmd) {
	switch {
	case m.finished:
		return m, Back
	case m.running:
		return m, nil
	case m.form != nil:
		m.form = nil
		m.picker.Reset()

		return m, nil
	case m.picker.IsSelecting():
		return m, Back
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(tea.KeyMsg{Type: tea.KeyEsc})

	return m, cmd
}

func (m ExportModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.running = true
	opts, rng, api := *m.opts, m.rng, m.api

	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		path, err := saveExport(ctx, api, opts, rng)

		return exportDoneMsg{path: path, err: err}
	})
}

func exportForm(opts *exportOptions) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Format").
				Options(
					huh.NewOption("CSV", "csv"),
					huh.NewOption("Excel (xlsx)", "xlsx"),
				).
				Value(&opts.format),
			huh.NewInput().
				Title("Output Directory").
				Description("Created if missing").
				Placeholder("./exports").
				Value(&opts.dir),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) View() string {
	pad := lipgloss.NewStyle().Padding(1)

	switch {
	case m.finished && m.err != nil:
		return pad.Render(errorStyle.Render("Error: " + m.err.Error()))
	case m.finished:
		return pad.Render(successStyle.Bold(true).Render("Export Complete!") + "\n\nSaved to " + m.saved)
	case m.running:
		return pad.Render(m.spinner.View() + " Exporting transactions...")
	case m.form != nil:
		return pad.Render(fmt.Sprintf("Timeframe: %s\n\n%s", activeStyle(m.label), m.form.View()))
	}

	return pad.Render(m.picker.View())
}
