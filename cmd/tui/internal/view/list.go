package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

const listPageSize = 25

type listState int

const (
	listStateBrowse listState = iota
	listStateEdit
	listStateDelete
)

var (
	typeFilters = []string{"", "income", "expense"}
	dateFilters = []Timeframe{TimeframeAll, TimeframeThisMonth, TimeframeLastMonth, TimeframeThisYear}
)

type ListModel struct {
	CommonModel
	api *client.Client
	now func() time.Time

	state listState
	table table.Model
	page  *client.Page
	form  *huh.Form
	edit  *listEdit

	typeFilterIdx int
	dateFilterIdx int
	pageNum       int

	loading bool
	err     error
	status  string
}

// listEdit holds the form bindings for the selected transaction.
type listEdit struct {
	tx          client.Transaction
	description string
	category    string
	notes       string
	confirm     bool
}

func NewListModel(api *client.Client) ListModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 8},
		{Title: "Amount", Width: 12},
		{Title: "Category", Width: 18},
		{Title: "Description", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ListModel{
		api:     api,
		now:     time.Now,
		table:   t,
		pageNum: 1,
		loading: true,
	}
}

func (m ListModel) Title() string { return "Transactions" }
func (m ListModel) ShortHelp() string {
	switch m.state {
	case listStateEdit, listStateDelete:
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | e: edit | x: delete | f: type | d: date | n/p: page | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, expired(msg.err)
		}
		m.err = nil
		m.page = msg.page
		m.refreshTable()
		return m, nil

	case listSaveMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}
		m.state = listStateBrowse
		m.form = nil
		m.edit = nil
		m.table.Focus()
		return m, tea.Batch(m.loadCmd(), expired(msg.err))

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-10, 5))
		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateEdit, listStateDelete:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "e":
			return m.enterForm(listStateEdit)
		case "x":
			return m.enterForm(listStateDelete)
		case "f":
			m.typeFilterIdx = (m.typeFilterIdx + 1) % len(typeFilters)
			m.pageNum = 1
			return m, m.loadCmd()
		case "d":
			m.dateFilterIdx = (m.dateFilterIdx + 1) % len(dateFilters)
			m.pageNum = 1
			return m, m.loadCmd()
		case "n":
			if m.page != nil && m.pageNum < m.page.TotalPages {
				m.pageNum++
				return m, m.loadCmd()
			}
			return m, nil
		case "p":
			if m.pageNum > 1 {
				m.pageNum--
				return m, m.loadCmd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ListModel) selected() (client.Transaction, bool) {
	idx := m.table.Cursor()
	if m.page == nil || idx < 0 || idx >= len(m.page.Transactions) {
		return client.Transaction{}, false
	}

	return m.page.Transactions[idx], true
}

func (m ListModel) enterForm(state listState) (tea.Model, tea.Cmd) {
	tx, ok := m.selected()
	if !ok {
		return m, nil
	}

	e := &listEdit{tx: tx, description: tx.Description, category: tx.Category, notes: tx.Notes}
	nonEmpty := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s cannot be empty", field)
			}
			return nil
		}
	}

	if state == listStateDelete {
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Delete this transaction?").
					Affirmative("Delete").
					Negative("Keep").
					Value(&e.confirm),
			),
		).WithWidth(45).WithShowHelp(false)
	} else {
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Key("description").
					Title("Description").
					Value(&e.description).
					Validate(nonEmpty("description")),
				huh.NewInput().
					Key("category").
					Title("Category").
					Value(&e.category).
					Validate(nonEmpty("category")),
				huh.NewText().
					Key("notes").
					Title("Notes").
					Lines(3).
					Value(&e.notes),
			),
		).WithWidth(45).WithShowHelp(false)
	}

	m.edit = e
	m.state = state
	m.table.Blur()
	return m, m.form.Init()
}

func (m ListModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = listStateBrowse
			m.form = nil
			m.edit = nil
			m.table.Focus()
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == listStateDelete {
		return m, m.deleteCmd()
	}

	return m, m.saveCmd()
}

func (m ListModel) View() string {
	if m.loading && m.page == nil {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	typeLabel := typeFilters[m.typeFilterIdx]
	if typeLabel == "" {
		typeLabel = "all"
	}

	header := fmt.Sprintf(
		"Filter: [f] Type: %s | [d] Date: %s | Page %d/%d (%d total)",
		activeStyle(typeLabel),
		activeStyle(dateFilters[m.dateFilterIdx].String()),
		m.pageNum, max(m.page.TotalPages, 1), m.page.TotalCount,
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state != listStateBrowse && m.form != nil && m.edit != nil {
		tx := m.edit.tx
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("%s  %s\n%s\n\n%s",
				tx.Date, FormatSigned(tx.Amount, tx.Type), tx.Description, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *ListModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.page.Transactions))
	for _, tx := range m.page.Transactions {
		rows = append(rows, table.Row{
			tx.Date,
			tx.Type,
			FormatSigned(tx.Amount, tx.Type),
			tx.Category,
			tx.Description,
		})
	}
	m.table.SetRows(rows)
}

func (m ListModel) query() client.ListQuery {
	return client.ListQuery{
		Range: dateFilters[m.dateFilterIdx].Range(m.now()),
		Type:  typeFilters[m.typeFilterIdx],
		Page:  m.pageNum,
		Limit: listPageSize,
	}
}

// Messages

type loadListMsg struct {
	page *client.Page
	err  error
}

func (m ListModel) loadCmd() tea.Cmd {
	q := m.query()

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		page, err := m.api.Transactions(ctx, q)
		return loadListMsg{page: page, err: err}
	}
}

type listSaveMsg struct {
	status string
	err    error
}

func (m ListModel) saveCmd() tea.Cmd {
	e := m.edit
	if e == nil {
		return nil
	}

	upd := client.TransactionUpdate{
		Description: new(strings.TrimSpace(e.description)),
		Category:    new(strings.TrimSpace(e.category)),
		Notes:       new(e.notes),
	}

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		if err := m.api.UpdateTransaction(ctx, e.tx.ID, upd); err != nil {
			return listSaveMsg{err: err}
		}

		return listSaveMsg{status: "Transaction updated."}
	}
}

func (m ListModel) deleteCmd() tea.Cmd {
	e := m.edit
	if e == nil {
		return nil
	}

	return func() tea.Msg {
		if !e.confirm {
			return listSaveMsg{status: "Delete cancelled."}
		}

		ctx, cancel := APICtx()
		defer cancel()

		if err := m.api.DeleteTransaction(ctx, e.tx.ID); err != nil {
			return listSaveMsg{err: err}
		}

		return listSaveMsg{status: "Transaction deleted."}
	}
}
