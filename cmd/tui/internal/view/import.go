package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

const importTimeout = 2 * time.Minute

// conflictReview holds an upload that matched existing transactions. Rows
// without a match are always sent; matched rows only when kept.
type conflictReview struct {
	fresh     []client.Row
	conflicts []client.Conflict
	keep      map[int]bool
}

func newConflictReview(res *client.ImportResult) *conflictReview {
	return &conflictReview{fresh: res.New, conflicts: res.Conflicts, keep: make(map[int]bool)}
}

func (r *conflictReview) toggle(i int) { r.keep[i] = !r.keep[i] }

func (r *conflictReview) keepAll(keep bool) {
	for i := range r.conflicts {
		r.keep[i] = keep
	}
}

func (r *conflictReview) rows() []client.Row {
	rows := append([]client.Row(nil), r.fresh...)

	for i, c := range r.conflicts {
		if r.keep[i] {
			rows = append(rows, c.Incoming)
		}
	}

	return rows
}

func (r *conflictReview) list() list.Model {
	items := make([]list.Item, len(r.conflicts))
	for i, c := range r.conflicts {
		items[i] = conflictItem{Conflict: c, index: i}
	}

	l := list.New(items, conflictDelegate{keep: r.keep}, 80, 20)
	l.Title = fmt.Sprintf("%d new, %d possible duplicates", len(r.fresh), len(r.conflicts))
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

type ImportModel struct {
	CommonModel
	api *client.Client

	picker filepicker.Model
	busy   bool

	review  *conflictReview
	reviewL list.Model

	// done is set once an upload or confirm finished; the outcome is shown
	// until Esc.
	done   bool
	status string
	err    error
}

func NewImportModel(api *client.Client) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".tsv", ".txt"}
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{api: api, picker: fp}
}

func (m ImportModel) Title() string { return "Import Transactions" }

func (m ImportModel) ShortHelp() string {
	if m.review != nil && !m.done {
		return "Space: keep/skip | a: keep all | n: skip all | Enter: import | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.picker.Init()
}

type importDoneMsg struct {
	imported int
	review   *conflictReview
	err      error
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case importDoneMsg:
		m.busy = false

		if msg.review != nil {
			m.review = msg.review
			m.reviewL = msg.review.list()

			return m, nil
		}

		m.done = true
		m.err = msg.err

		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, expired(msg.err)
		}

		m.status = fmt.Sprintf("Imported %d transactions.", msg.imported)

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.back()
		}

		if m.busy || m.done {
			return m, nil
		}

		if m.review != nil {
			return m.updateReview(msg)
		}
	}

	if m.busy || m.done || m.review != nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.busy = true
		m.status = fmt.Sprintf("Uploading %s...", path)

		return m, m.uploadCmd(path)
	}

	return m, cmd
}

// back unwinds one step: outcome or review returns to the picker, the picker
// returns to the menu.
func (m ImportModel) back() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	if !m.done && m.review == nil {
		return m, Back
	}

	m.done = false
	m.review = nil
	m.status = ""
	m.err = nil

	return m, m.picker.Init()
}

func (m ImportModel) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		m.review.toggle(m.reviewL.Index())
		return m, nil
	case "a":
		m.review.keepAll(true)
		return m, nil
	case "n":
		m.review.keepAll(false)
		return m, nil
	case "enter":
		m.busy = true
		m.status = "Importing..."

		return m, m.confirmCmd(m.review.rows())
	}

	var cmd tea.Cmd
	m.reviewL, cmd = m.reviewL.Update(msg)

	return m, cmd
}

func (m ImportModel) uploadCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importDoneMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		res, err := m.api.ImportCSV(ctx, path, f)
		if err != nil {
			return importDoneMsg{err: err}
		}

		if len(res.Conflicts) > 0 {
			return importDoneMsg{review: newConflictReview(res)}
		}

		return importDoneMsg{imported: res.Imported}
	}
}

func (m ImportModel) confirmCmd(rows []client.Row) tea.Cmd {
	return func() tea.Msg {
		if len(rows) == 0 {
			return importDoneMsg{}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		n, err := m.api.ConfirmImport(ctx, rows)

		return importDoneMsg{imported: n, err: err}
	}
}

func (m ImportModel) View() string {
	pad := lipgloss.NewStyle().Padding(1)

	switch {
	case m.busy:
		return pad.Padding(2).Render(m.status)
	case m.done && m.err != nil:
		return pad.Padding(2).Render(errorStyle.Render(m.status) + "\n\n(Esc to go back)")
	case m.done:
		return pad.Padding(2).Render(successStyle.Render(m.status) + "\n\n(Esc to go back)")
	case m.review != nil:
		return pad.Render(m.reviewL.View() + "\n" + faintStyle.Render("Kept duplicates are imported anyway."))
	}

	return pad.Render("Select a CSV statement to import:\n\n" + m.picker.View())
}

type conflictItem struct {
	client.Conflict
	index int
}

func (i conflictItem) FilterValue() string { return i.Incoming.Description }

type conflictDelegate struct {
	keep map[int]bool
}

func (d conflictDelegate) Height() int                         { return 2 }
func (d conflictDelegate) Spacing() int                        { return 1 }
func (d conflictDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d conflictDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(conflictItem)
	if !ok {
		return
	}

	mark := "[ ]"
	if d.keep[c.index] {
		mark = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	in, ex := c.Incoming, c.Existing

	fmt.Fprintf(w, "%s%s %s  %10s  %s [%s]\n", cursor, mark, in.Date, FormatSigned(in.Amount, in.Type), in.Description, in.Category)
	fmt.Fprintf(w, "      matches %s  %10s  %s [%s]", ex.Date, FormatSigned(ex.Amount, ex.Type), ex.Description, ex.Category)
}
