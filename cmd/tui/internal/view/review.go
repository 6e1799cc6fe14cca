package view

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

const (
	uncategorized = "Uncategorized"
	reviewBatch   = 100
)

// ReviewModel walks through uncategorized transactions, pre-filling each with
// the category suggested by the user's rules.
type ReviewModel struct {
	CommonModel
	api *client.Client

	state reviewState

	queue      []client.Transaction
	current    *client.Transaction
	suggestion string
	learn      bool

	categoryInput textinput.Model

	status     string
	totalCount int
	reviewed   int
}

type reviewState int

const (
	reviewStateLoading reviewState = iota
	reviewStateReviewing
	reviewStateDone
)

func NewReviewModel(api *client.Client) ReviewModel {
	ti := textinput.New()
	ti.Placeholder = "Category"
	ti.CharLimit = 100
	ti.Width = 40

	return ReviewModel{
		api:           api,
		categoryInput: ti,
		learn:         true,
		state:         reviewStateLoading,
	}
}

func (m ReviewModel) Title() string { return "Review Categories" }
func (m ReviewModel) ShortHelp() string {
	return "Enter: save & next | Tab: skip | Ctrl+L: toggle rule learning | Esc: back"
}

func (m ReviewModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "ctrl+l":
			m.learn = !m.learn
			return m, nil
		case "tab":
			if m.state == reviewStateReviewing {
				return m.next()
			}
		case "enter":
			if m.state == reviewStateReviewing && m.current != nil {
				category := strings.TrimSpace(m.categoryInput.Value())
				if category == "" {
					m.status = "Category cannot be empty."
					return m, nil
				}

				return m, m.saveCmd(*m.current, category, m.learn && category != m.suggestion)
			}
		}

	case loadReviewMsg:
		if msg.err != nil {
			m.state = reviewStateDone
			m.status = fmt.Sprintf("Error loading transactions: %v", msg.err)
			return m, expired(msg.err)
		}

		m.queue = msg.txs
		m.totalCount = len(m.queue)

		return m.next()

	case suggestMsg:
		if m.current == nil || msg.id != m.current.ID {
			return m, nil
		}

		m.suggestion = msg.category
		if msg.category != "" && m.categoryInput.Value() == "" {
			m.categoryInput.SetValue(msg.category)
			m.categoryInput.CursorEnd()
		}

		return m, nil

	case reviewSaveMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
			return m, expired(msg.err)
		}

		m.reviewed++

		return m.next()
	}

	if m.state == reviewStateReviewing {
		m.categoryInput, cmd = m.categoryInput.Update(msg)
	}

	return m, cmd
}

func (m ReviewModel) next() (tea.Model, tea.Cmd) {
	if len(m.queue) == 0 {
		m.current = nil
		m.state = reviewStateDone
		m.categoryInput.Blur()
		m.status = fmt.Sprintf("All done! %d of %d categorized.", m.reviewed, m.totalCount)

		return m, nil
	}

	tx := m.queue[0]
	m.queue = m.queue[1:]
	m.current = &tx
	m.suggestion = ""
	m.state = reviewStateReviewing
	m.status = fmt.Sprintf("Reviewing %d/%d", m.totalCount-len(m.queue), m.totalCount)
	m.categoryInput.SetValue("")
	m.categoryInput.Focus()

	return m, tea.Batch(textinput.Blink, m.suggestCmd(tx))
}

func (m ReviewModel) View() string {
	var content string

	switch m.state {
	case reviewStateLoading:
		content = "Loading uncategorized transactions..."
	case reviewStateDone:
		content = m.status + "\n\n(Esc to back)"
	case reviewStateReviewing:
		tx := m.current

		learn := "off"
		if m.learn {
			learn = "on"
		}

		suggestion := faintStyle.Render("no matching rule")
		if m.suggestion != "" {
			suggestion = activeStyle(m.suggestion)
		}

		info := fmt.Sprintf(
			"Date:        %s\nAmount:      %s\nDescription: %s\nSuggestion:  %s\n",
			tx.Date,
			FormatSigned(tx.Amount, tx.Type),
			tx.Description,
			suggestion,
		)

		content = fmt.Sprintf("%s\n\n%s\nCategory:\n%s\n\n%s",
			m.status, info, m.categoryInput.View(),
			faintStyle.Render("Learn rule from corrections: "+learn))
	}

	return lipgloss.NewStyle().Padding(2).Render(content)
}

type loadReviewMsg struct {
	txs []client.Transaction
	err error
}

func (m ReviewModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		page, err := m.api.Transactions(ctx, client.ListQuery{Category: uncategorized, Limit: reviewBatch})
		if err != nil {
			return loadReviewMsg{err: err}
		}

		return loadReviewMsg{txs: page.Transactions}
	}
}

type suggestMsg struct {
	id       uuid.UUID
	category string
}

// suggestCmd swallows errors: a missing suggestion only leaves the input empty.
func (m ReviewModel) suggestCmd(tx client.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		category, _ := m.api.SuggestCategory(ctx, tx.Description)

		return suggestMsg{id: tx.ID, category: category}
	}
}

type reviewSaveMsg struct {
	err error
}

func (m ReviewModel) saveCmd(tx client.Transaction, category string, learn bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		if learn {
			if err := learnRule(ctx, m.api, tx.Description, category); err != nil {
				return reviewSaveMsg{err: err}
			}
		}

		err := m.api.UpdateTransaction(ctx, tx.ID, client.TransactionUpdate{Category: &category})

		return reviewSaveMsg{err: err}
	}
}

// learnRule saves a pattern rule. A conflicting rule is left as it is.
func learnRule(ctx context.Context, api *client.Client, pattern, category string) error {
	err := api.LearnCategory(ctx, pattern, category)

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return nil
	}

	return err
}
