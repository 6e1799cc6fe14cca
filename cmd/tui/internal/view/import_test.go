package view

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

func sampleReview() *conflictReview {
	return newConflictReview(&client.ImportResult{
		New: []client.Row{{Description: "Salary"}},
		Conflicts: []client.Conflict{
			{Incoming: client.Row{Description: "Coffee"}},
			{Incoming: client.Row{Description: "Rent"}},
		},
	})
}

func descriptions(rows []client.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Description
	}

	return out
}

func TestConflictReview_Rows(t *testing.T) {
	r := sampleReview()
	assert.Equal(t, []string{"Salary"}, descriptions(r.rows()))

	r.toggle(1)
	assert.Equal(t, []string{"Salary", "Rent"}, descriptions(r.rows()))

	r.keepAll(true)
	assert.Equal(t, []string{"Salary", "Coffee", "Rent"}, descriptions(r.rows()))

	r.keepAll(false)
	r.toggle(0)
	r.toggle(0)
	assert.Equal(t, []string{"Salary"}, descriptions(r.rows()))
}

func TestImportModel_ReviewThenConfirm(t *testing.T) {
	m := NewImportModel(client.New("http://127.0.0.1:0", 0))

	next, _ := m.Update(importDoneMsg{review: sampleReview()})
	m = next.(ImportModel)
	require.NotNil(t, m.review)
	assert.Contains(t, m.View(), "1 new, 2 possible duplicates")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	m = next.(ImportModel)
	assert.Len(t, m.review.rows(), 3)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ImportModel)
	assert.True(t, m.busy)
	assert.NotNil(t, cmd)

	next, _ = m.Update(importDoneMsg{imported: 3})
	m = next.(ImportModel)
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "Imported 3 transactions.")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(ImportModel)
	assert.False(t, m.done)
	assert.Nil(t, m.review)
}

func TestImportModel_Error(t *testing.T) {
	m := NewImportModel(client.New("http://127.0.0.1:0", 0))

	next, cmd := m.Update(importDoneMsg{err: errors.New("boom")})
	m = next.(ImportModel)

	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Error: boom")
}

func TestImportModel_EscFromPickerGoesBack(t *testing.T) {
	m := NewImportModel(client.New("http://127.0.0.1:0", 0))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, BackMsg{}, cmd())
}
