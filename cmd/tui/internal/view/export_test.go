package view

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

func TestSaveExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csv", r.URL.Query().Get("format"))

		w.Header().Set("Content-Disposition", `attachment; filename="transactions_20250301.csv"`)
		_, _ = io.WriteString(w, "date,amount\n")
	}))
	t.Cleanup(srv.Close)

	dir := filepath.Join(t.TempDir(), "out")
	api := client.New(srv.URL, 5*time.Second)

	path, err := saveExport(t.Context(), api, exportOptions{format: "csv", dir: dir}, client.Range{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "transactions_20250301.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,amount\n", string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not survive")
}

func TestSaveExport_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid format"}`)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()

	_, err := saveExport(t.Context(), client.New(srv.URL, 5*time.Second), exportOptions{format: "pdf", dir: dir}, client.Range{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportModel_Flow(t *testing.T) {
	m := NewExportModel(client.New("http://127.0.0.1:0", time.Second))

	next, cmd := m.Update(TimeframeSelectedMsg{Label: "All Time"})
	m = next.(ExportModel)
	require.NotNil(t, m.form)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "All Time")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(ExportModel)
	assert.Nil(t, m.form)

	next, _ = m.Update(exportDoneMsg{path: "exports/transactions.csv"})
	m = next.(ExportModel)
	assert.Contains(t, m.View(), "Saved to exports/transactions.csv")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, BackMsg{}, cmd())
}
