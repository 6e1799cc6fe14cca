package view

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

const apiTimeout = 10 * time.Second

// FormatAmount renders a money amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatSigned prefixes expenses with a minus sign.
func FormatSigned(d decimal.Decimal, txType string) string {
	if txType == "expense" {
		return "-" + d.StringFixed(2)
	}

	return "+" + d.StringFixed(2)
}

// APICtx returns a context with a standard timeout for API calls.
func APICtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), apiTimeout)
}

// expired turns an auth failure into a SessionExpiredMsg so every view can
// hand control back to the login screen the same way.
func expired(err error) tea.Cmd {
	if !errors.Is(err, client.ErrUnauthorized) {
		return nil
	}

	return func() tea.Msg { return SessionExpiredMsg{} }
}
