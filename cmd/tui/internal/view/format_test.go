package view

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/finsight/cmd/tui/internal/client"
)

func TestFormatSigned(t *testing.T) {
	d := decimal.RequireFromString("12.5")

	assert.Equal(t, "-12.50", FormatSigned(d, "expense"))
	assert.Equal(t, "+12.50", FormatSigned(d, "income"))
}

func TestBar(t *testing.T) {
	peak := decimal.NewFromInt(200)

	assert.Equal(t, "", bar(decimal.Zero, peak))
	assert.Equal(t, "", bar(decimal.NewFromInt(5), decimal.Zero))
	assert.Len(t, []rune(bar(peak, peak)), barWidth)
	assert.Len(t, []rune(bar(decimal.NewFromInt(100), peak)), barWidth/2)
	assert.Len(t, []rune(bar(decimal.RequireFromString("0.01"), peak)), 1)
}

func TestExpired(t *testing.T) {
	assert.Nil(t, expired(nil))
	assert.Nil(t, expired(&client.APIError{Status: 400, Message: "bad"}))

	cmd := expired(fmt.Errorf("%w: token expired", client.ErrUnauthorized))
	if assert.NotNil(t, cmd) {
		assert.IsType(t, SessionExpiredMsg{}, cmd())
	}
}

func TestValidAmount(t *testing.T) {
	assert.NoError(t, validAmount(" 10.50 "))
	assert.NoError(t, validAmount("0"))
	assert.EqualError(t, validAmount("-1"), "must be zero or more")
	assert.EqualError(t, validAmount("abc"), "not a number")
}
