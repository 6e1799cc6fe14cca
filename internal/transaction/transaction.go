package transaction

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

var (
	ErrNotFound = errors.New("transaction not found")

	ErrInvalidRange = validate.Field("startDate", "must not be after endDate")
	ErrInvalidYear  = validate.Field("year", "must be between 1900 and 9999")
)

// Type is the direction of a transaction. Amounts are always positive.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// ParseType accepts any casing, as produced by spreadsheet exports.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Type        Type
	Description string
	Category    string
	Date        time.Time
	Notes       string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Column widths of the transactions table.
const (
	MaxDescriptionLen = 255
	MaxCategoryLen    = 100
)

type CreateParams struct {
	Amount      decimal.Decimal
	Type        Type
	Description string
	Category    string
	Date        time.Time
	Notes       string
	Tags        []string
}

// Validate enforces the row invariants that the request layer may not have
// checked, e.g. for rows parsed from an uploaded file.
func (p CreateParams) Validate() error {
	var fields []validate.FieldError

	switch {
	case !p.Amount.IsPositive():
		fields = append(fields, validate.FieldError{Field: "amount", Message: "must be greater than 0"})
	case validate.Money(p.Amount) != "":
		fields = append(fields, validate.FieldError{Field: "amount", Message: validate.Money(p.Amount)})
	}

	if !p.Type.Valid() {
		fields = append(fields, validate.FieldError{Field: "type", Message: "must be one of: income, expense"})
	}

	fields = appendText(fields, "description", p.Description, MaxDescriptionLen)
	fields = appendText(fields, "category", p.Category, MaxCategoryLen)

	if len(fields) > 0 {
		return &validate.Error{Fields: fields}
	}

	return nil
}

func appendText(fields []validate.FieldError, name, value string, limit int) []validate.FieldError {
	value = strings.TrimSpace(value)

	switch {
	case value == "":
		return append(fields, validate.FieldError{Field: name, Message: "is required"})
	case utf8.RuneCountInString(value) > limit:
		return append(fields, validate.FieldError{Field: name, Message: fmt.Sprintf("must be at most %d characters", limit)})
	}

	return fields
}

// UpdateParams holds a partial update; nil fields keep their stored value.
type UpdateParams struct {
	Amount      *decimal.Decimal
	Type        *Type
	Description *string
	Category    *string
	Date        *time.Time
	Notes       *string
	Tags        []string
}

func (p UpdateParams) apply(tx *Transaction) {
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}

	if p.Type != nil {
		tx.Type = *p.Type
	}

	if p.Description != nil {
		tx.Description = *p.Description
	}

	if p.Category != nil {
		tx.Category = *p.Category
	}

	if p.Date != nil {
		tx.Date = *p.Date
	}

	if p.Notes != nil {
		tx.Notes = *p.Notes
	}

	if p.Tags != nil {
		tx.Tags = p.Tags
	}
}

// DateRange bounds are inclusive calendar days; either may be nil.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return ErrInvalidRange
	}

	return nil
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func prefixFields(err error, prefix string) error {
	var verr *validate.Error
	if !errors.As(err, &verr) {
		return err
	}

	out := &validate.Error{Fields: make([]validate.FieldError, 0, len(verr.Fields))}
	for _, f := range verr.Fields {
		out.Fields = append(out.Fields, validate.FieldError{Field: prefix + f.Field, Message: f.Message})
	}

	return out
}
