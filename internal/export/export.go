// Package export writes a user's transactions as CSV or XLSX.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/finsight/internal/transaction"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnknownFormat = validate.Field("format", "must be one of: csv, xlsx")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}

	return "", ErrUnknownFormat
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	return "text/csv; charset=utf-8"
}

// Filename is the download name for an export taken at t.
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("transactions_%s.%s", t.Format("20060102"), f)
}

// Source yields every transaction of a user within a range.
type Source interface {
	All(ctx context.Context, userID uuid.UUID, r transaction.DateRange) ([]*transaction.Transaction, error)
}

// header matches a layout the CSV importer recognises, so exports can be
// re-imported.
var header = []string{"Date", "Description", "Category", "Type", "Amount", "Notes", "Tags"}

const sheetName = "Transactions"

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Export writes the user's transactions in r to w, oldest first.
func (s *Service) Export(ctx context.Context, w io.Writer, userID uuid.UUID, format Format, r transaction.DateRange) error {
	txs, err := s.source.All(ctx, userID, r)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	switch format {
	case FormatCSV:
		return writeCSV(w, txs)
	case FormatXLSX:
		return writeXLSX(w, txs)
	}

	return ErrUnknownFormat
}

func writeCSV(w io.Writer, txs []*transaction.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, tx := range txs {
		if err := cw.Write(record(tx)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

func record(tx *transaction.Transaction) []string {
	return []string{
		tx.Date.Format(time.DateOnly),
		tx.Description,
		tx.Category,
		string(tx.Type),
		tx.Amount.StringFixed(2),
		tx.Notes,
		strings.Join(tx.Tags, "|"),
	}
}

func writeXLSX(w io.Writer, txs []*transaction.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}

	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	for i, tx := range txs {
		row := i + 2

		values := []any{
			tx.Date.Format(time.DateOnly),
			tx.Description,
			tx.Category,
			string(tx.Type),
			tx.Amount.InexactFloat64(),
			tx.Notes,
			strings.Join(tx.Tags, "|"),
		}

		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}

	if len(txs) > 0 {
		last := fmt.Sprintf("E%d", len(txs)+1)
		if err := f.SetCellStyle(sheetName, "E2", last, moneyStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "B", 36)
	_ = f.SetColWidth(sheetName, "C", "C", 18)
	_ = f.SetColWidth(sheetName, "E", "E", 12)
	_ = f.SetColWidth(sheetName, "F", "F", 30)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return nil
}
