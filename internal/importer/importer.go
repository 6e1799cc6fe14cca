// Package importer turns uploaded CSV files into transaction params.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/encoding"
	"github.com/MrJamesThe3rd/finsight/internal/transaction"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

// DefaultCategory is used for rows that carry no category and have no
// learned suggestion.
const DefaultCategory = "Uncategorized"

var (
	ErrEmptyFile = validate.Field("file", "is empty")
	ErrNoHeader  = validate.Field("file", "no header row with date, description and amount (or type, or debit/credit) columns")
)

// dateLayouts are tried in order. Slash and dash numeric dates are read day
// first.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
}

// Parser reads CSV exports and produces transaction params. The delimiter
// (comma, semicolon or tab) and the column layout are detected from the
// header row.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, charset, err := encoding.ToUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, validate.Field("file", fmt.Sprintf("malformed CSV: %v", err))
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, ErrNoHeader
	}

	slog.Debug("parsing csv upload", "charset", charset, "profile", profile.Name, "rows", len(rows)-headerIdx-1)

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

// detectDelimiter picks the separator that occurs most often on the first
// non-blank line.
func detectDelimiter(data []byte) rune {
	line := data
	for len(line) > 0 {
		end := bytes.IndexByte(line, '\n')
		if end < 0 {
			break
		}

		if len(bytes.TrimSpace(line[:end])) > 0 {
			line = line[:end]
			break
		}

		line = line[end+1:]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, c := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}

	return best
}

// colIndex maps canonical column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header that matches a known profile and
// returns it with the column map and header row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name, ok := aliases[strings.ToLower(strings.TrimSpace(cell))]
			if !ok {
				continue
			}

			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows converts data rows. Blank rows are skipped; every other
// problem is reported with its 1-based line number and nothing is returned.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]transaction.CreateParams, error) {
	var (
		txs    []transaction.CreateParams
		fields []validate.FieldError
	)

	for i, row := range rows {
		rowNum := headerRowNum + i + 1

		if blank(row) {
			continue
		}

		params, problems := parseRow(p, cols, row)
		for _, msg := range problems {
			fields = append(fields, validate.FieldError{Field: fmt.Sprintf("row %d", rowNum), Message: msg})
		}

		if len(problems) == 0 {
			txs = append(txs, params)
		}
	}

	if len(fields) > 0 {
		return nil, &validate.Error{Fields: fields}
	}

	return txs, nil
}

func parseRow(p *Profile, cols colIndex, row []string) (transaction.CreateParams, []string) {
	var problems []string

	params := transaction.CreateParams{
		Description: cell(row, cols, colDescription),
		Category:    cell(row, cols, colCategory),
		Notes:       cell(row, cols, colNotes),
		Tags:        splitTags(cell(row, cols, colTags)),
	}

	date, err := parseDate(cell(row, cols, colDate))
	if err != nil {
		problems = append(problems, err.Error())
	}

	params.Date = date

	if params.Description == "" {
		problems = append(problems, "missing description")
	}

	amount, typ, msg := rowAmount(p, cols, row)
	if msg != "" {
		problems = append(problems, msg)
	}

	params.Amount = amount
	params.Type = typ

	return params, problems
}

// rowAmount returns the positive amount and the type, or a problem message.
func rowAmount(p *Profile, cols colIndex, row []string) (decimal.Decimal, transaction.Type, string) {
	switch p.AmountMode {
	case amountTyped:
		amount, err := parseAmount(cell(row, cols, colAmount))
		if err != nil {
			return decimal.Zero, "", "amount: " + err.Error()
		}

		raw := cell(row, cols, colType)

		typ, ok := transaction.ParseType(raw)
		if !ok {
			return decimal.Zero, "", fmt.Sprintf("type %q must be income or expense", raw)
		}

		if amount.IsZero() {
			return decimal.Zero, "", "amount must be greater than 0"
		}

		return amount.Abs(), typ, ""
	case amountSplit:
		if s := cell(row, cols, colDebit); s != "" {
			d, err := parseAmount(s)
			if err == nil && !d.IsZero() {
				return d.Abs(), transaction.TypeExpense, ""
			}
		}

		if s := cell(row, cols, colCredit); s != "" {
			d, err := parseAmount(s)
			if err == nil && !d.IsZero() {
				return d.Abs(), transaction.TypeIncome, ""
			}
		}

		return decimal.Zero, "", "debit or credit must be a non-zero number"
	case amountSigned:
		d, err := parseAmount(cell(row, cols, colAmount))
		if err != nil {
			return decimal.Zero, "", "amount: " + err.Error()
		}

		if d.IsZero() {
			return decimal.Zero, "", "amount must not be 0"
		}

		if d.IsNegative() {
			return d.Neg(), transaction.TypeExpense, ""
		}

		return d, transaction.TypeIncome, ""
	}

	return decimal.Zero, "", "unsupported layout"
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return transaction.Day(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("date %q is not a recognised date", s)
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' || r == ';' })

	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}

	return tags
}

// cell safely gets a trimmed cell value by canonical column name.
func cell(row []string, cols colIndex, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}
