package importer

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountTyped means a positive amount column plus a type column.
	amountTyped amountMode = iota
	// amountSplit means separate debit and credit columns.
	amountSplit
	// amountSigned means one signed column; negative values are expenses.
	amountSigned
)

// Profile describes a CSV column layout. Column names are canonical, see
// aliases.
type Profile struct {
	Name       string
	AmountMode amountMode
}

func (p Profile) requiredCols() []string {
	cols := []string{colDate, colDescription}

	switch p.AmountMode {
	case amountTyped:
		cols = append(cols, colAmount, colType)
	case amountSplit:
		cols = append(cols, colDebit, colCredit)
	case amountSigned:
		cols = append(cols, colAmount)
	}

	return cols
}

// profiles is tried in order; more specific layouts come first.
var profiles = []Profile{
	{Name: "typed", AmountMode: amountTyped},
	{Name: "split", AmountMode: amountSplit},
	{Name: "signed", AmountMode: amountSigned},
}

const (
	colDate        = "date"
	colDescription = "description"
	colAmount      = "amount"
	colType        = "type"
	colDebit       = "debit"
	colCredit      = "credit"
	colCategory    = "category"
	colNotes       = "notes"
	colTags        = "tags"
)

// aliases maps lower-cased header cells to canonical column names.
var aliases = map[string]string{
	"date":             colDate,
	"transaction date": colDate,
	"booking date":     colDate,
	"description":      colDescription,
	"memo":             colDescription,
	"details":          colDescription,
	"payee":            colDescription,
	"amount":           colAmount,
	"value":            colAmount,
	"type":             colType,
	"debit":            colDebit,
	"withdrawal":       colDebit,
	"credit":           colCredit,
	"deposit":          colCredit,
	"category":         colCategory,
	"notes":            colNotes,
	"note":             colNotes,
	"tags":             colTags,
}
