// Package csvload imports rule tables from spreadsheet CSV exports. The sheet
// kind is detected from its header row, so any of the supported tables can
// be uploaded through the same entry point.
package csvload

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/encoding"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

// Result is one decoded sheet.
type Result struct {
	Table   Table
	Charset encoding.Charset
	Rows    int
	Tables  rules.Tables // only the detected table is populated
}

// Parse decodes a rule sheet. Comma, semicolon and tab delimiters are accepted.
func Parse(r io.Reader) (Result, error) {
	utf8r, cs, err := encoding.Decode(r)
	if err != nil {
		return Result{}, fmt.Errorf("detecting encoding: %w", err)
	}

	br := bufio.NewReader(utf8r)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("reading csv: %w", err)
	}

	p, cols, headerIdx := detect(rows)
	if p == nil {
		return Result{}, fmt.Errorf("%w: no known rule sheet header found", tax.ErrInvalidInput)
	}

	res := Result{Table: p.table, Charset: cs}

	for i, row := range rows[headerIdx+1:] {
		if blank(row) {
			continue
		}

		rc := rowCursor{row: row, cols: cols, num: headerIdx + i + 2}
		if err := appendRow(&res.Tables, p.table, &rc); err != nil {
			return Result{}, err
		}

		res.Rows++
	}

	return res, nil
}

// sniffDelimiter picks the most frequent candidate in the buffered head of
// the input; title rows above the header rarely contain any.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())

	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(string(head), string(d)); n > bestN {
			best, bestN = d, n
		}
	}

	return best
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}

func appendRow(t *rules.Tables, table Table, rc *rowCursor) error {
	switch table {
	case TableTransactionCodes:
		r := rules.TransactionCodeRule{
			Code:             rc.str("code"),
			Description:      rc.str("description"),
			Classification:   rc.str("classification"),
			AffectsBalance:   rc.boolean("affects balance"),
			AffectsCSED:      rc.boolean("affects csed"),
			CollectionAction: rc.boolean("collection action"),
			OpensTolling:     rc.boolean("opens tolling"),
			ClosesTolling:    rc.boolean("closes tolling"),
		}
		t.TransactionCodes = append(t.TransactionCodes, r)

	case TableIncomeForms:
		r := rules.IncomeFormRule{
			FormCode:       rc.str("form code"),
			Category:       rc.str("category"),
			SelfEmployment: rc.boolean("self employment"),
			Excluded:       rc.boolean("excluded"),
		}
		t.IncomeForms = append(t.IncomeForms, r)

	case TableTaxBrackets:
		b := rules.TaxBracket{
			Year:         rc.integer("year"),
			FilingStatus: filingStatus(rc.str("filing status")),
			Floor:        rc.amount("floor"),
			Ceiling:      rc.optionalAmount("ceiling"),
			Rate:         rc.rate("rate"),
		}
		t.TaxBrackets = append(t.TaxBrackets, b)

	case TableStandardDeductions:
		d := rules.StandardDeduction{
			Year:         rc.integer("year"),
			FilingStatus: filingStatus(rc.str("filing status")),
			Amount:       rc.amount("amount"),
		}
		t.StandardDeductions = append(t.StandardDeductions, d)

	case TableCollectionStandards:
		c := rules.CollectionStandard{
			Category:            rc.str("category"),
			HouseholdSize:       rc.integer("household size"),
			State:               rc.str("state"),
			County:              rc.str("county"),
			Amount:              rc.amount("amount"),
			AdditionalPerPerson: rc.amount("additional per person"),
		}
		t.CollectionStandards = append(t.CollectionStandards, c)
	}

	return rc.err
}

// filingStatus accepts both the stored keys and the labels printed on IRS tables.
func filingStatus(s string) tax.FilingStatus {
	switch headerKey(s) {
	case "married filing jointly", "mfj", "married joint":
		return tax.FilingMarriedJoint
	case "married filing separately", "mfs", "married separate":
		return tax.FilingMarriedSeparate
	case "head of household", "hoh":
		return tax.FilingHeadOfHousehold
	case "qualifying widow", "qualifying widow(er)", "qualifying surviving spouse", "qw":
		return tax.FilingQualifyingWidow
	case "single", "s":
		return tax.FilingSingle
	}

	return tax.FilingStatus(strings.ReplaceAll(headerKey(s), " ", "_"))
}

// rowCursor reads typed cells from one data row and keeps the first error.
type rowCursor struct {
	row  []string
	cols colIndex
	num  int
	err  error
}

func (rc *rowCursor) str(col string) string {
	idx, ok := rc.cols[col]
	if !ok || idx >= len(rc.row) {
		return ""
	}

	return strings.TrimSpace(rc.row[idx])
}

func (rc *rowCursor) fail(col, value string, err error) {
	if rc.err == nil {
		rc.err = fmt.Errorf("%w: row %d column %q value %q: %v", tax.ErrInvalidInput, rc.num, col, value, err)
	}
}

func (rc *rowCursor) integer(col string) int {
	s := rc.str(col)

	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		rc.fail(col, s, err)
	}

	return n
}

func (rc *rowCursor) boolean(col string) bool {
	switch strings.ToLower(rc.str(col)) {
	case "y", "yes", "true", "x", "1":
		return true
	}

	return false
}

func (rc *rowCursor) amount(col string) decimal.Decimal {
	s := rc.str(col)
	if s == "" {
		return decimal.Zero
	}

	d, err := parseUSAmount(s)
	if err != nil {
		rc.fail(col, s, err)
	}

	return d
}

func (rc *rowCursor) optionalAmount(col string) *decimal.Decimal {
	s := rc.str(col)
	if s == "" || s == "-" || strings.EqualFold(s, "and over") {
		return nil
	}

	d := rc.amount(col)

	return &d
}

// rate accepts "22%" as well as "0.22".
func (rc *rowCursor) rate(col string) decimal.Decimal {
	s := rc.str(col)
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			rc.fail(col, s, err)
		}

		return d.Div(decimal.NewFromInt(100))
	}

	return rc.amount(col)
}
