package csvload

import "strings"

// Table identifies which rule table a sheet carries.
type Table string

const (
	TableTransactionCodes    Table = "transaction_codes"
	TableIncomeForms         Table = "income_forms"
	TableTaxBrackets         Table = "tax_brackets"
	TableStandardDeductions  Table = "standard_deductions"
	TableCollectionStandards Table = "collection_standards"
)

// profile describes the header layout of one rule sheet. Optional columns may
// be absent; their fields keep the zero value.
type profile struct {
	table    Table
	required []string
	optional []string
}

// Ordered from most to least specific: the deductions sheet is a subset of
// the brackets sheet's columns.
var profiles = []profile{
	{
		table:    TableTaxBrackets,
		required: []string{"year", "filing status", "floor", "rate"},
		optional: []string{"ceiling"},
	},
	{
		table:    TableStandardDeductions,
		required: []string{"year", "filing status", "amount"},
	},
	{
		table:    TableCollectionStandards,
		required: []string{"category", "household size", "amount"},
		optional: []string{"state", "county", "additional per person"},
	},
	{
		table:    TableTransactionCodes,
		required: []string{"code", "description"},
		optional: []string{
			"classification", "affects balance", "affects csed",
			"collection action", "opens tolling", "closes tolling",
		},
	},
	{
		table:    TableIncomeForms,
		required: []string{"form code", "category"},
		optional: []string{"self employment", "excluded"},
	},
}

// headerKey folds "Filing_Status", "filing-status " and "Filing Status" together.
func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

type colIndex map[string]int

func (p profile) matches(cols colIndex) bool {
	for _, name := range p.required {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// detect scans rows for the first header that matches a known profile and
// returns it with its column index and row position.
func detect(rows [][]string) (*profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex, len(row))

		for i, cell := range row {
			if k := headerKey(cell); k != "" {
				cols[k] = i
			}
		}

		for i := range profiles {
			if profiles[i].matches(cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}
