package csvload_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/rules/csvload"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParse_TaxBrackets(t *testing.T) {
	sheet := `2024 Federal Income Tax Brackets
Source: Rev. Proc. 2023-34

Year,Filing Status,Floor,Ceiling,Rate
2024,Single,$0,"$11,600",10%
2024,Single,"$11,600","$47,150",12%
2024,Single,"$47,150",,22%
`

	res, err := csvload.Parse(strings.NewReader(sheet))
	require.NoError(t, err)

	assert.Equal(t, csvload.TableTaxBrackets, res.Table)
	assert.Equal(t, 3, res.Rows)
	require.Len(t, res.Tables.TaxBrackets, 3)

	first := res.Tables.TaxBrackets[0]
	assert.Equal(t, 2024, first.Year)
	assert.Equal(t, tax.FilingSingle, first.FilingStatus)
	assert.True(t, first.Floor.IsZero())
	require.NotNil(t, first.Ceiling)
	assert.True(t, dec("11600").Equal(*first.Ceiling))
	assert.True(t, dec("0.1").Equal(first.Rate))

	assert.Nil(t, res.Tables.TaxBrackets[2].Ceiling)

	_, err = rules.NewSet(res.Tables)
	assert.NoError(t, err)
}

func TestParse_CollectionStandardsSemicolon(t *testing.T) {
	sheet := "Category;Household_Size;State;County;Amount;Additional Per Person\n" +
		"housing_utilities;1;CA;Los Angeles;2,513;\n" +
		"food;4;;;1,155.00;262\n" +
		"\n"

	res, err := csvload.Parse(strings.NewReader(sheet))
	require.NoError(t, err)

	assert.Equal(t, csvload.TableCollectionStandards, res.Table)
	require.Len(t, res.Tables.CollectionStandards, 2)

	housing := res.Tables.CollectionStandards[0]
	assert.Equal(t, "CA", housing.State)
	assert.Equal(t, "Los Angeles", housing.County)
	assert.True(t, dec("2513").Equal(housing.Amount))

	food := res.Tables.CollectionStandards[1]
	assert.Equal(t, 4, food.HouseholdSize)
	assert.True(t, dec("262").Equal(food.AdditionalPerPerson))
}

func TestParse_TransactionCodes(t *testing.T) {
	sheet := "Code,Description,Classification,Affects Balance,Affects CSED,Opens Tolling,Closes Tolling\n" +
		"520,Bankruptcy filed,tolling,,Y,Y,\n" +
		"521,Bankruptcy discharged,tolling,,yes,,x\n" +
		"670,Payment,payment,TRUE,,,\n"

	res, err := csvload.Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, res.Tables.TransactionCodes, 3)

	assert.True(t, res.Tables.TransactionCodes[0].OpensTolling)
	assert.False(t, res.Tables.TransactionCodes[0].AffectsBalance)
	assert.True(t, res.Tables.TransactionCodes[1].ClosesTolling)
	assert.True(t, res.Tables.TransactionCodes[2].AffectsBalance)
}

func TestParse_StandardDeductionsIRSLabels(t *testing.T) {
	sheet := "Year,Filing Status,Amount\n" +
		"2024,Married Filing Jointly,\"$29,200\"\n" +
		"2024,Head of Household,\"$21,900\"\n" +
		"2024,Qualifying Surviving Spouse,\"$29,200\"\n"

	res, err := csvload.Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, res.Tables.StandardDeductions, 3)

	assert.Equal(t, tax.FilingMarriedJoint, res.Tables.StandardDeductions[0].FilingStatus)
	assert.Equal(t, tax.FilingHeadOfHousehold, res.Tables.StandardDeductions[1].FilingStatus)
	assert.Equal(t, tax.FilingQualifyingWidow, res.Tables.StandardDeductions[2].FilingStatus)
}

func TestParse_Errors(t *testing.T) {
	type testCase struct {
		name  string
		sheet string
	}

	tests := []testCase{
		{name: "UnknownHeader", sheet: "Date,Memo,Total\n2024-01-01,x,1\n"},
		{name: "BadYear", sheet: "Year,Filing Status,Amount\ntwenty,single,100\n"},
		{name: "BadAmount", sheet: "Year,Filing Status,Amount\n2024,single,lots\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := csvload.Parse(strings.NewReader(tt.sheet))
			assert.ErrorIs(t, err, tax.ErrInvalidInput)
		})
	}
}
