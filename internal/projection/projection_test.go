package projection_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/taxres/internal/projection"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

var sampleCase = &tax.Case{CaseNumber: "1295022", PrimaryID: "tp", SpouseID: "sp"}

func wages(recipient, gross, withheld string) tax.IncomeDocument {
	return tax.IncomeDocument{
		FormType:    "W-2",
		Gross:       dec(gross),
		Withheld:    dec(withheld),
		RecipientID: recipient,
		Flags:       tax.IncomeFlags{Category: "wages"},
	}
}

func selfEmployment(recipient, gross string) tax.IncomeDocument {
	return tax.IncomeDocument{
		FormType:    "1099-NEC",
		Gross:       dec(gross),
		RecipientID: recipient,
		Flags:       tax.IncomeFlags{Category: "nonemployee_compensation", SelfEmployment: true},
	}
}

// flatSet has the three-band schedule used for the progressive checks and no
// standard deduction, so taxable income equals AGI.
func flatSet(t *testing.T) *rules.Set {
	t.Helper()

	set, err := rules.NewSet(rules.Tables{
		TaxBrackets: []rules.TaxBracket{
			{Year: 2030, FilingStatus: tax.FilingSingle, Floor: dec("0"), Ceiling: ptr(dec("10000")), Rate: dec("0.10")},
			{Year: 2030, FilingStatus: tax.FilingSingle, Floor: dec("10000"), Ceiling: ptr(dec("40000")), Rate: dec("0.12")},
			{Year: 2030, FilingStatus: tax.FilingSingle, Floor: dec("40000"), Rate: dec("0.22")},
		},
		StandardDeductions: []rules.StandardDeduction{
			{Year: 2030, FilingStatus: tax.FilingSingle, Amount: dec("0")},
		},
		IncomeForms: []rules.IncomeFormRule{
			{FormCode: "W-2", Category: "wages"},
			{FormCode: "1098", Category: "mortgage_interest", Excluded: true},
		},
	})
	require.NoError(t, err)

	return set
}

func year2030() tax.TaxYear {
	return tax.TaxYear{Year: 2030, FilingStatus: tax.FilingSingle}
}

func TestCompute_ProgressiveBrackets(t *testing.T) {
	docs := []tax.IncomeDocument{wages("tp", "50000", "5000")}

	p, err := projection.Compute(sampleCase, year2030(), docs, flatSet(t))
	require.NoError(t, err)

	assertDec(t, "50000", p.TaxableIncome)
	assertDec(t, "6800", p.IncomeTax)
	assert.False(t, p.IncomeTax.Equal(dec("11000")))
	assertDec(t, "1800", p.Balance)
	require.Len(t, p.Bands, 3)
	assertDec(t, "1000", p.Bands[0].Tax)
	assertDec(t, "3600", p.Bands[1].Tax)
	assertDec(t, "2200", p.Bands[2].Tax)
}

func TestCompute_StopsWhenIncomeExhausted(t *testing.T) {
	docs := []tax.IncomeDocument{wages("tp", "8000", "0")}

	p, err := projection.Compute(sampleCase, year2030(), docs, flatSet(t))
	require.NoError(t, err)

	assertDec(t, "800", p.IncomeTax)
	assert.Len(t, p.Bands, 1)
}

func TestSelfEmploymentTax(t *testing.T) {
	// 75000 × 0.9235 × 0.153 = 10597.1625
	got := projection.SelfEmploymentTax(dec("75000"))
	assertDec(t, "10597.1625", got)
	assertDec(t, "10597.16", got.Round(2))

	assert.True(t, projection.SelfEmploymentTax(dec("-100")).IsZero())
}

func TestCompute_SelfEmploymentPerOwner(t *testing.T) {
	docs := []tax.IncomeDocument{
		selfEmployment("tp", "75000"),
		selfEmployment("sp", "10000"),
		wages("sp", "20000", "2500"),
	}

	p, err := projection.Compute(sampleCase, year2030(), docs, flatSet(t))
	require.NoError(t, err)

	assertDec(t, "75000", p.Taxpayer.SEIncome)
	assertDec(t, "10597.16", p.Taxpayer.SETax)
	assertDec(t, "30000", p.Spouse.Income)
	assertDec(t, "1412.96", p.Spouse.SETax) // 1412.955 rounds half away from zero
	assertDec(t, "12010.12", p.SETax)
	assertDec(t, "2500", p.Spouse.Withholding)

	// AGI = 105000 − 85000 × 0.0765
	assertDec(t, "98497.5", p.AGI)
	assertDec(t, "105000", p.TotalIncome)
	assertDec(t, "85000", p.SEIncome)
}

func TestCompute_RefundKeepsSign(t *testing.T) {
	docs := []tax.IncomeDocument{wages("tp", "20000", "4000")}

	p, err := projection.Compute(sampleCase, year2030(), docs, flatSet(t))
	require.NoError(t, err)

	// 1000 + 10000 × 0.12 = 2200
	assertDec(t, "2200", p.TotalTax)
	assertDec(t, "-1800", p.Balance)
	assert.True(t, p.IsRefund())
}

func TestCompute_ExcludedAndUnclassifiedDocuments(t *testing.T) {
	docs := []tax.IncomeDocument{
		{FormType: "w2", Gross: dec("12000"), RecipientID: "tp"},
		{FormType: "1098", Gross: dec("9000"), RecipientID: "someone-else"},
	}

	p, err := projection.Compute(sampleCase, year2030(), docs, flatSet(t))
	require.NoError(t, err)

	assertDec(t, "12000", p.TotalIncome)
	assert.Equal(t, 1, p.Documents)
}

func TestCompute_DeductionFloorsAtZero(t *testing.T) {
	set, err := rules.Defaults()
	require.NoError(t, err)

	ty := tax.TaxYear{Year: 2024, FilingStatus: tax.FilingSingle}
	docs := []tax.IncomeDocument{wages("tp", "9000", "300")}

	p, err := projection.Compute(sampleCase, ty, docs, set)
	require.NoError(t, err)

	assertDec(t, "14600", p.StandardDeduction)
	assert.True(t, p.TaxableIncome.IsZero())
	assert.True(t, p.IncomeTax.IsZero())
	assertDec(t, "-300", p.Balance)

	ty.StandardDeductionDisallowed = true

	p, err = projection.Compute(sampleCase, ty, docs, set)
	require.NoError(t, err)
	assert.True(t, p.StandardDeduction.IsZero())
	assertDec(t, "900", p.IncomeTax)
}

func TestCompute_Errors(t *testing.T) {
	type testCase struct {
		name    string
		ty      tax.TaxYear
		docs    []tax.IncomeDocument
		wantErr error
	}

	tests := []testCase{
		{
			name:    "MissingBrackets",
			ty:      tax.TaxYear{Year: 2031, FilingStatus: tax.FilingSingle},
			wantErr: tax.ErrMissingRuleLookup,
		},
		{
			name:    "UnknownForm",
			ty:      year2030(),
			docs:    []tax.IncomeDocument{{FormType: "K-1", Gross: dec("10"), RecipientID: "tp"}},
			wantErr: tax.ErrMissingRuleLookup,
		},
		{
			name:    "UnknownRecipient",
			ty:      year2030(),
			docs:    []tax.IncomeDocument{wages("dependent", "100", "0")},
			wantErr: tax.ErrInvalidInput,
		},
		{
			name:    "UnsupportedFilingStatus",
			ty:      tax.TaxYear{Year: 2030, FilingStatus: "joint"},
			wantErr: tax.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := projection.Compute(sampleCase, tt.ty, tt.docs, flatSet(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompute_Idempotent(t *testing.T) {
	docs := []tax.IncomeDocument{
		wages("tp", "48211.37", "4100.12"),
		selfEmployment("sp", "17333.33"),
	}

	first, err := projection.Compute(sampleCase, year2030(), docs, flatSet(t))
	require.NoError(t, err)

	second, err := projection.Compute(sampleCase, year2030(), docs, flatSet(t))
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)

	b, err := json.Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
