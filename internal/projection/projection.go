// Package projection estimates the federal liability for a tax year from its
// wage and income documents.
package projection

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

var (
	// Net earnings from self-employment are 92.35% of SE income.
	seNetEarningsFactor = decimal.RequireFromString("0.9235")
	// Combined Social Security and Medicare rate.
	seTaxRate = decimal.RequireFromString("0.153")
	// Employer-equivalent half of the SE tax, deducted above the line.
	seDeductionRate = decimal.RequireFromString("0.0765")
)

// OwnerTotals are the summed documents of one owner.
type OwnerTotals struct {
	Income      decimal.Decimal `json:"income"`
	SEIncome    decimal.Decimal `json:"se_income"`
	SETax       decimal.Decimal `json:"se_tax"`
	Withholding decimal.Decimal `json:"withholding"`
}

// BandTax is the tax owed within one bracket.
type BandTax struct {
	Floor   decimal.Decimal  `json:"floor"`
	Ceiling *decimal.Decimal `json:"ceiling"`
	Rate    decimal.Decimal  `json:"rate"`
	Taxed   decimal.Decimal  `json:"taxed"`
	Tax     decimal.Decimal  `json:"tax"`
}

// Projection is the estimated liability for one tax year. Monetary fields
// are rounded to cents; Balance is positive when owed and negative for a
// refund.
type Projection struct {
	TaxYearID         uuid.UUID        `json:"tax_year_id"`
	Year              int              `json:"year"`
	FilingStatus      tax.FilingStatus `json:"filing_status"`
	Taxpayer          OwnerTotals      `json:"taxpayer"`
	Spouse            OwnerTotals      `json:"spouse"`
	TotalIncome       decimal.Decimal  `json:"total_income"`
	SEIncome          decimal.Decimal  `json:"se_income"`
	SETax             decimal.Decimal  `json:"se_tax"`
	AGI               decimal.Decimal  `json:"agi"`
	StandardDeduction decimal.Decimal  `json:"standard_deduction"`
	TaxableIncome     decimal.Decimal  `json:"taxable_income"`
	IncomeTax         decimal.Decimal  `json:"income_tax"`
	Bands             []BandTax        `json:"bands"`
	TotalTax          decimal.Decimal  `json:"total_tax"`
	TotalWithholding  decimal.Decimal  `json:"total_withholding"`
	Balance           decimal.Decimal  `json:"balance"`
	Documents         int              `json:"documents"`
}

// IsRefund reports whether the projection ends in a refund.
func (p Projection) IsRefund() bool {
	return p.Balance.IsNegative()
}

// Compute partitions the documents by owner and self-employment flag and
// projects the year's liability. Unclassified documents are classified from
// the income form rules. A missing bracket table or deduction is an error.
func Compute(c *tax.Case, ty tax.TaxYear, docs []tax.IncomeDocument, repo rules.Repository) (Projection, error) {
	if err := ty.Validate(); err != nil {
		return Projection{}, err
	}

	owners := map[tax.Owner]*OwnerTotals{
		tax.OwnerTaxpayer: {},
		tax.OwnerSpouse:   {},
	}

	counted := 0

	for _, doc := range docs {
		flags, err := flagsOf(doc, repo)
		if err != nil {
			return Projection{}, fmt.Errorf("tax year %d: %w", ty.Year, err)
		}

		if flags.ExcludeFromTotal {
			continue
		}

		owner, err := c.OwnerOf(doc.RecipientID)
		if err != nil {
			return Projection{}, fmt.Errorf("tax year %d %s document: %w", ty.Year, doc.FormType, err)
		}

		t := owners[owner]
		t.Income = t.Income.Add(doc.Gross)
		t.Withholding = t.Withholding.Add(doc.Withheld)

		if flags.SelfEmployment {
			t.SEIncome = t.SEIncome.Add(doc.Gross)
		}

		counted++
	}

	tp, sp := owners[tax.OwnerTaxpayer], owners[tax.OwnerSpouse]
	tp.SETax = SelfEmploymentTax(tp.SEIncome)
	sp.SETax = SelfEmploymentTax(sp.SEIncome)

	totalIncome := tp.Income.Add(sp.Income)
	seIncome := tp.SEIncome.Add(sp.SEIncome)
	seTax := tp.SETax.Add(sp.SETax)
	withholding := tp.Withholding.Add(sp.Withholding)

	agi := totalIncome.Sub(seIncome.Mul(seDeductionRate))

	deduction := decimal.Zero
	if !ty.StandardDeductionDisallowed {
		d, err := repo.StandardDeduction(ty.Year, ty.FilingStatus)
		if err != nil {
			return Projection{}, err
		}

		deduction = d
	}

	taxable := decimal.Max(decimal.Zero, agi.Sub(deduction))

	brackets, err := repo.TaxBrackets(ty.Year, ty.FilingStatus)
	if err != nil {
		return Projection{}, err
	}

	incomeTax, bands := BracketTax(taxable, brackets)
	totalTax := incomeTax.Add(seTax)

	p := Projection{
		TaxYearID:         ty.ID,
		Year:              ty.Year,
		FilingStatus:      ty.FilingStatus,
		Taxpayer:          tp.rounded(),
		Spouse:            sp.rounded(),
		TotalIncome:       cents(totalIncome),
		SEIncome:          cents(seIncome),
		SETax:             cents(seTax),
		AGI:               cents(agi),
		StandardDeduction: cents(deduction),
		TaxableIncome:     cents(taxable),
		IncomeTax:         cents(incomeTax),
		Bands:             bands,
		TotalTax:          cents(totalTax),
		TotalWithholding:  cents(withholding),
		Balance:           cents(totalTax.Sub(withholding)),
		Documents:         counted,
	}

	return p, nil
}

func flagsOf(doc tax.IncomeDocument, repo rules.Repository) (tax.IncomeFlags, error) {
	if doc.Flags.Category != "" {
		return doc.Flags, nil
	}

	r, err := repo.IncomeForm(doc.FormType)
	if err != nil {
		return tax.IncomeFlags{}, err
	}

	return tax.IncomeFlags{
		Category:         r.Category,
		SelfEmployment:   r.SelfEmployment,
		ExcludeFromTotal: r.Excluded,
	}, nil
}

// SelfEmploymentTax is seIncome × 0.9235 × 0.153, unrounded. Non-positive
// income owes nothing.
func SelfEmploymentTax(seIncome decimal.Decimal) decimal.Decimal {
	if !seIncome.IsPositive() {
		return decimal.Zero
	}

	return seIncome.Mul(seNetEarningsFactor).Mul(seTaxRate)
}

// BracketTax applies marginal brackets in ascending order and stops once the
// taxable income is used up. The returned total is unrounded; band figures
// are rounded to cents.
func BracketTax(taxable decimal.Decimal, brackets []rules.TaxBracket) (decimal.Decimal, []BandTax) {
	remaining := taxable
	total := decimal.Zero

	var bands []BandTax

	for _, b := range brackets {
		if !remaining.IsPositive() {
			break
		}

		taxed := remaining
		if width, bounded := b.Width(); bounded {
			taxed = decimal.Min(remaining, width)
		}

		owed := taxed.Mul(b.Rate)
		total = total.Add(owed)
		remaining = remaining.Sub(taxed)

		bands = append(bands, BandTax{
			Floor:   b.Floor,
			Ceiling: b.Ceiling,
			Rate:    b.Rate,
			Taxed:   cents(taxed),
			Tax:     cents(owed),
		})
	}

	return total, bands
}

func (t *OwnerTotals) rounded() OwnerTotals {
	return OwnerTotals{
		Income:      cents(t.Income),
		SEIncome:    cents(t.SEIncome),
		SETax:       cents(t.SETax),
		Withholding: cents(t.Withholding),
	}
}

// cents rounds half away from zero.
func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
