// Package resolution evaluates installment agreement, offer in compromise
// and currently-not-collectible terms from a household's monthly figures.
// The three evaluations are independent; ranking them is left to callers.
package resolution

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

var (
	quickSaleFactor      = decimal.RequireFromString("0.80")
	futureIncomeMonths   = decimal.NewFromInt(24)
	offerFactor          = decimal.RequireFromString("0.90")
	offerDebtRatioCutoff = decimal.RequireFromString("0.80")
)

// Expense is one stated monthly expense. Categories without a collection
// standard (court-ordered payments, child care) set NoStandard and are
// allowed at the stated amount.
type Expense struct {
	Category   string          `json:"category"`
	Actual     decimal.Decimal `json:"actual"`
	NoStandard bool            `json:"no_standard,omitempty"`
}

// Financials are the interview figures for one case.
type Financials struct {
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	Expenses      []Expense       `json:"expenses"`
	HouseholdSize int             `json:"household_size"`
	Location      tax.Location    `json:"location"`
	Assets        decimal.Decimal `json:"assets"`
	Liabilities   decimal.Decimal `json:"liabilities"`
	TotalDebt     decimal.Decimal `json:"total_debt"`
	// CSED bounds an installment agreement only when determined.
	CSED csed.Date `json:"csed"`
	AsOf time.Time `json:"as_of"`
}

func (f Financials) Validate() error {
	if f.HouseholdSize <= 0 {
		return fmt.Errorf("%w: household size %d", tax.ErrInvalidInput, f.HouseholdSize)
	}

	if f.TotalDebt.IsNegative() {
		return fmt.Errorf("%w: negative total debt %s", tax.ErrInvalidInput, f.TotalDebt)
	}

	if f.MonthlyIncome.IsNegative() {
		return fmt.Errorf("%w: negative monthly income %s", tax.ErrInvalidInput, f.MonthlyIncome)
	}

	if f.Assets.IsNegative() {
		return fmt.Errorf("%w: negative assets %s", tax.ErrInvalidInput, f.Assets)
	}

	if f.Liabilities.IsNegative() {
		return fmt.Errorf("%w: negative liabilities %s", tax.ErrInvalidInput, f.Liabilities)
	}

	for _, e := range f.Expenses {
		if e.Actual.IsNegative() {
			return fmt.Errorf("%w: negative %s expense %s", tax.ErrInvalidInput, e.Category, e.Actual)
		}
	}

	return nil
}

type AllowableExpense struct {
	Category string `json:"category"`
	// Standard is nil for categories without a collection standard.
	Standard *decimal.Decimal `json:"standard"`
	Actual   decimal.Decimal  `json:"actual"`
	Allowed  decimal.Decimal  `json:"allowed"`
}

type InstallmentAgreement struct {
	Eligible       bool            `json:"eligible"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	// PayoffMonths is nil when the payment is zero.
	PayoffMonths *int `json:"payoff_months"`
	// MonthsUntilCSED is nil unless the statute is determined.
	MonthsUntilCSED *int `json:"months_until_csed"`
}

type OfferInCompromise struct {
	Eligible       bool            `json:"eligible"`
	QuickSaleValue decimal.Decimal `json:"quick_sale_value"`
	FutureIncome   decimal.Decimal `json:"future_income"`
	RCP            decimal.Decimal `json:"rcp"`
	Offer          decimal.Decimal `json:"offer"`
	DebtThreshold  decimal.Decimal `json:"debt_threshold"`
}

type CurrentlyNotCollectible struct {
	Eligible bool `json:"eligible"`
}

// Options holds every evaluation and the figures behind them, rounded to
// cents.
type Options struct {
	TotalIncome             decimal.Decimal         `json:"total_income"`
	Expenses                []AllowableExpense      `json:"expenses"`
	TotalAllowable          decimal.Decimal         `json:"total_allowable"`
	DisposableIncome        decimal.Decimal         `json:"disposable_income"`
	TotalDebt               decimal.Decimal         `json:"total_debt"`
	InstallmentAgreement    InstallmentAgreement    `json:"installment_agreement"`
	OfferInCompromise       OfferInCompromise       `json:"offer_in_compromise"`
	CurrentlyNotCollectible CurrentlyNotCollectible `json:"currently_not_collectible"`
}

// Evaluate allows each expense at the greater of its collection standard and
// the stated amount, derives disposable income and evaluates all three
// resolutions from it.
func Evaluate(f Financials, repo rules.Repository) (Options, error) {
	if err := f.Validate(); err != nil {
		return Options{}, err
	}

	expenses, allowable, err := allowableExpenses(f, repo)
	if err != nil {
		return Options{}, err
	}

	disposable := f.MonthlyIncome.Sub(allowable)

	return Options{
		TotalIncome:             cents(f.MonthlyIncome),
		Expenses:                expenses,
		TotalAllowable:          cents(allowable),
		DisposableIncome:        cents(disposable),
		TotalDebt:               cents(f.TotalDebt),
		InstallmentAgreement:    installmentAgreement(disposable, f.TotalDebt, f.CSED, f.AsOf),
		OfferInCompromise:       offerInCompromise(disposable, f.Assets, f.Liabilities, f.TotalDebt),
		CurrentlyNotCollectible: CurrentlyNotCollectible{Eligible: !disposable.IsPositive()},
	}, nil
}

func allowableExpenses(f Financials, repo rules.Repository) ([]AllowableExpense, decimal.Decimal, error) {
	total := decimal.Zero
	out := make([]AllowableExpense, 0, len(f.Expenses))

	for _, e := range f.Expenses {
		item := AllowableExpense{Category: e.Category, Actual: cents(e.Actual), Allowed: e.Actual}

		if !e.NoStandard {
			std, err := repo.CollectionStandard(e.Category, f.HouseholdSize, f.Location)
			if err != nil {
				return nil, decimal.Zero, err
			}

			item.Standard = &std
			item.Allowed = decimal.Max(std, e.Actual)
		}

		total = total.Add(item.Allowed)
		item.Allowed = cents(item.Allowed)
		out = append(out, item)
	}

	return out, total, nil
}

// MaxPayoffMonths bounds PayoffMonths so the count always fits an int32.
const MaxPayoffMonths = math.MaxInt32

// PayoffMonths is ceil(debt / payment). It reports false when payment is not
// positive or the count would exceed MaxPayoffMonths.
func PayoffMonths(debt, payment decimal.Decimal) (int, bool) {
	if !payment.IsPositive() {
		return 0, false
	}

	if !debt.IsPositive() {
		return 0, true
	}

	q, r := debt.QuoRem(payment, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}

	if q.GreaterThan(decimal.NewFromInt(MaxPayoffMonths)) {
		return 0, false
	}

	return int(q.IntPart()), true
}

func installmentAgreement(disposable, debt decimal.Decimal, statute csed.Date, asOf time.Time) InstallmentAgreement {
	payment := decimal.Max(decimal.Zero, disposable)
	ia := InstallmentAgreement{MonthlyPayment: cents(payment)}

	months, ok := PayoffMonths(debt, payment)
	if !ok {
		return ia
	}

	ia.PayoffMonths = &months
	ia.Eligible = true

	if remaining, bounded := statute.MonthsUntil(asOf); bounded {
		ia.MonthsUntilCSED = &remaining
		ia.Eligible = months < remaining
	}

	return ia
}

func offerInCompromise(disposable, assets, liabilities, debt decimal.Decimal) OfferInCompromise {
	quickSale := assets.Sub(liabilities).Mul(quickSaleFactor)
	future := disposable.Mul(futureIncomeMonths)
	rcp := quickSale.Add(future)
	threshold := debt.Mul(offerDebtRatioCutoff)

	return OfferInCompromise{
		Eligible:       rcp.LessThan(threshold) && !disposable.IsNegative(),
		QuickSaleValue: cents(quickSale),
		FutureIncome:   cents(future),
		RCP:            cents(rcp),
		Offer:          cents(rcp.Mul(offerFactor)),
		DebtThreshold:  cents(threshold),
	}
}

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
