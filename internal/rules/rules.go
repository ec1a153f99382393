// Package rules holds the read-only business rule tables the calculators
// consult: transaction code classifications, income form classifications,
// statute tolling rules, tax brackets, standard deductions and the IRS
// collection financial standards.
package rules

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

// TransactionCodeRule classifies one IRS transcript transaction code.
type TransactionCodeRule struct {
	Code             string `yaml:"code"`
	Description      string `yaml:"description"`
	Classification   string `yaml:"classification"`
	AffectsBalance   bool   `yaml:"affects_balance"`
	AffectsCSED      bool   `yaml:"affects_csed"`
	CollectionAction bool   `yaml:"collection_action"`
	OpensTolling     bool   `yaml:"opens_tolling"`
	ClosesTolling    bool   `yaml:"closes_tolling"`
}

// IncomeFormRule classifies one wage and income form code.
type IncomeFormRule struct {
	FormCode       string `yaml:"form_code"`
	Category       string `yaml:"category"`
	SelfEmployment bool   `yaml:"self_employment"`
	// Excluded forms are informational (e.g. mortgage interest paid) and never
	// count towards projected income.
	Excluded bool `yaml:"excluded"`
}

// TollingCategory groups the transaction codes that suspend the statute.
type TollingCategory string

const (
	CategoryBankruptcy           TollingCategory = "bankruptcy"
	CategoryIncludedInBankruptcy TollingCategory = "included_in_bankruptcy"
	CategoryOfferInCompromise    TollingCategory = "offer_in_compromise"
	CategoryCollectionDueProcess TollingCategory = "collection_due_process"
	CategoryPenalty              TollingCategory = "penalty"
)

// TollingRule describes how one category of events suspends the statute.
type TollingRule struct {
	Category   TollingCategory `yaml:"category"`
	StartCodes []string        `yaml:"start_codes"`
	EndCodes   []string        `yaml:"end_codes"`
	// ExtensionDays are added on top of the tolled interval.
	ExtensionDays int `yaml:"extension_days"`
	// ExtensionCodes restricts the extension to events closed by one of these
	// codes. Empty means the extension always applies.
	ExtensionCodes []string `yaml:"extension_codes"`
	// PointEvent rules have no interval: each start code adds ExtensionDays.
	PointEvent bool `yaml:"point_event"`
}

// TaxBracket is one marginal band for a (year, filing status) pair.
type TaxBracket struct {
	Year         int              `yaml:"year"`
	FilingStatus tax.FilingStatus `yaml:"filing_status"`
	Floor        decimal.Decimal  `yaml:"floor"`
	Ceiling      *decimal.Decimal `yaml:"ceiling"` // nil for the top, unbounded band
	Rate         decimal.Decimal  `yaml:"rate"`
}

// Width returns the band width and false when the band is unbounded.
func (b TaxBracket) Width() (decimal.Decimal, bool) {
	if b.Ceiling == nil {
		return decimal.Zero, false
	}

	return b.Ceiling.Sub(b.Floor), true
}

type StandardDeduction struct {
	Year         int              `yaml:"year"`
	FilingStatus tax.FilingStatus `yaml:"filing_status"`
	Amount       decimal.Decimal  `yaml:"amount"`
}

// CollectionStandard is an allowable monthly living expense. State and County
// are empty for national standards; County is empty for state-wide ones.
type CollectionStandard struct {
	Category      string          `yaml:"category"`
	HouseholdSize int             `yaml:"household_size"`
	State         string          `yaml:"state"`
	County        string          `yaml:"county"`
	Amount        decimal.Decimal `yaml:"amount"`
	// AdditionalPerPerson extends the largest tabulated household size.
	AdditionalPerPerson decimal.Decimal `yaml:"additional_per_person"`
}

// Tables is the full rule set as stored or shipped.
type Tables struct {
	TransactionCodes    []TransactionCodeRule `yaml:"transaction_codes"`
	IncomeForms         []IncomeFormRule      `yaml:"income_forms"`
	Tolling             []TollingRule         `yaml:"tolling"`
	TaxBrackets         []TaxBracket          `yaml:"tax_brackets"`
	StandardDeductions  []StandardDeduction   `yaml:"standard_deductions"`
	CollectionStandards []CollectionStandard  `yaml:"collection_standards"`
}

// Repository is the lookup surface the calculators depend on. Every lookup of
// an absent key fails with tax.ErrMissingRuleLookup.
type Repository interface {
	TransactionCode(code string) (TransactionCodeRule, error)
	IncomeForm(formCode string) (IncomeFormRule, error)
	Tolling() []TollingRule
	TaxBrackets(year int, status tax.FilingStatus) ([]TaxBracket, error)
	StandardDeduction(year int, status tax.FilingStatus) (decimal.Decimal, error)
	CollectionStandard(category string, householdSize int, loc tax.Location) (decimal.Decimal, error)
}
