package rules

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

type yearStatus struct {
	year   int
	status tax.FilingStatus
}

type standardKey struct {
	category string
	state    string
	county   string
}

// Set is an in-memory Repository. It is immutable once built and safe for
// concurrent use.
type Set struct {
	codes      map[string]TransactionCodeRule
	forms      map[string]IncomeFormRule
	tolling    []TollingRule
	brackets   map[yearStatus][]TaxBracket
	deductions map[yearStatus]decimal.Decimal
	standards  map[standardKey][]CollectionStandard // sorted by household size
}

var _ Repository = (*Set)(nil)

// NewSet indexes and validates the tables.
func NewSet(t Tables) (*Set, error) {
	s := &Set{
		codes:      make(map[string]TransactionCodeRule, len(t.TransactionCodes)),
		forms:      make(map[string]IncomeFormRule, len(t.IncomeForms)),
		brackets:   make(map[yearStatus][]TaxBracket),
		deductions: make(map[yearStatus]decimal.Decimal, len(t.StandardDeductions)),
		standards:  make(map[standardKey][]CollectionStandard),
	}

	for _, r := range t.TransactionCodes {
		code := normalizeCode(r.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: transaction code rule without code", tax.ErrInvalidInput)
		}

		r.Code = code
		s.codes[code] = r
	}

	for _, r := range t.IncomeForms {
		code := normalizeForm(r.FormCode)
		if code == "" {
			return nil, fmt.Errorf("%w: income form rule without form code", tax.ErrInvalidInput)
		}

		r.FormCode = code
		s.forms[code] = r
	}

	for _, r := range t.Tolling {
		if err := validateTolling(r); err != nil {
			return nil, err
		}

		s.tolling = append(s.tolling, r)
	}

	for _, b := range t.TaxBrackets {
		if err := b.FilingStatus.Validate(); err != nil {
			return nil, fmt.Errorf("tax bracket %d: %w", b.Year, err)
		}

		k := yearStatus{b.Year, b.FilingStatus}
		s.brackets[k] = append(s.brackets[k], b)
	}

	for k, bs := range s.brackets {
		slices.SortFunc(bs, func(a, b TaxBracket) int { return a.Floor.Cmp(b.Floor) })

		if err := validateBrackets(bs); err != nil {
			return nil, fmt.Errorf("tax brackets %d/%s: %w", k.year, k.status, err)
		}
	}

	for _, d := range t.StandardDeductions {
		if err := d.FilingStatus.Validate(); err != nil {
			return nil, fmt.Errorf("standard deduction %d: %w", d.Year, err)
		}

		s.deductions[yearStatus{d.Year, d.FilingStatus}] = d.Amount
	}

	for _, c := range t.CollectionStandards {
		if c.HouseholdSize <= 0 {
			return nil, fmt.Errorf("%w: collection standard %q with household size %d",
				tax.ErrInvalidInput, c.Category, c.HouseholdSize)
		}

		k := keyOf(c)
		s.standards[k] = append(s.standards[k], c)
	}

	for _, cs := range s.standards {
		slices.SortFunc(cs, func(a, b CollectionStandard) int { return cmp.Compare(a.HouseholdSize, b.HouseholdSize) })
	}

	return s, nil
}

func validateTolling(r TollingRule) error {
	if r.Category == "" {
		return fmt.Errorf("%w: tolling rule without category", tax.ErrInvalidInput)
	}

	// A rule without codes only supplies the extension for events entered by hand.
	if len(r.StartCodes) == 0 && len(r.EndCodes) == 0 && !r.PointEvent {
		if r.ExtensionDays < 0 {
			return fmt.Errorf("%w: tolling rule %s has negative extension", tax.ErrInvalidInput, r.Category)
		}

		return nil
	}

	if len(r.StartCodes) == 0 {
		return fmt.Errorf("%w: tolling rule %s has no start codes", tax.ErrInvalidInput, r.Category)
	}

	if !r.PointEvent && len(r.EndCodes) == 0 {
		return fmt.Errorf("%w: interval tolling rule %s has no end codes", tax.ErrInvalidInput, r.Category)
	}

	if r.ExtensionDays < 0 {
		return fmt.Errorf("%w: tolling rule %s has negative extension", tax.ErrInvalidInput, r.Category)
	}

	return nil
}

// validateBrackets expects bands sorted by floor, starting at zero, each
// starting where the previous one ends, with only the last one unbounded.
func validateBrackets(bs []TaxBracket) error {
	if !bs[0].Floor.IsZero() {
		return fmt.Errorf("%w: first bracket starts at %s", tax.ErrInvalidInput, bs[0].Floor)
	}

	for i, b := range bs {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: bracket rate %s out of range", tax.ErrInvalidInput, b.Rate)
		}

		last := i == len(bs)-1
		if b.Ceiling == nil {
			if !last {
				return fmt.Errorf("%w: unbounded bracket at %s is not the top band", tax.ErrInvalidInput, b.Floor)
			}

			continue
		}

		if !b.Ceiling.GreaterThan(b.Floor) {
			return fmt.Errorf("%w: bracket ceiling %s not above floor %s", tax.ErrInvalidInput, b.Ceiling, b.Floor)
		}

		if !last && !bs[i+1].Floor.Equal(*b.Ceiling) {
			return fmt.Errorf("%w: gap between %s and %s", tax.ErrInvalidInput, b.Ceiling, bs[i+1].Floor)
		}
	}

	return nil
}

func (s *Set) TransactionCode(code string) (TransactionCodeRule, error) {
	r, ok := s.codes[normalizeCode(code)]
	if !ok {
		return TransactionCodeRule{}, fmt.Errorf("%w: transaction code %q", tax.ErrMissingRuleLookup, code)
	}

	return r, nil
}

func (s *Set) IncomeForm(formCode string) (IncomeFormRule, error) {
	r, ok := s.forms[normalizeForm(formCode)]
	if !ok {
		return IncomeFormRule{}, fmt.Errorf("%w: income form %q", tax.ErrMissingRuleLookup, formCode)
	}

	return r, nil
}

func (s *Set) Tolling() []TollingRule {
	return slices.Clone(s.tolling)
}

func (s *Set) TaxBrackets(year int, status tax.FilingStatus) ([]TaxBracket, error) {
	bs, ok := s.brackets[yearStatus{year, status}]
	if !ok {
		return nil, fmt.Errorf("%w: tax brackets for %d/%s", tax.ErrMissingRuleLookup, year, status)
	}

	return slices.Clone(bs), nil
}

func (s *Set) StandardDeduction(year int, status tax.FilingStatus) (decimal.Decimal, error) {
	d, ok := s.deductions[yearStatus{year, status}]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: standard deduction for %d/%s", tax.ErrMissingRuleLookup, year, status)
	}

	return d, nil
}

// CollectionStandard resolves the most specific table for the location
// (county, then state, then national). Household sizes past the largest
// tabulated size add the per-person increment of that largest entry.
func (s *Set) CollectionStandard(category string, householdSize int, loc tax.Location) (decimal.Decimal, error) {
	if householdSize <= 0 {
		return decimal.Zero, fmt.Errorf("%w: household size %d", tax.ErrInvalidInput, householdSize)
	}

	category = strings.ToLower(strings.TrimSpace(category))
	state := strings.ToUpper(strings.TrimSpace(loc.State))
	county := normalizeCounty(loc.County)

	candidates := []standardKey{
		{category, state, county},
		{category, state, ""},
		{category, "", ""},
	}

	for _, k := range candidates {
		entries, ok := s.standards[k]
		if !ok {
			continue
		}

		if amount, ok := amountForSize(entries, householdSize); ok {
			return amount, nil
		}
	}

	return decimal.Zero, fmt.Errorf("%w: collection standard %q for household of %d in %s/%s",
		tax.ErrMissingRuleLookup, category, householdSize, loc.State, loc.County)
}

func amountForSize(entries []CollectionStandard, size int) (decimal.Decimal, bool) {
	for _, e := range entries {
		if e.HouseholdSize == size {
			return e.Amount, true
		}
	}

	largest := entries[len(entries)-1]
	if size < largest.HouseholdSize {
		return decimal.Zero, false
	}

	extra := decimal.NewFromInt(int64(size - largest.HouseholdSize))

	return largest.Amount.Add(largest.AdditionalPerPerson.Mul(extra)), true
}

// Classify attaches the rule flags for the transaction's code.
func (s *Set) Classify(tx *tax.AccountTransaction) error {
	r, err := s.TransactionCode(tx.Code)
	if err != nil {
		return err
	}

	tx.Flags = tax.TransactionFlags{
		AffectsBalance:   r.AffectsBalance,
		AffectsCSED:      r.AffectsCSED,
		CollectionAction: r.CollectionAction,
		OpensTolling:     r.OpensTolling,
		ClosesTolling:    r.ClosesTolling,
	}

	return nil
}

// ClassifyIncome attaches the rule flags for the document's form type.
func (s *Set) ClassifyIncome(doc *tax.IncomeDocument) error {
	r, err := s.IncomeForm(doc.FormType)
	if err != nil {
		return err
	}

	doc.Flags = tax.IncomeFlags{
		Category:         r.Category,
		SelfEmployment:   r.SelfEmployment,
		ExcludeFromTotal: r.Excluded,
	}

	return nil
}

func keyOf(c CollectionStandard) standardKey {
	return standardKey{
		category: strings.ToLower(strings.TrimSpace(c.Category)),
		state:    strings.ToUpper(strings.TrimSpace(c.State)),
		county:   normalizeCounty(c.County),
	}
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// normalizeForm folds the spellings seen on transcripts ("W2", "w-2 ") to one key.
func normalizeForm(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(code, "W2") {
		code = "W-2" + strings.TrimPrefix(code, "W2")
	}

	return code
}

func normalizeCounty(county string) string {
	county = strings.ToLower(strings.TrimSpace(county))
	return strings.TrimSuffix(county, " county")
}
