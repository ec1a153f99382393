package tax

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountTransaction is one classified line of an IRS account transcript.
type AccountTransaction struct {
	ID          uuid.UUID       `json:"id"`
	TaxYearID   uuid.UUID       `json:"tax_year_id"`
	Code        string          `json:"code"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"` // signed; positive increases the balance owed
	Explanation string          `json:"explanation,omitempty"`
	// Flags are attached from the rule tables, never read from input.
	Flags TransactionFlags `json:"-"`
}

// TransactionFlags are the rule-derived classification of a transaction code.
type TransactionFlags struct {
	AffectsBalance   bool
	AffectsCSED      bool
	CollectionAction bool
	OpensTolling     bool
	ClosesTolling    bool
}

// IncomeDocument is one wage or income form reported for a tax year.
type IncomeDocument struct {
	ID          uuid.UUID       `json:"id"`
	TaxYearID   uuid.UUID       `json:"tax_year_id"`
	FormType    string          `json:"form_type"`
	Gross       decimal.Decimal `json:"gross"`
	Withheld    decimal.Decimal `json:"withheld"`
	RecipientID string          `json:"recipient_id"` // tax id surrogate the form was issued to
	Issuer      string          `json:"issuer,omitempty"`
	Flags       IncomeFlags     `json:"-"`
}

// IncomeFlags are the rule-derived classification of an income form.
type IncomeFlags struct {
	Category         string
	SelfEmployment   bool
	ExcludeFromTotal bool
}
