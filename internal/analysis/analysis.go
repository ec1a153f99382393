package analysis

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/account"
	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/projection"
	"github.com/MrJamesThe3rd/taxres/internal/resolution"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

// YearAnalysis is everything derived for one tax year. When Err is set the
// remaining fields are whatever was computed before the failure.
type YearAnalysis struct {
	TaxYear    tax.TaxYear            `json:"tax_year"`
	Balance    decimal.Decimal        `json:"balance"`
	CSED       csed.Result            `json:"csed"`
	Projection *projection.Projection `json:"projection,omitempty"`
	AUR        *account.AURIndicator  `json:"aur,omitempty"`
	SFR        *account.SFRIndicator  `json:"sfr,omitempty"`
	// Debt is this year's contribution to the case's total debt.
	Debt  decimal.Decimal `json:"debt"`
	Err   error           `json:"-"`
	Error string          `json:"error,omitempty"`
}

// Statute is the year's effective statute: the regular final CSED, or the
// substitute-return CSED when the regular one has no anchor.
func (y YearAnalysis) Statute() csed.Date {
	if y.CSED.Final.State() == csed.StateUndefined && y.SFR != nil {
		return y.SFR.CSED
	}

	return y.CSED.Final
}

// CaseAnalysis is the full derived exposure of one case.
type CaseAnalysis struct {
	Case      *tax.Case       `json:"case"`
	AsOf      time.Time       `json:"as_of"`
	Years     []YearAnalysis  `json:"years"`
	TotalDebt decimal.Decimal `json:"total_debt"`
	// BindingCSED is the earliest determined statute among years that owe.
	BindingCSED csed.Date           `json:"binding_csed"`
	Resolution  *resolution.Options `json:"resolution,omitempty"`
	// ResolutionError is set when interview figures exist but could not be
	// evaluated.
	ResolutionError string `json:"resolution_error,omitempty"`
}

// Failed lists the years whose computation was aborted.
func (a *CaseAnalysis) Failed() []YearAnalysis {
	var out []YearAnalysis

	for _, y := range a.Years {
		if y.Err != nil {
			out = append(out, y)
		}
	}

	return out
}

// BatchResult scopes an error to its case.
type BatchResult struct {
	CaseID   uuid.UUID     `json:"case_id"`
	Analysis *CaseAnalysis `json:"analysis,omitempty"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
}
