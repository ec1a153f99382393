// Package account reads an IRS account transcript: the assessed balance and
// the underreporter and substitute-for-return markers.
package account

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

// Examination and additional-assessment codes that mark an underreporter case.
var aurCodes = []string{"420", "424", "430"}

const filingAssessmentCode = "150"

// Balance sums the amounts of balance-affecting codes. Codes the rules mark
// as informational are skipped whatever their amount.
func Balance(txs []tax.AccountTransaction, repo rules.Repository) (decimal.Decimal, error) {
	total := decimal.Zero

	for _, tx := range txs {
		r, err := repo.TransactionCode(tx.Code)
		if err != nil {
			return decimal.Zero, err
		}

		if r.AffectsBalance {
			total = total.Add(tx.Amount)
		}
	}

	return total.Round(2), nil
}

type AURIndicator struct {
	Codes     []string        `json:"codes"`
	FirstDate time.Time       `json:"first_date"`
	Balance   decimal.Decimal `json:"balance"`
}

// DetectAUR returns nil unless the return was filed, an examination code is
// present and the balance is positive.
func DetectAUR(ty tax.TaxYear, txs []tax.AccountTransaction, repo rules.Repository) (*AURIndicator, error) {
	balance, err := Balance(txs, repo)
	if err != nil {
		return nil, err
	}

	if !ty.ReturnFiled || !balance.IsPositive() {
		return nil, nil
	}

	var ind *AURIndicator

	for _, tx := range txs {
		if !slices.Contains(aurCodes, tx.Code) {
			continue
		}

		if ind == nil {
			ind = &AURIndicator{FirstDate: tx.Date, Balance: balance}
		}

		if !slices.Contains(ind.Codes, tx.Code) {
			ind.Codes = append(ind.Codes, tx.Code)
		}

		if tx.Date.Before(ind.FirstDate) {
			ind.FirstDate = tx.Date
		}
	}

	if ind != nil {
		slices.Sort(ind.Codes)
	}

	return ind, nil
}

// SFRIndicator marks a return the IRS prepared. Its statute runs from the
// SFR assessment and is reported alongside, not merged with, the regular one.
type SFRIndicator struct {
	Date        time.Time `json:"date"`
	Explanation string    `json:"explanation"`
	CSED        csed.Date `json:"csed"`
}

// DetectSFR finds the earliest filing assessment whose explanation mentions
// "SFR" or "substitute" in any case. It returns nil when there is none.
func DetectSFR(ty tax.TaxYear, txs []tax.AccountTransaction) (*SFRIndicator, error) {
	var first *tax.AccountTransaction

	for i := range txs {
		tx := &txs[i]
		if tx.Code != filingAssessmentCode || !mentionsSFR(tx.Explanation) {
			continue
		}

		if first == nil || tx.Date.Before(first.Date) {
			first = tx
		}
	}

	if first == nil {
		return nil, nil
	}

	if first.Date.IsZero() {
		return nil, fmt.Errorf("tax year %d substitute return: %w", ty.Year, tax.ErrMissingAnchorDate)
	}

	return &SFRIndicator{
		Date:        first.Date,
		Explanation: first.Explanation,
		CSED:        csed.FromAnchor(first.Date),
	}, nil
}

func mentionsSFR(explanation string) bool {
	e := strings.ToLower(explanation)
	return strings.Contains(e, "sfr") || strings.Contains(e, "substitute")
}
