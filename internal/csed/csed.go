// Package csed computes Collection Statute Expiration Dates: the filed date
// plus ten years, extended by the longest tolling path found on the account.
package csed

import (
	"fmt"
	"slices"
	"time"

	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

// StatuteDays is the fixed ten-year collection window. It is a day count,
// not a calendar offset.
const StatuteDays = 3652

// FromAnchor returns the base statute date for an anchor such as a filed or
// assessment date.
func FromAnchor(anchor time.Time) Date {
	return Determined(civil(anchor).AddDate(0, 0, StatuteDays))
}

// Result is the statute for one tax year.
type Result struct {
	Base  Date `json:"base"`
	Final Date `json:"final"`
	// DaysRemaining is nil unless Final is determined.
	DaysRemaining  *int                    `json:"days_remaining"`
	Events         []TollingEvent          `json:"events"`
	OpenCategories []rules.TollingCategory `json:"open_categories,omitempty"`
}

// Compute derives tolling events from the transactions, adds the supplied
// events, and reduces them to the final statute date.
//
// The final date is the latest of the base date and base + toll days of each
// event, so overlapping events never add up. Any unresolved event makes the
// final date open. Without a filed date both dates are undefined.
func Compute(ty tax.TaxYear, txs []tax.AccountTransaction, events []TollingEvent, repo rules.Repository, asOf time.Time) (Result, error) {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return Result{}, fmt.Errorf("tax year %d: %w", ty.Year, err)
		}
	}

	tolling := repo.Tolling()
	all := mergeEvents(DeriveEvents(txs, tolling), withRuleExtensions(events, tolling))

	res := Result{
		Base:   Undefined(),
		Final:  Undefined(),
		Events: all,
	}

	if ty.ReturnFiledDate == nil {
		return res, nil
	}

	res.Base = FromAnchor(*ty.ReturnFiledDate)

	for _, e := range all {
		if e.IsOpen() && !slices.Contains(res.OpenCategories, e.Category) {
			res.OpenCategories = append(res.OpenCategories, e.Category)
		}
	}

	if len(res.OpenCategories) > 0 {
		res.Final = Open()
		return res, nil
	}

	longest := 0
	for _, e := range all {
		longest = max(longest, e.TollDays)
	}

	base, _ := res.Base.Time()
	res.Final = Determined(base.AddDate(0, 0, longest))

	days, _ := res.Final.DaysUntil(asOf)
	res.DaysRemaining = &days

	return res, nil
}

// withRuleExtensions fills in the extension of closed supplied events that
// carry none from their category's rule. An extension restricted to certain
// end codes applies only when the event names one of them.
func withRuleExtensions(events []TollingEvent, tolling []rules.TollingRule) []TollingEvent {
	out := slices.Clone(events)

	for i, e := range out {
		if e.IsOpen() || e.ExtensionDays != 0 {
			continue
		}

		idx := slices.IndexFunc(tolling, func(r rules.TollingRule) bool { return r.Category == e.Category })
		if idx < 0 {
			continue
		}

		r := tolling[idx]
		if len(r.ExtensionCodes) == 0 || slices.Contains(r.ExtensionCodes, e.EndCode) {
			out[i].ExtensionDays = r.ExtensionDays
		}
	}

	return out
}

// mergeEvents unions derived and supplied events. Of two events covering the
// same interval the one tolling longer is kept.
func mergeEvents(derived, supplied []TollingEvent) []TollingEvent {
	byKey := make(map[eventKey]int, len(derived)+len(supplied))

	var out []TollingEvent

	for _, e := range slices.Concat(derived, supplied) {
		e.Start = civil(e.Start)
		if e.End != nil {
			end := civil(*e.End)
			e.End = &end
		}

		e.settle()

		if i, ok := byKey[e.key()]; ok {
			if e.TollDays > out[i].TollDays {
				out[i] = e
			}

			continue
		}

		byKey[e.key()] = len(out)
		out = append(out, e)
	}

	sortEvents(out)

	return out
}
