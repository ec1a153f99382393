package csed

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

// TollingEvent is one period (or point) that suspends the statute.
type TollingEvent struct {
	Category  rules.TollingCategory `json:"category"`
	StartCode string                `json:"start_code,omitempty"`
	EndCode   string                `json:"end_code,omitempty"`
	Start     time.Time             `json:"start"`
	// End is nil while the event is unresolved.
	End           *time.Time `json:"end"`
	ExtensionDays int        `json:"extension_days"`
	// TollDays is the interval length plus the extension. It is zero for an
	// open event.
	TollDays int `json:"toll_days"`
}

func (e TollingEvent) IsOpen() bool {
	return e.End == nil
}

func (e TollingEvent) Validate() error {
	if e.Category == "" {
		return fmt.Errorf("%w: tolling event without category", tax.ErrInvalidInput)
	}

	if e.Start.IsZero() {
		return fmt.Errorf("%w: %s event without start date", tax.ErrInvalidInput, e.Category)
	}

	if e.End != nil && civil(*e.End).Before(civil(e.Start)) {
		return fmt.Errorf("%w: %s event ends %s before it starts %s", tax.ErrInvalidInput,
			e.Category, e.End.Format(time.DateOnly), e.Start.Format(time.DateOnly))
	}

	if e.ExtensionDays < 0 {
		return fmt.Errorf("%w: %s event with negative extension", tax.ErrInvalidInput, e.Category)
	}

	return nil
}

func (e *TollingEvent) settle() {
	if e.End == nil {
		e.TollDays = 0
		return
	}

	e.TollDays = daysBetween(e.Start, *e.End) + e.ExtensionDays
}

// DeriveEvents pairs start and end transaction codes per tolling rule in date
// order. Each end code closes the earliest still-open start of its category;
// an end code with nothing open is ignored. Starts never closed stay open.
// Point rules turn every start code into a zero-length event.
func DeriveEvents(txs []tax.AccountTransaction, tolling []rules.TollingRule) []TollingEvent {
	ordered := slices.Clone(txs)
	slices.SortStableFunc(ordered, func(a, b tax.AccountTransaction) int {
		return a.Date.Compare(b.Date)
	})

	var events []TollingEvent

	for _, r := range tolling {
		var open []TollingEvent

		for _, tx := range ordered {
			switch {
			case slices.Contains(r.StartCodes, tx.Code):
				e := TollingEvent{Category: r.Category, StartCode: tx.Code, Start: civil(tx.Date)}

				if r.PointEvent {
					end := e.Start
					e.End = &end
					e.EndCode = tx.Code
					e.ExtensionDays = r.ExtensionDays
					e.settle()
					events = append(events, e)

					continue
				}

				open = append(open, e)

			case !r.PointEvent && slices.Contains(r.EndCodes, tx.Code) && len(open) > 0:
				e := open[0]
				open = open[1:]

				end := civil(tx.Date)
				e.End = &end
				e.EndCode = tx.Code

				if len(r.ExtensionCodes) == 0 || slices.Contains(r.ExtensionCodes, tx.Code) {
					e.ExtensionDays = r.ExtensionDays
				}

				e.settle()
				events = append(events, e)
			}
		}

		events = append(events, open...)
	}

	sortEvents(events)

	return events
}

func sortEvents(events []TollingEvent) {
	slices.SortStableFunc(events, func(a, b TollingEvent) int {
		return cmp.Or(
			a.Start.Compare(b.Start),
			cmp.Compare(a.Category, b.Category),
		)
	})
}

type eventKey struct {
	category rules.TollingCategory
	start    time.Time
	end      time.Time
	open     bool
}

func (e TollingEvent) key() eventKey {
	k := eventKey{category: e.Category, start: civil(e.Start), open: e.End == nil}
	if e.End != nil {
		k.end = civil(*e.End)
	}

	return k
}
