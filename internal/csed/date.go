package csed

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

// State tags a statute date.
type State string

const (
	StateDetermined State = "determined"
	// StateOpen means an unresolved tolling event keeps the date unknown.
	StateOpen State = "open"
	// StateUndefined means there is no anchor date to compute from.
	StateUndefined State = "undefined"
)

// Date is a statute date that may be open or undefined. The zero value is
// undefined. Use Time to get a calendar date; it refuses the other states.
type Date struct {
	state State
	at    time.Time
}

func Determined(t time.Time) Date {
	return Date{state: StateDetermined, at: civil(t)}
}

func Open() Date {
	return Date{state: StateOpen}
}

func Undefined() Date {
	return Date{state: StateUndefined}
}

func (d Date) State() State {
	if d.state == "" {
		return StateUndefined
	}

	return d.state
}

func (d Date) IsDetermined() bool {
	return d.state == StateDetermined
}

// Time returns the calendar date, or tax.ErrIndeterminateStatute for an open
// date and tax.ErrMissingAnchorDate for an undefined one.
func (d Date) Time() (time.Time, error) {
	switch d.State() {
	case StateDetermined:
		return d.at, nil
	case StateOpen:
		return time.Time{}, tax.ErrIndeterminateStatute
	}

	return time.Time{}, tax.ErrMissingAnchorDate
}

// Before orders determined dates. Any other state never compares before.
func (d Date) Before(other Date) bool {
	if !d.IsDetermined() || !other.IsDetermined() {
		return false
	}

	return d.at.Before(other.at)
}

// DaysUntil returns whole days from asOf to d; negative once expired.
func (d Date) DaysUntil(asOf time.Time) (int, bool) {
	if !d.IsDetermined() {
		return 0, false
	}

	return daysBetween(asOf, d.at), true
}

// MonthsUntil returns the whole calendar months from asOf to d. A month only
// counts once its day-of-month has been reached.
func (d Date) MonthsUntil(asOf time.Time) (int, bool) {
	if !d.IsDetermined() {
		return 0, false
	}

	from := civil(asOf)
	months := (d.at.Year()-from.Year())*12 + int(d.at.Month()-from.Month())

	switch {
	case months > 0 && d.at.Day() < from.Day():
		months--
	case months < 0 && d.at.Day() > from.Day():
		months++
	}

	return months, true
}

func (d Date) String() string {
	if d.IsDetermined() {
		return d.at.Format(time.DateOnly)
	}

	return string(d.State())
}

type dateJSON struct {
	State State  `json:"state"`
	Date  string `json:"date,omitempty"`
}

func (d Date) MarshalJSON() ([]byte, error) {
	out := dateJSON{State: d.State()}
	if d.IsDetermined() {
		out.Date = d.at.Format(time.DateOnly)
	}

	return json.Marshal(out)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var in dateJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	switch in.State {
	case StateDetermined:
		t, err := time.Parse(time.DateOnly, in.Date)
		if err != nil {
			return fmt.Errorf("%w: statute date %q", tax.ErrInvalidInput, in.Date)
		}

		*d = Determined(t)
	case StateOpen:
		*d = Open()
	case StateUndefined, "":
		*d = Undefined()
	default:
		return fmt.Errorf("%w: statute state %q", tax.ErrInvalidInput, in.State)
	}

	return nil
}

// civil truncates t to its calendar date in UTC.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(civil(to).Sub(civil(from)).Hours() / 24)
}
