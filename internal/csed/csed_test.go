package csed_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func tx(code string, at time.Time) tax.AccountTransaction {
	return tax.AccountTransaction{Code: code, Date: at}
}

func filedYear(filed time.Time) tax.TaxYear {
	return tax.TaxYear{Year: 2019, FilingStatus: tax.FilingSingle, ReturnFiled: true, ReturnFiledDate: &filed}
}

func defaults(t *testing.T) *rules.Set {
	t.Helper()

	set, err := rules.Defaults()
	require.NoError(t, err)

	return set
}

func finalDate(t *testing.T, res csed.Result) time.Time {
	t.Helper()

	got, err := res.Final.Time()
	require.NoError(t, err)

	return got
}

func TestCompute_NoFiledDateIsUndefined(t *testing.T) {
	ty := tax.TaxYear{Year: 2019, FilingStatus: tax.FilingSingle}
	txs := []tax.AccountTransaction{tx("520", date(2021, 1, 1))}

	res, err := csed.Compute(ty, txs, nil, defaults(t), date(2024, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, csed.StateUndefined, res.Base.State())
	assert.Equal(t, csed.StateUndefined, res.Final.State())
	assert.Nil(t, res.DaysRemaining)

	_, err = res.Final.Time()
	assert.ErrorIs(t, err, tax.ErrMissingAnchorDate)
}

func TestCompute_BaseDate(t *testing.T) {
	res, err := csed.Compute(filedYear(date(2020, 4, 15)), nil, nil, defaults(t), date(2030, 4, 5))
	require.NoError(t, err)

	base, err := res.Base.Time()
	require.NoError(t, err)
	assert.Equal(t, date(2030, 4, 15), base)
	assert.Equal(t, base, finalDate(t, res))

	require.NotNil(t, res.DaysRemaining)
	assert.Equal(t, 10, *res.DaysRemaining)
}

func TestCompute_ClosedBankruptcy(t *testing.T) {
	// 90-day case plus the 180-day extension.
	txs := []tax.AccountTransaction{
		tx("150", date(2020, 4, 15)),
		tx("520", date(2022, 1, 1)),
		tx("521", date(2022, 4, 1)),
	}

	res, err := csed.Compute(filedYear(date(2020, 4, 15)), txs, nil, defaults(t), date(2024, 1, 1))
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	assert.Equal(t, rules.CategoryBankruptcy, res.Events[0].Category)
	assert.Equal(t, 270, res.Events[0].TollDays)

	want := date(2020, 4, 15).AddDate(0, 0, 3652+90+180)
	assert.Equal(t, want, finalDate(t, res))
	assert.Equal(t, date(2031, 1, 10), want)
}

func TestCompute_OfferInCompromiseResolution(t *testing.T) {
	type testCase struct {
		name     string
		closedBy string
		wantToll int
	}

	tests := []testCase{
		{name: "Accepted", closedBy: "482", wantToll: 50},
		{name: "Withdrawn", closedBy: "483", wantToll: 20},
		{name: "Rejected", closedBy: "481", wantToll: 20},
	}

	filed := date(2020, 4, 15)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := []tax.AccountTransaction{
				tx("480", date(2023, 3, 1)),
				tx(tt.closedBy, date(2023, 3, 21)),
			}

			res, err := csed.Compute(filedYear(filed), txs, nil, defaults(t), date(2024, 1, 1))
			require.NoError(t, err)

			require.Len(t, res.Events, 1)
			assert.Equal(t, tt.wantToll, res.Events[0].TollDays)
			assert.Equal(t, date(2030, 4, 15).AddDate(0, 0, tt.wantToll), finalDate(t, res))
		})
	}
}

func TestCompute_OpenEvents(t *testing.T) {
	type testCase struct {
		name     string
		txs      []tax.AccountTransaction
		wantOpen []rules.TollingCategory
	}

	tests := []testCase{
		{
			name: "OpenBankruptcyOverridesClosedEvents",
			txs: []tax.AccountTransaction{
				tx("480", date(2021, 1, 1)),
				tx("482", date(2021, 6, 1)),
				tx("276", date(2021, 7, 1)),
				tx("520", date(2022, 1, 1)),
			},
			wantOpen: []rules.TollingCategory{rules.CategoryBankruptcy},
		},
		{
			name: "SecondBankruptcyStillOpen",
			txs: []tax.AccountTransaction{
				tx("520", date(2021, 1, 1)),
				tx("521", date(2021, 3, 1)),
				tx("520", date(2023, 1, 1)),
			},
			wantOpen: []rules.TollingCategory{rules.CategoryBankruptcy},
		},
		{
			name: "PendingCollectionDueProcess",
			txs: []tax.AccountTransaction{
				tx("971", date(2023, 5, 1)),
			},
			wantOpen: []rules.TollingCategory{rules.CategoryCollectionDueProcess},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := csed.Compute(filedYear(date(2020, 4, 15)), tt.txs, nil, defaults(t), date(2024, 1, 1))
			require.NoError(t, err)

			assert.Equal(t, csed.StateOpen, res.Final.State())
			assert.Equal(t, tt.wantOpen, res.OpenCategories)
			assert.Nil(t, res.DaysRemaining)

			_, err = res.Final.Time()
			assert.ErrorIs(t, err, tax.ErrIndeterminateStatute)

			base, err := res.Base.Time()
			require.NoError(t, err)
			assert.Equal(t, date(2030, 4, 15), base)
		})
	}
}

func TestCompute_TakesLongestPathNotSum(t *testing.T) {
	txs := []tax.AccountTransaction{
		tx("520", date(2022, 1, 1)),
		tx("521", date(2022, 4, 1)), // 270
		tx("480", date(2022, 2, 1)),
		tx("482", date(2022, 2, 21)), // 50
		tx("196", date(2022, 8, 1)),  // 30
	}

	res, err := csed.Compute(filedYear(date(2020, 4, 15)), txs, nil, defaults(t), date(2024, 1, 1))
	require.NoError(t, err)

	assert.Len(t, res.Events, 3)
	assert.Equal(t, date(2030, 4, 15).AddDate(0, 0, 270), finalDate(t, res))
}

func TestCompute_SuppliedEvents(t *testing.T) {
	filed := date(2020, 4, 15)
	bankruptcyTxs := []tax.AccountTransaction{
		tx("520", date(2022, 1, 1)),
		tx("521", date(2022, 4, 1)),
	}

	end := date(2022, 4, 1)
	interval := func(category rules.TollingCategory, endCode string, extension int) csed.TollingEvent {
		return csed.TollingEvent{
			Category:      category,
			EndCode:       endCode,
			Start:         date(2022, 1, 1),
			End:           &end,
			ExtensionDays: extension,
		}
	}

	type testCase struct {
		name       string
		txs        []tax.AccountTransaction
		events     []csed.TollingEvent
		wantEvents int
		wantToll   int
		wantFinal  time.Time
	}

	tests := []testCase{
		{
			name:       "DuplicateOfDerivedEvent",
			txs:        bankruptcyTxs,
			events:     []csed.TollingEvent{interval(rules.CategoryBankruptcy, "", 180), interval(rules.CategoryBankruptcy, "", 180)},
			wantEvents: 1,
			wantToll:   270,
			wantFinal:  date(2031, 1, 10),
		},
		{
			name:       "ExtensionTakenFromRule",
			events:     []csed.TollingEvent{interval(rules.CategoryBankruptcy, "", 0)},
			wantEvents: 1,
			wantToll:   270,
			wantFinal:  date(2031, 1, 10),
		},
		{
			name:       "DuplicateWithoutExtensionKeepsDerivedToll",
			txs:        bankruptcyTxs,
			events:     []csed.TollingEvent{interval(rules.CategoryBankruptcy, "", 0)},
			wantEvents: 1,
			wantToll:   270,
			wantFinal:  date(2031, 1, 10),
		},
		{
			name:       "ShorterDuplicateDoesNotReplace",
			txs:        bankruptcyTxs,
			events:     []csed.TollingEvent{interval(rules.CategoryBankruptcy, "", 30)},
			wantEvents: 1,
			wantToll:   270,
			wantFinal:  date(2031, 1, 10),
		},
		{
			name:       "ClosedIncludedInBankruptcy",
			events:     []csed.TollingEvent{interval(rules.CategoryIncludedInBankruptcy, "", 0)},
			wantEvents: 1,
			wantToll:   270,
			wantFinal:  date(2031, 1, 10),
		},
		{
			name:       "OfferAccepted",
			events:     []csed.TollingEvent{interval(rules.CategoryOfferInCompromise, "482", 0)},
			wantEvents: 1,
			wantToll:   120,
			wantFinal:  date(2030, 8, 13),
		},
		{
			name:       "OfferRejected",
			events:     []csed.TollingEvent{interval(rules.CategoryOfferInCompromise, "481", 0)},
			wantEvents: 1,
			wantToll:   90,
			wantFinal:  date(2030, 7, 14),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := csed.Compute(filedYear(filed), tt.txs, tt.events, defaults(t), date(2024, 1, 1))
			require.NoError(t, err)

			require.Len(t, res.Events, tt.wantEvents)
			assert.Equal(t, tt.wantToll, res.Events[0].TollDays)
			assert.Equal(t, tt.wantFinal, finalDate(t, res))
		})
	}
}

func TestCompute_SuppliedOpenEvent(t *testing.T) {
	txs := []tax.AccountTransaction{
		tx("520", date(2022, 1, 1)),
		tx("521", date(2022, 4, 1)),
	}
	open := csed.TollingEvent{Category: rules.CategoryIncludedInBankruptcy, Start: date(2023, 2, 1)}

	res, err := csed.Compute(filedYear(date(2020, 4, 15)), txs, []csed.TollingEvent{open}, defaults(t), date(2024, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, csed.StateOpen, res.Final.State())
	assert.Equal(t, []rules.TollingCategory{rules.CategoryIncludedInBankruptcy}, res.OpenCategories)
}

func TestCompute_InvalidSuppliedEvent(t *testing.T) {
	end := date(2021, 1, 1)
	bad := csed.TollingEvent{Category: rules.CategoryBankruptcy, Start: date(2022, 1, 1), End: &end}

	_, err := csed.Compute(filedYear(date(2020, 4, 15)), nil, []csed.TollingEvent{bad}, defaults(t), date(2024, 1, 1))
	assert.ErrorIs(t, err, tax.ErrInvalidInput)
}

func TestCompute_ExpiredStatute(t *testing.T) {
	res, err := csed.Compute(filedYear(date(2010, 4, 15)), nil, nil, defaults(t), date(2021, 4, 15))
	require.NoError(t, err)

	require.NotNil(t, res.DaysRemaining)
	assert.Negative(t, *res.DaysRemaining)
}

func TestCompute_IgnoresOrphanEndCode(t *testing.T) {
	txs := []tax.AccountTransaction{tx("521", date(2022, 4, 1))}

	res, err := csed.Compute(filedYear(date(2020, 4, 15)), txs, nil, defaults(t), date(2024, 1, 1))
	require.NoError(t, err)

	assert.Empty(t, res.Events)
	assert.Equal(t, date(2030, 4, 15), finalDate(t, res))
}

func TestFromAnchor(t *testing.T) {
	got, err := csed.FromAnchor(time.Date(2018, 6, 11, 15, 4, 0, 0, time.Local)).Time()
	require.NoError(t, err)
	assert.Equal(t, date(2028, 6, 10), got)
}
