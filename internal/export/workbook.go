// Package export renders a case analysis as an XLSX workbook laid out like
// the hand-built reference spreadsheet the figures are checked against.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
	"github.com/MrJamesThe3rd/taxres/internal/csed"
)

const (
	SheetSummary    = "Summary"
	SheetCSED       = "CSED"
	SheetProjection = "Projection"
	SheetResolution = "Resolution"
)

// Built-in number formats.
const (
	fmtMoney = 4  // #,##0.00
	fmtDate  = 14 // m/d/yy
)

type styles struct {
	money  int
	date   int
	header int
}

type writer struct {
	f      *excelize.File
	styles styles
}

// Workbook builds the workbook. Money cells hold numbers and dates hold
// dates; open and undefined statutes are written as their state name.
func Workbook(a *analysis.CaseAnalysis) (*excelize.File, error) {
	f := excelize.NewFile()

	w := &writer{f: f}
	if err := w.init(); err != nil {
		f.Close()
		return nil, err
	}

	for _, fill := range []func(*analysis.CaseAnalysis) error{w.summary, w.csed, w.projection, w.resolution} {
		if err := fill(a); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func (w *writer) init() error {
	if err := w.f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}

	for _, name := range []string{SheetCSED, SheetProjection, SheetResolution} {
		if _, err := w.f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	var err error

	if w.styles.money, err = w.f.NewStyle(&excelize.Style{NumFmt: fmtMoney}); err != nil {
		return fmt.Errorf("creating money style: %w", err)
	}

	if w.styles.date, err = w.f.NewStyle(&excelize.Style{NumFmt: fmtDate}); err != nil {
		return fmt.Errorf("creating date style: %w", err)
	}

	if w.styles.header, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	return nil
}

// row writes values starting at column A of the given 1-based row and styles
// decimals and dates.
func (w *writer) row(sheet string, r int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, r)
		if err != nil {
			return err
		}

		style := 0

		switch x := v.(type) {
		case decimal.Decimal:
			v, style = x.InexactFloat64(), w.styles.money
		case *decimal.Decimal:
			if x == nil {
				v = nil
			} else {
				v, style = x.InexactFloat64(), w.styles.money
			}
		case time.Time:
			style = w.styles.date
		case csed.Date:
			v, style = statuteCell(x)
		case *int:
			if x == nil {
				v = nil
			} else {
				v = *x
			}
		}

		if style == -1 {
			style = w.styles.date
		}

		if err := w.f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
		}

		if style != 0 {
			if err := w.f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("styling %s!%s: %w", sheet, cell, err)
			}
		}
	}

	return nil
}

func (w *writer) header(sheet string, names ...string) error {
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}

	if err := w.row(sheet, 1, values...); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(names), 1)
	if err != nil {
		return err
	}

	if err := w.f.SetCellStyle(sheet, "A1", last, w.styles.header); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}

	col, _ := excelize.ColumnNumberToName(len(names))

	return w.f.SetColWidth(sheet, "A", col, 18)
}

// statuteCell returns the date for a determined statute and the state name
// otherwise. A style of -1 asks for the date style.
func statuteCell(d csed.Date) (any, int) {
	if t, err := d.Time(); err == nil {
		return t, -1
	}

	return strings.ToUpper(string(d.State())), 0
}

func (w *writer) summary(a *analysis.CaseAnalysis) error {
	if err := w.header(SheetSummary, "Field", "Value"); err != nil {
		return err
	}

	rows := [][]any{
		{"Case", a.Case.CaseNumber},
		{"As of", a.AsOf},
		{"Tax years", len(a.Years)},
		{"Failed tax years", len(a.Failed())},
		{"Total debt", a.TotalDebt},
		{"Binding CSED", a.BindingCSED},
	}

	if a.Resolution != nil {
		rows = append(rows,
			[]any{"Disposable income", a.Resolution.DisposableIncome},
			[]any{"Installment agreement", a.Resolution.InstallmentAgreement.Eligible},
			[]any{"Offer in compromise", a.Resolution.OfferInCompromise.Eligible},
			[]any{"Currently not collectible", a.Resolution.CurrentlyNotCollectible.Eligible},
		)
	}

	for i, r := range rows {
		if err := w.row(SheetSummary, i+2, r...); err != nil {
			return err
		}
	}

	return nil
}

func (w *writer) csed(a *analysis.CaseAnalysis) error {
	if err := w.header(SheetCSED,
		"Year", "Filed", "Base CSED", "Final CSED", "Days Remaining", "Toll Days", "Open Events", "SFR CSED", "Error",
	); err != nil {
		return err
	}

	for i, y := range a.Years {
		longest := 0
		for _, e := range y.CSED.Events {
			longest = max(longest, e.TollDays)
		}

		var filed any
		if y.TaxYear.ReturnFiledDate != nil {
			filed = *y.TaxYear.ReturnFiledDate
		}

		var sfr any
		if y.SFR != nil {
			sfr = y.SFR.CSED
		}

		open := make([]string, len(y.CSED.OpenCategories))
		for j, c := range y.CSED.OpenCategories {
			open[j] = string(c)
		}

		if err := w.row(SheetCSED, i+2,
			y.TaxYear.Year, filed, y.CSED.Base, y.CSED.Final, y.CSED.DaysRemaining, longest,
			strings.Join(open, ", "), sfr, y.Error,
		); err != nil {
			return err
		}
	}

	return nil
}

func (w *writer) projection(a *analysis.CaseAnalysis) error {
	if err := w.header(SheetProjection,
		"Year", "Filing Status", "Taxpayer Income", "Spouse Income", "SE Income", "SE Tax", "AGI",
		"Standard Deduction", "Taxable Income", "Income Tax", "Total Tax", "Withholding", "Balance",
	); err != nil {
		return err
	}

	r := 2

	for _, y := range a.Years {
		p := y.Projection
		if p == nil {
			continue
		}

		if err := w.row(SheetProjection, r,
			p.Year, string(p.FilingStatus), p.Taxpayer.Income, p.Spouse.Income, p.SEIncome, p.SETax, p.AGI,
			p.StandardDeduction, p.TaxableIncome, p.IncomeTax, p.TotalTax, p.TotalWithholding, p.Balance,
		); err != nil {
			return err
		}

		r++
	}

	return nil
}

func (w *writer) resolution(a *analysis.CaseAnalysis) error {
	if err := w.header(SheetResolution, "Option", "Eligible", "Amount", "Detail", "Value"); err != nil {
		return err
	}

	o := a.Resolution
	if o == nil {
		return w.row(SheetResolution, 2, "No interview financials", nil, nil, a.ResolutionError)
	}

	ia, oic := o.InstallmentAgreement, o.OfferInCompromise

	rows := [][]any{
		{"Installment agreement", ia.Eligible, ia.MonthlyPayment, "Payoff months", ia.PayoffMonths},
		{nil, nil, nil, "Months until CSED", ia.MonthsUntilCSED},
		{"Offer in compromise", oic.Eligible, oic.Offer, "RCP", oic.RCP},
		{nil, nil, nil, "Quick-sale value", oic.QuickSaleValue},
		{nil, nil, nil, "Future income", oic.FutureIncome},
		{nil, nil, nil, "80% of debt", oic.DebtThreshold},
		{"Currently not collectible", o.CurrentlyNotCollectible.Eligible, nil, "Disposable income", o.DisposableIncome},
		{},
		{"Expense", "Standard", "Actual", "Allowed"},
	}

	for _, e := range o.Expenses {
		rows = append(rows, []any{e.Category, e.Standard, e.Actual, e.Allowed})
	}

	rows = append(rows, []any{"Total allowable", nil, nil, o.TotalAllowable}, []any{"Monthly income", nil, nil, o.TotalIncome})

	for i, r := range rows {
		if err := w.row(SheetResolution, i+2, r...); err != nil {
			return err
		}
	}

	return nil
}
