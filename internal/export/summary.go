package export

import (
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
)

// Filename names the workbook after the case and the as-of date.
func Filename(a *analysis.CaseAnalysis) string {
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, a.Case.CaseNumber)

	// Format: case-NUMBER-YYYY-MM-DD.xlsx
	return fmt.Sprintf("case-%s-%s.xlsx", safe, a.AsOf.Format("2006-01-02"))
}

// Summary renders one line per tax year followed by the case totals, for
// terminal output.
func Summary(a *analysis.CaseAnalysis) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Case %s as of %s\n", a.Case.CaseNumber, a.AsOf.Format("2006-01-02"))

	for _, y := range a.Years {
		if y.Err != nil {
			fmt.Fprintf(&sb, "* %d | failed: %s\n", y.TaxYear.Year, y.Error)
			continue
		}

		status := "filed"
		if !y.TaxYear.ReturnFiled {
			status = "unfiled"
		}

		flags := ""
		if y.AUR != nil {
			flags += " AUR"
		}

		if y.SFR != nil {
			flags += " SFR"
		}

		fmt.Fprintf(&sb, "* %d | %s | balance %s | debt %s | CSED %s%s\n",
			y.TaxYear.Year, status, y.Balance.StringFixed(2), y.Debt.StringFixed(2), y.Statute(), flags)
	}

	fmt.Fprintf(&sb, "Total debt: %s\n", a.TotalDebt.StringFixed(2))
	fmt.Fprintf(&sb, "Binding CSED: %s\n", a.BindingCSED)

	o := a.Resolution
	if o == nil {
		if a.ResolutionError != "" {
			fmt.Fprintf(&sb, "Resolution: %s\n", a.ResolutionError)
		}

		return sb.String()
	}

	fmt.Fprintf(&sb, "Disposable income: %s\n", o.DisposableIncome.StringFixed(2))
	fmt.Fprintf(&sb, "Installment agreement: %s at %s/month\n",
		yesNo(o.InstallmentAgreement.Eligible), o.InstallmentAgreement.MonthlyPayment.StringFixed(2))
	fmt.Fprintf(&sb, "Offer in compromise: %s, offer %s\n",
		yesNo(o.OfferInCompromise.Eligible), o.OfferInCompromise.Offer.StringFixed(2))
	fmt.Fprintf(&sb, "Currently not collectible: %s\n", yesNo(o.CurrentlyNotCollectible.Eligible))

	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "eligible"
	}

	return "not eligible"
}
