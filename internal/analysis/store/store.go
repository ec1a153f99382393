package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/resolution"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

type Store struct {
	db *sql.DB
}

var _ analysis.Repository = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetCase(ctx context.Context, id uuid.UUID) (*tax.Case, error) {
	query := `
		SELECT id, case_number, primary_id, spouse_id, state, county, created_at, updated_at
		FROM cases
		WHERE id = $1`

	var c tax.Case

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.CaseNumber, &c.PrimaryID, &c.SpouseID, &c.Location.State, &c.Location.County,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case %s: %w", id, tax.ErrNotFound)
		}

		return nil, fmt.Errorf("getting case: %w", err)
	}

	return &c, nil
}

// FindCase resolves a human case number to its id.
func (s *Store) FindCase(ctx context.Context, caseNumber string) (uuid.UUID, error) {
	var id uuid.UUID

	err := s.db.QueryRowContext(ctx, `SELECT id FROM cases WHERE case_number = $1`, caseNumber).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("case %q: %w", caseNumber, tax.ErrNotFound)
		}

		return uuid.Nil, fmt.Errorf("finding case: %w", err)
	}

	return id, nil
}

func (s *Store) ListTaxYears(ctx context.Context, caseID uuid.UUID) ([]tax.TaxYear, error) {
	query := `
		SELECT id, case_id, year, filing_status, return_filed, return_filed_date, standard_deduction_disallowed
		FROM tax_years
		WHERE case_id = $1
		ORDER BY year ASC`

	rows, err := s.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing tax years: %w", err)
	}
	defer rows.Close()

	var years []tax.TaxYear

	for rows.Next() {
		var (
			ty     tax.TaxYear
			status string
		)

		if err := rows.Scan(&ty.ID, &ty.CaseID, &ty.Year, &status, &ty.ReturnFiled, &ty.ReturnFiledDate,
			&ty.StandardDeductionDisallowed); err != nil {
			return nil, fmt.Errorf("scanning tax year: %w", err)
		}

		ty.FilingStatus = tax.FilingStatus(status)
		years = append(years, ty)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tax years: %w", err)
	}

	return years, nil
}

func (s *Store) ListTransactions(ctx context.Context, taxYearID uuid.UUID) ([]tax.AccountTransaction, error) {
	query := `
		SELECT id, tax_year_id, code, date, amount, explanation,
		       affects_balance, affects_csed, collection_action, opens_tolling, closes_tolling
		FROM account_transactions
		WHERE tax_year_id = $1
		ORDER BY date ASC, code ASC`

	rows, err := s.db.QueryContext(ctx, query, taxYearID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []tax.AccountTransaction

	for rows.Next() {
		var tx tax.AccountTransaction
		if err := rows.Scan(&tx.ID, &tx.TaxYearID, &tx.Code, &tx.Date, &tx.Amount, &tx.Explanation,
			&tx.Flags.AffectsBalance, &tx.Flags.AffectsCSED, &tx.Flags.CollectionAction,
			&tx.Flags.OpensTolling, &tx.Flags.ClosesTolling); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) ListIncomeDocuments(ctx context.Context, taxYearID uuid.UUID) ([]tax.IncomeDocument, error) {
	query := `
		SELECT id, tax_year_id, form_type, gross, withheld, recipient_id, issuer,
		       category, self_employment, exclude_from_total
		FROM income_documents
		WHERE tax_year_id = $1
		ORDER BY form_type ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, taxYearID)
	if err != nil {
		return nil, fmt.Errorf("listing income documents: %w", err)
	}
	defer rows.Close()

	var docs []tax.IncomeDocument

	for rows.Next() {
		var d tax.IncomeDocument
		if err := rows.Scan(&d.ID, &d.TaxYearID, &d.FormType, &d.Gross, &d.Withheld, &d.RecipientID, &d.Issuer,
			&d.Flags.Category, &d.Flags.SelfEmployment, &d.Flags.ExcludeFromTotal); err != nil {
			return nil, fmt.Errorf("scanning income document: %w", err)
		}

		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating income documents: %w", err)
	}

	return docs, nil
}

func (s *Store) ListTollingEvents(ctx context.Context, taxYearID uuid.UUID) ([]csed.TollingEvent, error) {
	query := `
		SELECT category, start_date, end_date, extension_days
		FROM tolling_events
		WHERE tax_year_id = $1
		ORDER BY start_date ASC`

	rows, err := s.db.QueryContext(ctx, query, taxYearID)
	if err != nil {
		return nil, fmt.Errorf("listing tolling events: %w", err)
	}
	defer rows.Close()

	var events []csed.TollingEvent

	for rows.Next() {
		var (
			e        csed.TollingEvent
			category string
		)

		if err := rows.Scan(&category, &e.Start, &e.End, &e.ExtensionDays); err != nil {
			return nil, fmt.Errorf("scanning tolling event: %w", err)
		}

		e.Category = rules.TollingCategory(category)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tolling events: %w", err)
	}

	return events, nil
}

func (s *Store) GetFinancials(ctx context.Context, caseID uuid.UUID) (*resolution.Financials, error) {
	query := `
		SELECT monthly_income, household_size, state, county, assets, liabilities
		FROM interview_financials
		WHERE case_id = $1`

	var f resolution.Financials

	err := s.db.QueryRowContext(ctx, query, caseID).Scan(
		&f.MonthlyIncome, &f.HouseholdSize, &f.Location.State, &f.Location.County, &f.Assets, &f.Liabilities,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("financials for case %s: %w", caseID, tax.ErrNotFound)
		}

		return nil, fmt.Errorf("getting financials: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, actual, no_standard
		FROM interview_expenses
		WHERE case_id = $1
		ORDER BY category ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e resolution.Expense
		if err := rows.Scan(&e.Category, &e.Actual, &e.NoStandard); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		f.Expenses = append(f.Expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}

	return &f, nil
}

// SaveAnalysis replaces the stored projections, statutes and resolution
// options of the case in one transaction. Years that failed keep no
// derived rows.
func (s *Store) SaveAnalysis(ctx context.Context, a *analysis.CaseAnalysis) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer dbTx.Rollback()

	for _, y := range a.Years {
		if err := replaceYear(ctx, dbTx, y); err != nil {
			return fmt.Errorf("saving tax year %d: %w", y.TaxYear.Year, err)
		}
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM resolution_options WHERE case_id = $1`, a.Case.ID); err != nil {
		return fmt.Errorf("clearing resolution options: %w", err)
	}

	if a.Resolution != nil {
		if err := insertOptions(ctx, dbTx, a.Case.ID, a.Resolution); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}

	return nil
}

func replaceYear(ctx context.Context, dbTx *sql.Tx, y analysis.YearAnalysis) error {
	id := y.TaxYear.ID

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM tax_projections WHERE tax_year_id = $1`, id); err != nil {
		return fmt.Errorf("clearing projection: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM csed_results WHERE tax_year_id = $1`, id); err != nil {
		return fmt.Errorf("clearing csed: %w", err)
	}

	if y.Err != nil {
		return nil
	}

	if p := y.Projection; p != nil {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding projection: %w", err)
		}

		_, err = dbTx.ExecContext(ctx, `
			INSERT INTO tax_projections (tax_year_id, total_income, taxable_income, total_tax, balance, payload, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			id, p.TotalIncome, p.TaxableIncome, p.TotalTax, p.Balance, payload)
		if err != nil {
			return fmt.Errorf("inserting projection: %w", err)
		}
	}

	payload, err := json.Marshal(y.CSED)
	if err != nil {
		return fmt.Errorf("encoding csed: %w", err)
	}

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO csed_results (tax_year_id, base_date, final_state, final_date, payload, computed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		id, nullDate(y.CSED.Base), string(y.CSED.Final.State()), nullDate(y.CSED.Final), payload)
	if err != nil {
		return fmt.Errorf("inserting csed: %w", err)
	}

	return nil
}

// Option kinds as stored in resolution_options.kind.
const (
	KindInstallmentAgreement    = "installment_agreement"
	KindOfferInCompromise       = "offer_in_compromise"
	KindCurrentlyNotCollectible = "currently_not_collectible"
)

func insertOptions(ctx context.Context, dbTx *sql.Tx, caseID uuid.UUID, opts *resolution.Options) error {
	type row struct {
		kind     string
		eligible bool
		amount   decimal.Decimal
		payload  any
	}

	rows := []row{
		{KindInstallmentAgreement, opts.InstallmentAgreement.Eligible, opts.InstallmentAgreement.MonthlyPayment, opts.InstallmentAgreement},
		{KindOfferInCompromise, opts.OfferInCompromise.Eligible, opts.OfferInCompromise.Offer, opts.OfferInCompromise},
		{KindCurrentlyNotCollectible, opts.CurrentlyNotCollectible.Eligible, decimal.Zero, opts.CurrentlyNotCollectible},
	}

	for _, r := range rows {
		payload, err := json.Marshal(r.payload)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", r.kind, err)
		}

		_, err = dbTx.ExecContext(ctx, `
			INSERT INTO resolution_options (case_id, kind, eligible, amount, disposable_income, payload, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			caseID, r.kind, r.eligible, r.amount, opts.DisposableIncome, payload)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", r.kind, err)
		}
	}

	return nil
}

func nullDate(d csed.Date) sql.NullTime {
	t, err := d.Time()
	if err != nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t, Valid: true}
}
