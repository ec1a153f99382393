package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Set loads every rule table and indexes it.
func (s *Store) Set(ctx context.Context) (*rules.Set, error) {
	t, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	set, err := rules.NewSet(t)
	if err != nil {
		return nil, fmt.Errorf("indexing stored rules: %w", err)
	}

	return set, nil
}

func (s *Store) Load(ctx context.Context) (rules.Tables, error) {
	var (
		t   rules.Tables
		err error
	)

	if t.TransactionCodes, err = s.transactionCodes(ctx); err != nil {
		return rules.Tables{}, err
	}

	if t.IncomeForms, err = s.incomeForms(ctx); err != nil {
		return rules.Tables{}, err
	}

	if t.Tolling, err = s.tolling(ctx); err != nil {
		return rules.Tables{}, err
	}

	if t.TaxBrackets, err = s.taxBrackets(ctx); err != nil {
		return rules.Tables{}, err
	}

	if t.StandardDeductions, err = s.standardDeductions(ctx); err != nil {
		return rules.Tables{}, err
	}

	if t.CollectionStandards, err = s.collectionStandards(ctx); err != nil {
		return rules.Tables{}, err
	}

	return t, nil
}

func (s *Store) transactionCodes(ctx context.Context) ([]rules.TransactionCodeRule, error) {
	query := `
		SELECT code, description, classification, affects_balance, affects_csed,
		       collection_action, opens_tolling, closes_tolling
		FROM transaction_code_rules
		ORDER BY code`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing transaction code rules: %w", err)
	}
	defer rows.Close()

	var out []rules.TransactionCodeRule

	for rows.Next() {
		var r rules.TransactionCodeRule
		if err := rows.Scan(&r.Code, &r.Description, &r.Classification, &r.AffectsBalance, &r.AffectsCSED,
			&r.CollectionAction, &r.OpensTolling, &r.ClosesTolling); err != nil {
			return nil, fmt.Errorf("scanning transaction code rule: %w", err)
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *Store) incomeForms(ctx context.Context) ([]rules.IncomeFormRule, error) {
	query := `SELECT form_code, category, self_employment, excluded FROM income_form_rules ORDER BY form_code`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing income form rules: %w", err)
	}
	defer rows.Close()

	var out []rules.IncomeFormRule

	for rows.Next() {
		var r rules.IncomeFormRule
		if err := rows.Scan(&r.FormCode, &r.Category, &r.SelfEmployment, &r.Excluded); err != nil {
			return nil, fmt.Errorf("scanning income form rule: %w", err)
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

// Code lists are stored comma separated.
func (s *Store) tolling(ctx context.Context) ([]rules.TollingRule, error) {
	query := `
		SELECT category, start_codes, end_codes, extension_days, extension_codes, point_event
		FROM tolling_rules
		ORDER BY category`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tolling rules: %w", err)
	}
	defer rows.Close()

	var out []rules.TollingRule

	for rows.Next() {
		var (
			r                    rules.TollingRule
			category             string
			starts, ends, extend string
		)

		if err := rows.Scan(&category, &starts, &ends, &r.ExtensionDays, &extend, &r.PointEvent); err != nil {
			return nil, fmt.Errorf("scanning tolling rule: %w", err)
		}

		r.Category = rules.TollingCategory(category)
		r.StartCodes = splitCodes(starts)
		r.EndCodes = splitCodes(ends)
		r.ExtensionCodes = splitCodes(extend)

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *Store) taxBrackets(ctx context.Context) ([]rules.TaxBracket, error) {
	query := `SELECT year, filing_status, floor, ceiling, rate FROM tax_brackets ORDER BY year, filing_status, floor`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tax brackets: %w", err)
	}
	defer rows.Close()

	var out []rules.TaxBracket

	for rows.Next() {
		var (
			b       rules.TaxBracket
			status  string
			ceiling decimal.NullDecimal
		)

		if err := rows.Scan(&b.Year, &status, &b.Floor, &ceiling, &b.Rate); err != nil {
			return nil, fmt.Errorf("scanning tax bracket: %w", err)
		}

		b.FilingStatus = tax.FilingStatus(status)
		if ceiling.Valid {
			b.Ceiling = &ceiling.Decimal
		}

		out = append(out, b)
	}

	return out, rows.Err()
}

func (s *Store) standardDeductions(ctx context.Context) ([]rules.StandardDeduction, error) {
	query := `SELECT year, filing_status, amount FROM standard_deductions ORDER BY year, filing_status`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing standard deductions: %w", err)
	}
	defer rows.Close()

	var out []rules.StandardDeduction

	for rows.Next() {
		var (
			d      rules.StandardDeduction
			status string
		)

		if err := rows.Scan(&d.Year, &status, &d.Amount); err != nil {
			return nil, fmt.Errorf("scanning standard deduction: %w", err)
		}

		d.FilingStatus = tax.FilingStatus(status)
		out = append(out, d)
	}

	return out, rows.Err()
}

func (s *Store) collectionStandards(ctx context.Context) ([]rules.CollectionStandard, error) {
	query := `
		SELECT category, household_size, state, county, amount, additional_per_person
		FROM collection_standards
		ORDER BY category, state, county, household_size`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing collection standards: %w", err)
	}
	defer rows.Close()

	var out []rules.CollectionStandard

	for rows.Next() {
		var c rules.CollectionStandard
		if err := rows.Scan(&c.Category, &c.HouseholdSize, &c.State, &c.County, &c.Amount, &c.AdditionalPerPerson); err != nil {
			return nil, fmt.Errorf("scanning collection standard: %w", err)
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

func splitCodes(s string) []string {
	var codes []string

	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}

	return codes
}

func importLockKey() int64 {
	h := fnv.New64a()
	h.Write([]byte("rule_tables"))

	return int64(h.Sum64())
}

// Import upserts the given tables in one transaction. Bracket tables are
// replaced per (year, filing status) so stale bands cannot survive.
// Imports are serialized with an advisory lock.
func (s *Store) Import(ctx context.Context, t rules.Tables) error {
	// The merged result must still index before anything is written.
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}

	if _, err := rules.NewSet(current.Merge(t)); err != nil {
		return fmt.Errorf("validating import: %w", err)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rules import: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey()); err != nil {
		return fmt.Errorf("acquiring rules import lock: %w", err)
	}

	for _, r := range t.TransactionCodes {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO transaction_code_rules (code, description, classification, affects_balance, affects_csed,
			                                    collection_action, opens_tolling, closes_tolling)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (code) DO UPDATE SET
				description = EXCLUDED.description, classification = EXCLUDED.classification,
				affects_balance = EXCLUDED.affects_balance, affects_csed = EXCLUDED.affects_csed,
				collection_action = EXCLUDED.collection_action, opens_tolling = EXCLUDED.opens_tolling,
				closes_tolling = EXCLUDED.closes_tolling`,
			r.Code, r.Description, r.Classification, r.AffectsBalance, r.AffectsCSED,
			r.CollectionAction, r.OpensTolling, r.ClosesTolling)
		if err != nil {
			return fmt.Errorf("upserting transaction code %s: %w", r.Code, err)
		}
	}

	for _, r := range t.IncomeForms {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO income_form_rules (form_code, category, self_employment, excluded)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (form_code) DO UPDATE SET
				category = EXCLUDED.category, self_employment = EXCLUDED.self_employment, excluded = EXCLUDED.excluded`,
			r.FormCode, r.Category, r.SelfEmployment, r.Excluded)
		if err != nil {
			return fmt.Errorf("upserting income form %s: %w", r.FormCode, err)
		}
	}

	for _, r := range t.Tolling {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO tolling_rules (category, start_codes, end_codes, extension_days, extension_codes, point_event)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (category) DO UPDATE SET
				start_codes = EXCLUDED.start_codes, end_codes = EXCLUDED.end_codes,
				extension_days = EXCLUDED.extension_days, extension_codes = EXCLUDED.extension_codes,
				point_event = EXCLUDED.point_event`,
			string(r.Category), strings.Join(r.StartCodes, ","), strings.Join(r.EndCodes, ","),
			r.ExtensionDays, strings.Join(r.ExtensionCodes, ","), r.PointEvent)
		if err != nil {
			return fmt.Errorf("upserting tolling rule %s: %w", r.Category, err)
		}
	}

	cleared := make(map[string]bool)

	for _, b := range t.TaxBrackets {
		key := fmt.Sprintf("%d/%s", b.Year, b.FilingStatus)
		if !cleared[key] {
			if _, err := dbTx.ExecContext(ctx, `DELETE FROM tax_brackets WHERE year = $1 AND filing_status = $2`,
				b.Year, string(b.FilingStatus)); err != nil {
				return fmt.Errorf("clearing tax brackets %s: %w", key, err)
			}

			cleared[key] = true
		}

		ceiling := decimal.NullDecimal{}
		if b.Ceiling != nil {
			ceiling = decimal.NewNullDecimal(*b.Ceiling)
		}

		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO tax_brackets (year, filing_status, floor, ceiling, rate)
			VALUES ($1, $2, $3, $4, $5)`,
			b.Year, string(b.FilingStatus), b.Floor, ceiling, b.Rate)
		if err != nil {
			return fmt.Errorf("inserting tax bracket %s: %w", key, err)
		}
	}

	for _, d := range t.StandardDeductions {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO standard_deductions (year, filing_status, amount)
			VALUES ($1, $2, $3)
			ON CONFLICT (year, filing_status) DO UPDATE SET amount = EXCLUDED.amount`,
			d.Year, string(d.FilingStatus), d.Amount)
		if err != nil {
			return fmt.Errorf("upserting standard deduction %d/%s: %w", d.Year, d.FilingStatus, err)
		}
	}

	for _, c := range t.CollectionStandards {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO collection_standards (category, household_size, state, county, amount, additional_per_person)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (category, state, county, household_size) DO UPDATE SET
				amount = EXCLUDED.amount, additional_per_person = EXCLUDED.additional_per_person`,
			c.Category, c.HouseholdSize, c.State, c.County, c.Amount, c.AdditionalPerPerson)
		if err != nil {
			return fmt.Errorf("upserting collection standard %s/%d: %w", c.Category, c.HouseholdSize, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing rules import: %w", err)
	}

	return nil
}
