// Package analysis runs the calculators over every tax year of a case and
// aggregates the results into debt, statute and resolution figures.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/taxres/internal/account"
	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/projection"
	"github.com/MrJamesThe3rd/taxres/internal/resolution"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=analysis
type Repository interface {
	GetCase(ctx context.Context, id uuid.UUID) (*tax.Case, error)
	ListTaxYears(ctx context.Context, caseID uuid.UUID) ([]tax.TaxYear, error)
	ListTransactions(ctx context.Context, taxYearID uuid.UUID) ([]tax.AccountTransaction, error)
	ListIncomeDocuments(ctx context.Context, taxYearID uuid.UUID) ([]tax.IncomeDocument, error)
	ListTollingEvents(ctx context.Context, taxYearID uuid.UUID) ([]csed.TollingEvent, error)
	// GetFinancials returns tax.ErrNotFound when the case has no interview.
	GetFinancials(ctx context.Context, caseID uuid.UUID) (*resolution.Financials, error)
	SaveAnalysis(ctx context.Context, a *CaseAnalysis) error
}

const defaultWorkers = 4

type Service struct {
	repo    Repository
	rules   rules.Repository
	workers int
}

// NewService builds a Service that runs at most workers tax years (or cases)
// at once. Non-positive workers fall back to a small default.
func NewService(repo Repository, rs rules.Repository, workers int) *Service {
	if workers <= 0 {
		workers = defaultWorkers
	}

	return &Service{repo: repo, rules: rs, workers: workers}
}

// Analyze computes every tax year of the case in parallel. A year that fails
// keeps its error and is left out of the aggregates; the others proceed.
// Resolution options are not evaluated while any year has failed.
func (s *Service) Analyze(ctx context.Context, caseID uuid.UUID, asOf time.Time) (*CaseAnalysis, error) {
	c, err := s.repo.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("getting case: %w", err)
	}

	years, err := s.repo.ListTaxYears(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing tax years: %w", err)
	}

	a := &CaseAnalysis{
		Case:  c,
		AsOf:  asOf,
		Years: make([]YearAnalysis, len(years)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, ty := range years {
		g.Go(func() error {
			y, err := s.analyzeYear(gctx, c, ty, asOf)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}

				slog.Warn("analyzing tax year", "case_id", c.ID, "year", ty.Year, "error", err)

				y.Err = err
				y.Error = err.Error()
			}

			a.Years[i] = y

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyzing case %s: %w", c.CaseNumber, err)
	}

	a.TotalDebt, a.BindingCSED = aggregate(a.Years)

	if err := s.evaluateResolution(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) analyzeYear(ctx context.Context, c *tax.Case, ty tax.TaxYear, asOf time.Time) (YearAnalysis, error) {
	y := YearAnalysis{TaxYear: ty}

	txs, err := s.repo.ListTransactions(ctx, ty.ID)
	if err != nil {
		return y, fmt.Errorf("listing transactions: %w", err)
	}

	events, err := s.repo.ListTollingEvents(ctx, ty.ID)
	if err != nil {
		return y, fmt.Errorf("listing tolling events: %w", err)
	}

	docs, err := s.repo.ListIncomeDocuments(ctx, ty.ID)
	if err != nil {
		return y, fmt.Errorf("listing income documents: %w", err)
	}

	if y.Balance, err = account.Balance(txs, s.rules); err != nil {
		return y, err
	}

	if y.CSED, err = csed.Compute(ty, txs, events, s.rules, asOf); err != nil {
		return y, err
	}

	if y.AUR, err = account.DetectAUR(ty, txs, s.rules); err != nil {
		return y, err
	}

	if y.SFR, err = account.DetectSFR(ty, txs); err != nil {
		return y, err
	}

	if len(docs) > 0 {
		p, err := projection.Compute(c, ty, docs, s.rules)
		if err != nil {
			return y, err
		}

		y.Projection = &p
	}

	y.Debt = yearDebt(y)

	return y, nil
}

// yearDebt counts a filed year at its assessed balance. An unfiled year
// counts at the larger of its assessed and projected balance so a
// substitute assessment and the projection are not added together.
func yearDebt(y YearAnalysis) decimal.Decimal {
	debt := decimal.Max(decimal.Zero, y.Balance)

	if !y.TaxYear.ReturnFiled && y.Projection != nil {
		debt = decimal.Max(debt, y.Projection.Balance)
	}

	return debt
}

func aggregate(years []YearAnalysis) (decimal.Decimal, csed.Date) {
	total := decimal.Zero
	binding := csed.Undefined()
	open := false

	for _, y := range years {
		if y.Err != nil || !y.Debt.IsPositive() {
			continue
		}

		total = total.Add(y.Debt)

		statute := y.Statute()
		switch {
		case statute.IsDetermined():
			if !binding.IsDetermined() || statute.Before(binding) {
				binding = statute
			}
		case statute.State() == csed.StateOpen:
			open = true
		}
	}

	if !binding.IsDetermined() && open {
		binding = csed.Open()
	}

	return total, binding
}

func (s *Service) evaluateResolution(ctx context.Context, a *CaseAnalysis) error {
	stored, err := s.repo.GetFinancials(ctx, a.Case.ID)
	if errors.Is(err, tax.ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("getting financials: %w", err)
	}

	if failed := a.Failed(); len(failed) > 0 {
		years := make([]string, len(failed))
		for i, y := range failed {
			years[i] = strconv.Itoa(y.TaxYear.Year)
		}

		a.ResolutionError = fmt.Sprintf("resolution not evaluated: tax years %s failed", strings.Join(years, ", "))

		return nil
	}

	f := *stored
	f.TotalDebt = a.TotalDebt
	f.CSED = a.BindingCSED
	f.AsOf = a.AsOf

	if f.Location == (tax.Location{}) {
		f.Location = a.Case.Location
	}

	opts, err := resolution.Evaluate(f, s.rules)
	if err != nil {
		slog.Warn("evaluating resolutions", "case_id", a.Case.ID, "error", err)

		a.ResolutionError = err.Error()

		return nil
	}

	a.Resolution = &opts

	return nil
}

// AnalyzeBatch analyzes many cases in parallel. Each result carries its own
// error; one failing case never hides the others.
func (s *Service) AnalyzeBatch(ctx context.Context, caseIDs []uuid.UUID, asOf time.Time) []BatchResult {
	results := make([]BatchResult, len(caseIDs))

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, id := range caseIDs {
		g.Go(func() error {
			res := BatchResult{CaseID: id}

			a, err := s.Analyze(ctx, id, asOf)
			if err != nil {
				slog.Warn("analyzing case", "case_id", id, "error", err)

				res.Err = err
				res.Error = err.Error()
			}

			res.Analysis = a
			results[i] = res

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// Recompute analyzes the case and replaces its stored projections and
// resolution options with the new results.
func (s *Service) Recompute(ctx context.Context, caseID uuid.UUID, asOf time.Time) (*CaseAnalysis, error) {
	a, err := s.Analyze(ctx, caseID, asOf)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("saving analysis: %w", err)
	}

	return a, nil
}
