// Package facts reads the facts of one or more cases from JSON documents and
// serves them through analysis.Repository, for offline runs without a
// database.
package facts

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/resolution"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

// TaxYear is a tax year together with its transcript, income documents and
// manually recorded tolling events.
type TaxYear struct {
	tax.TaxYear
	Transactions  []tax.AccountTransaction `json:"transactions"`
	Documents     []tax.IncomeDocument     `json:"documents"`
	TollingEvents []csed.TollingEvent      `json:"tolling_events"`
}

// Document is the fact file of one case.
type Document struct {
	Case       tax.Case               `json:"case"`
	TaxYears   []TaxYear              `json:"tax_years"`
	Financials *resolution.Financials `json:"financials,omitempty"`
}

// Decode reads a document and fills in missing ids and parent references.
func Decode(r io.Reader) (*Document, error) {
	var d Document

	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decoding facts: %v", tax.ErrInvalidInput, err)
	}

	if err := d.normalize(); err != nil {
		return nil, err
	}

	return &d, nil
}

// ReadFile decodes the document at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening facts file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

func (d *Document) normalize() error {
	if d.Case.ID == uuid.Nil {
		d.Case.ID = uuid.New()
	}

	if d.Case.PrimaryID == "" {
		return fmt.Errorf("%w: case %q has no primary taxpayer id", tax.ErrInvalidInput, d.Case.CaseNumber)
	}

	seen := make(map[int]bool, len(d.TaxYears))

	for i := range d.TaxYears {
		ty := &d.TaxYears[i]

		if err := ty.Validate(); err != nil {
			return err
		}

		if seen[ty.Year] {
			return fmt.Errorf("%w: tax year %d listed twice", tax.ErrInvalidInput, ty.Year)
		}

		seen[ty.Year] = true

		if ty.ID == uuid.Nil {
			ty.ID = uuid.New()
		}

		ty.CaseID = d.Case.ID

		for j := range ty.Transactions {
			ty.Transactions[j].TaxYearID = ty.ID
		}

		for j := range ty.Documents {
			ty.Documents[j].TaxYearID = ty.ID
		}
	}

	slices.SortFunc(d.TaxYears, func(a, b TaxYear) int { return cmp.Compare(a.Year, b.Year) })

	return nil
}

// Memory is an in-memory analysis.Repository. Saved analyses are kept per
// case and returned by Saved.
type Memory struct {
	cases map[uuid.UUID]*Document
	years map[uuid.UUID]*TaxYear

	mu    sync.Mutex
	saved map[uuid.UUID]*analysis.CaseAnalysis
}

var _ analysis.Repository = (*Memory)(nil)

func NewMemory(docs ...*Document) *Memory {
	m := &Memory{
		cases: make(map[uuid.UUID]*Document, len(docs)),
		years: make(map[uuid.UUID]*TaxYear),
		saved: make(map[uuid.UUID]*analysis.CaseAnalysis),
	}

	for _, d := range docs {
		m.cases[d.Case.ID] = d

		for i := range d.TaxYears {
			m.years[d.TaxYears[i].ID] = &d.TaxYears[i]
		}
	}

	return m
}

func (m *Memory) GetCase(_ context.Context, id uuid.UUID) (*tax.Case, error) {
	d, ok := m.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: case %s", tax.ErrNotFound, id)
	}

	c := d.Case

	return &c, nil
}

func (m *Memory) ListTaxYears(_ context.Context, caseID uuid.UUID) ([]tax.TaxYear, error) {
	d, ok := m.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: case %s", tax.ErrNotFound, caseID)
	}

	out := make([]tax.TaxYear, len(d.TaxYears))
	for i, ty := range d.TaxYears {
		out[i] = ty.TaxYear
	}

	return out, nil
}

func (m *Memory) year(id uuid.UUID) (*TaxYear, error) {
	ty, ok := m.years[id]
	if !ok {
		return nil, fmt.Errorf("%w: tax year %s", tax.ErrNotFound, id)
	}

	return ty, nil
}

func (m *Memory) ListTransactions(_ context.Context, taxYearID uuid.UUID) ([]tax.AccountTransaction, error) {
	ty, err := m.year(taxYearID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(ty.Transactions), nil
}

func (m *Memory) ListIncomeDocuments(_ context.Context, taxYearID uuid.UUID) ([]tax.IncomeDocument, error) {
	ty, err := m.year(taxYearID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(ty.Documents), nil
}

func (m *Memory) ListTollingEvents(_ context.Context, taxYearID uuid.UUID) ([]csed.TollingEvent, error) {
	ty, err := m.year(taxYearID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(ty.TollingEvents), nil
}

func (m *Memory) GetFinancials(_ context.Context, caseID uuid.UUID) (*resolution.Financials, error) {
	d, ok := m.cases[caseID]
	if !ok || d.Financials == nil {
		return nil, fmt.Errorf("%w: financials for case %s", tax.ErrNotFound, caseID)
	}

	f := *d.Financials
	f.Expenses = slices.Clone(f.Expenses)

	return &f, nil
}

func (m *Memory) SaveAnalysis(_ context.Context, a *analysis.CaseAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved[a.Case.ID] = a

	return nil
}

// Saved returns the last analysis saved for the case.
func (m *Memory) Saved(caseID uuid.UUID) (*analysis.CaseAnalysis, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.saved[caseID]

	return a, ok
}
