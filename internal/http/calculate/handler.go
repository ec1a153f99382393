// Package calculate serves the calculators over facts supplied in the
// request body. Nothing is read from or written to storage.
package calculate

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/facts"
	"github.com/MrJamesThe3rd/taxres/internal/http/respond"
	"github.com/MrJamesThe3rd/taxres/internal/projection"
	"github.com/MrJamesThe3rd/taxres/internal/resolution"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

type Handler struct {
	rules   rules.Repository
	workers int
}

func NewHandler(rs rules.Repository, workers int) *Handler {
	return &Handler{rules: rs, workers: workers}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/csed", h.csed)
	r.Post("/projection", h.projection)
	r.Post("/resolution", h.resolution)
	r.Post("/case", h.analyzeCase)
}

type csedRequest struct {
	TaxYear       tax.TaxYear              `json:"tax_year"`
	Transactions  []tax.AccountTransaction `json:"transactions"`
	TollingEvents []csed.TollingEvent      `json:"tolling_events"`
}

func (h *Handler) csed(w http.ResponseWriter, r *http.Request) {
	asOf, err := respond.AsOf(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req csedRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	res, err := csed.Compute(req.TaxYear, req.Transactions, req.TollingEvents, h.rules, asOf)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, res)
}

type projectionRequest struct {
	Case      tax.Case             `json:"case"`
	TaxYear   tax.TaxYear          `json:"tax_year"`
	Documents []tax.IncomeDocument `json:"documents"`
}

func (h *Handler) projection(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	p, err := projection.Compute(&req.Case, req.TaxYear, req.Documents, h.rules)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, p)
}

// resolution takes the financials with total_debt and csed filled in by the
// caller. as_of defaults to the query parameter.
func (h *Handler) resolution(w http.ResponseWriter, r *http.Request) {
	asOf, err := respond.AsOf(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var f resolution.Financials
	if err := respond.Decode(r, &f); err != nil {
		respond.Error(w, err)
		return
	}

	if f.AsOf.IsZero() {
		f.AsOf = asOf
	}

	opts, err := resolution.Evaluate(f, h.rules)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, opts)
}

// analyzeCase runs the full analysis over a facts document.
func (h *Handler) analyzeCase(w http.ResponseWriter, r *http.Request) {
	asOf, err := respond.AsOf(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	d, err := facts.Decode(r.Body)
	if err != nil {
		respond.Error(w, err)
		return
	}

	svc := analysis.NewService(facts.NewMemory(d), h.rules, h.workers)

	a, err := svc.Analyze(r.Context(), d.Case.ID, asOf)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, a)
}

