package analysis

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
	"github.com/MrJamesThe3rd/taxres/internal/export"
	"github.com/MrJamesThe3rd/taxres/internal/http/respond"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *analysis.Service
}

func NewHandler(svc *analysis.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts under /cases.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}/analysis", h.get)
	r.Post("/{id}/analysis", h.recompute)
	r.Get("/{id}/analysis/export", h.export)
}

func caseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid case id", tax.ErrInvalidInput)
	}

	return id, nil
}

func (h *Handler) analyze(r *http.Request, persist bool) (*analysis.CaseAnalysis, error) {
	id, err := caseID(r)
	if err != nil {
		return nil, err
	}

	asOf, err := respond.AsOf(r)
	if err != nil {
		return nil, err
	}

	if persist {
		return h.svc.Recompute(r.Context(), id, asOf)
	}

	return h.svc.Analyze(r.Context(), id, asOf)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	a, err := h.analyze(r, false)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) recompute(w http.ResponseWriter, r *http.Request) {
	a, err := h.analyze(r, true)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	a, err := h.analyze(r, false)
	if err != nil {
		respond.Error(w, err)
		return
	}

	f, err := export.Workbook(a)
	if err != nil {
		respond.Error(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(a)))

	if _, err := f.WriteTo(w); err != nil {
		slog.Error("failed to write workbook", "case_id", a.Case.ID, "error", err)
	}
}
