package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edgarlens/edgarlens/internal/core"
	"github.com/edgarlens/edgarlens/internal/core/engine"
	"github.com/edgarlens/edgarlens/internal/edgar"
	apperrors "github.com/edgarlens/edgarlens/internal/errors"
)

// maxBatchIDs bounds one batch request body.
const maxBatchIDs = 100

// EDGARService is the subset of the EDGAR client the HTTP surface uses.
// *edgar.AsyncClient satisfies it.
type EDGARService interface {
	Submissions(ctx context.Context, sel edgar.Selector) (*core.SubmissionHistory, error)
	CompanyConcept(ctx context.Context, sel edgar.Selector, taxonomy, tag string) (*core.CompanyConcept, error)
	CompanyFacts(ctx context.Context, sel edgar.Selector) (*core.CompanyFacts, error)
	Frames(ctx context.Context, taxonomy, tag, unit string, period any, instantaneous bool) (*core.Frame, error)
	GetCIK(ctx context.Context, lookup edgar.Lookup) (string, error)
	Universe(ctx context.Context) ([]core.Company, error)
	SubmissionsBatch(ctx context.Context, selectors []edgar.Selector, opts engine.BatchOptions) ([]engine.BatchItem[*core.SubmissionHistory], error)
	CompanyFactsBatch(ctx context.Context, selectors []edgar.Selector, opts engine.BatchOptions) ([]engine.BatchItem[*core.CompanyFacts], error)
}

// EDGARHandler serves the /v1 API over an EDGARService.
type EDGARHandler struct {
	service EDGARService
}

// NewEDGARHandler creates handlers bound to service.
func NewEDGARHandler(service EDGARService) *EDGARHandler {
	return &EDGARHandler{service: service}
}

// CIKResponse is returned by the lookup endpoint.
type CIKResponse struct {
	CIK string `json:"cik"`
}

// BatchRequest is the body of the batch endpoints. Each id is a ticker or a CIK.
type BatchRequest struct {
	IDs         []string `json:"ids"`
	Concurrency int      `json:"concurrency,omitempty"`
	FailFast    bool     `json:"fail_fast,omitempty"`
}

// BatchResult is one entry of a batch response, in request order.
type BatchResult struct {
	ID    string                     `json:"id"`
	Data  any                        `json:"data,omitempty"`
	Error *apperrors.HTTPErrorDetail `json:"error,omitempty"`
}

// BatchResponse wraps the per-id outcomes.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// Submissions handles GET /v1/submissions/{id}.
func (h *EDGARHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Submissions(r.Context(), edgar.ParseSelector(chi.URLParam(r, "id")))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CompanyConcept handles GET /v1/concept/{id}/{taxonomy}/{tag}.
func (h *EDGARHandler) CompanyConcept(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CompanyConcept(r.Context(),
		edgar.ParseSelector(chi.URLParam(r, "id")),
		chi.URLParam(r, "taxonomy"),
		chi.URLParam(r, "tag"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CompanyFacts handles GET /v1/facts/{id}.
func (h *EDGARHandler) CompanyFacts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CompanyFacts(r.Context(), edgar.ParseSelector(chi.URLParam(r, "id")))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Frames handles GET /v1/frames/{taxonomy}/{tag}/{unit}/{period}.
// The period is either a CY code or a YYYY-MM-DD date.
func (h *EDGARHandler) Frames(w http.ResponseWriter, r *http.Request) {
	instantaneous := false
	if raw := r.URL.Query().Get("instantaneous"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, r, apperrors.NewInvalidInputError("instantaneous must be a boolean."))
			return
		}
		instantaneous = parsed
	}

	result, err := h.service.Frames(r.Context(),
		chi.URLParam(r, "taxonomy"),
		chi.URLParam(r, "tag"),
		chi.URLParam(r, "unit"),
		chi.URLParam(r, "period"),
		instantaneous)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CIK handles GET /v1/cik?ticker=... or /v1/cik?q=....
func (h *EDGARHandler) CIK(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	cik, err := h.service.GetCIK(r.Context(), edgar.Lookup{
		Ticker:     query.Get("ticker"),
		SearchText: query.Get("q"),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CIKResponse{CIK: cik})
}

// Universe handles GET /v1/companies.
func (h *EDGARHandler) Universe(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.Universe(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	companies = edgar.FilterByTickerPrefix(companies, r.URL.Query().Get("ticker_prefix"))
	writeJSON(w, http.StatusOK, companies)
}

// SubmissionsBatch handles POST /v1/batch/submissions.
func (h *EDGARHandler) SubmissionsBatch(w http.ResponseWriter, r *http.Request) {
	selectors, opts, ok := decodeBatchRequest(w, r)
	if !ok {
		return
	}
	items, err := h.service.SubmissionsBatch(r.Context(), selectors, opts)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse(r.Context(), items))
}

// CompanyFactsBatch handles POST /v1/batch/facts.
func (h *EDGARHandler) CompanyFactsBatch(w http.ResponseWriter, r *http.Request) {
	selectors, opts, ok := decodeBatchRequest(w, r)
	if !ok {
		return
	}
	items, err := h.service.CompanyFactsBatch(r.Context(), selectors, opts)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse(r.Context(), items))
}

func decodeBatchRequest(w http.ResponseWriter, r *http.Request) ([]edgar.Selector, engine.BatchOptions, bool) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be a JSON object with an ids list."))
		return nil, engine.BatchOptions{}, false
	}
	if len(req.IDs) == 0 {
		respondWithError(w, r, apperrors.NewInvalidInputError("ids must not be empty."))
		return nil, engine.BatchOptions{}, false
	}
	if len(req.IDs) > maxBatchIDs {
		respondWithError(w, r, apperrors.NewInvalidInputError("ids must contain at most "+strconv.Itoa(maxBatchIDs)+" entries."))
		return nil, engine.BatchOptions{}, false
	}

	selectors := make([]edgar.Selector, len(req.IDs))
	for i, id := range req.IDs {
		selectors[i] = edgar.ParseSelector(id)
	}
	return selectors, engine.BatchOptions{Concurrency: req.Concurrency, FailFast: req.FailFast}, true
}

func batchResponse[T any](ctx context.Context, items []engine.BatchItem[T]) BatchResponse {
	results := make([]BatchResult, len(items))
	for i, item := range items {
		results[i] = BatchResult{ID: item.Key}
		if item.Err != nil {
			envelope := apperrors.FromClientError(ctx, item.Err)
			results[i].Error = &apperrors.HTTPErrorDetail{
				Code:    envelope.Code,
				Message: envelope.Message,
			}
			continue
		}
		results[i].Data = item.Value
	}
	return BatchResponse{Results: results}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondWithError maps client failures with apperrors.FromClientError, so
// validation, lookup and upstream errors keep distinct codes and statuses.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
