package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dejobratic/salestax/internal/tax/app"
	"github.com/dejobratic/salestax/internal/tax/app/queries"
	"github.com/dejobratic/salestax/internal/tax/domain"
)

// Handler exposes the tax use cases to the storefront host over HTTP.
type Handler struct {
	service *app.Service
}

func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the tax handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/tax/calculate", h.calculateTax)
	mux.HandleFunc("GET /v1/tax/calculations", h.listCalculations)
}

type calculateTaxRequest struct {
	OrderID       string  `json:"order_id"`
	TaxableAmount float64 `json:"taxable_amount"`
	CurrencyCode  string  `json:"currency_code"`
	// Step is the checkout module the host is running. Empty means a tax step.
	Step string `json:"step,omitempty"`
}

type calculateTaxResponse struct {
	Status     app.StatusCode `json:"status"`
	TaxAmount  []float64      `json:"tax_amount"`
	Calculated bool           `json:"calculated"`
}

// calculateTax answers with status 0 for every well-formed request. Calculation
// failures are reported as a zero tax amount.
func (h *Handler) calculateTax(w http.ResponseWriter, r *http.Request) {
	var payload calculateTaxRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	taxAmount := []float64{0}

	if payload.Step != "" && !domain.IsTaxStep(payload.Step) {
		writeJSON(w, http.StatusOK, calculateTaxResponse{
			Status:    app.StatusSuccess,
			TaxAmount: taxAmount,
		})
		return
	}

	status := h.service.CalculateTax(r.Context(), payload.OrderID, payload.TaxableAmount, payload.CurrencyCode, taxAmount)

	writeJSON(w, http.StatusOK, calculateTaxResponse{
		Status:     status,
		TaxAmount:  taxAmount,
		Calculated: true,
	})
}

func (h *Handler) listCalculations(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := queries.ListCalculationsQuery{OrderID: params.Get("order_id")}

	var err error
	if query.Page, err = intParam(params.Get("page")); err != nil {
		writeError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	if query.PageSize, err = intParam(params.Get("page_size")); err != nil {
		writeError(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	records, err := h.service.ListCalculations(r.Context(), query)
	if err != nil {
		if errors.Is(err, queries.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"calculations": records})
}

func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
