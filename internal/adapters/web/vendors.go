package web

import (
	"net/http"
	"strconv"

	"payables-engine/internal/app"

	"github.com/go-chi/chi/v5"
)

// listVendors handles GET /api/vendors.
func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.svc.ListVendors(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, vendors)
}

// createVendor handles POST /api/vendors.
// Body: { code, name, address_line1?, address_line2?, payment_terms_days?,
//         discount_percent?, discount_days?, ap_account_code?, reportable_1099? }
func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	var req app.CreateVendorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vendor, err := h.svc.CreateVendor(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, vendor)
}

// getVendor handles GET /api/vendors/{code}.
func (h *Handler) getVendor(w http.ResponseWriter, r *http.Request) {
	vendor, err := h.svc.GetVendor(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, vendor)
}

// get1099Summary handles GET /api/vendors/{code}/1099/{year}.
func (h *Handler) get1099Summary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, r, "invalid tax year", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	summary, err := h.svc.Get1099Summary(r.Context(), chi.URLParam(r, "code"), year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}
