package web

import (
	"net/http"
	"strconv"

	"payables-engine/internal/app"

	"github.com/go-chi/chi/v5"
)

// createVoucher handles POST /api/vouchers.
// Body: { vendor_code, invoice_number, invoice_date, due_date?, gross_amount, lines: [{account_code, amount}] }
func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req app.CreateVoucherRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	voucher, err := h.svc.CreateVoucher(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, voucher)
}

// getVoucher handles GET /api/vouchers/{id}.
func (h *Handler) getVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "voucher")
	if !ok {
		return
	}
	voucher, err := h.svc.GetVoucher(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, voucher)
}

// voidVoucher handles POST /api/vouchers/{id}/void.
func (h *Handler) voidVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "voucher")
	if !ok {
		return
	}
	voucher, err := h.svc.VoidVoucher(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, voucher)
}

// pathID extracts and validates the numeric {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, what string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid "+what+" ID", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
