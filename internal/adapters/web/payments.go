package web

import (
	"net/http"

	"payables-engine/internal/app"
)

// applyPayment handles POST /api/payments.
// Body: { payment_ref, vendor_code, payment_date, amount, cash_account_code,
//         allocations: [{voucher_id, amount}] }
func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	var req app.ApplyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.svc.ApplyPayment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, payment)
}

// getPayment handles GET /api/payments/{id}.
func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "payment")
	if !ok {
		return
	}
	payment, err := h.svc.GetPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payment)
}

// voidPayment handles POST /api/payments/{id}/void.
func (h *Handler) voidPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "payment")
	if !ok {
		return
	}
	payment, err := h.svc.VoidPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payment)
}
