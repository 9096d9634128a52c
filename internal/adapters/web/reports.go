package web

import (
	"net/http"
)

// trialBalance handles GET /api/reports/trial-balance.
func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	balances, err := h.svc.GetTrialBalance(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, balances)
}

// getPosting handles GET /api/postings/{id}.
func (h *Handler) getPosting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "posting")
	if !ok {
		return
	}
	posting, err := h.svc.GetPosting(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, posting)
}
