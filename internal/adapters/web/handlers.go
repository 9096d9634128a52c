package web

import (
	"net/http"

	"payables-engine/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	// 1 MB body limit to prevent unbounded request abuse.
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20))

		// Vouchers
		r.Post("/api/vouchers", h.createVoucher)
		r.Get("/api/vouchers/{id}", h.getVoucher)
		r.Post("/api/vouchers/{id}/void", h.voidVoucher)

		// Payments
		r.Post("/api/payments", h.applyPayment)
		r.Get("/api/payments/{id}", h.getPayment)
		r.Post("/api/payments/{id}/void", h.voidPayment)

		// Vendors
		r.Get("/api/vendors", h.listVendors)
		r.Post("/api/vendors", h.createVendor)
		r.Get("/api/vendors/{code}", h.getVendor)
		r.Get("/api/vendors/{code}/1099/{year}", h.get1099Summary)

		// Reports
		r.Get("/api/reports/trial-balance", h.trialBalance)
		r.Get("/api/postings/{id}", h.getPosting)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}
