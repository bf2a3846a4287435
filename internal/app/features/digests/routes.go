// internal/app/features/digests/routes.go
package digests

import "github.com/go-chi/chi/v5"

// Routes returns the digest router, mounted under /digests.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/preview/{membershipID}", h.ServePreview)
	r.Post("/sweep", h.ServeSweep)
	return r
}
