// internal/app/features/errors/routes.go
package errors

import "github.com/go-chi/chi/v5"

// Mount installs h as r's fallback handlers.
func Mount(r chi.Router, h *Handler) {
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)
}
