// internal/app/features/account/routes.go
package account

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleSignUp)
	r.Post("/login", h.HandleSignIn)
	r.Post("/logout", h.HandleLogout)
	r.Post("/reset", h.HandleReset)
	r.Post("/reset/confirm", h.HandleConfirmReset)
	r.Get("/verify", h.ServeVerify)
	r.Get("/me", h.ServeMe)
	return r
}
