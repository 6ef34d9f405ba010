// internal/app/features/profile/routes.go
package profile

import "github.com/go-chi/chi/v5"

// MountRoutes registers the profile endpoints on a router already scoped to
// /users/{id}. Reads are public; writes require the owner's session.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.ServeProfile)
	r.Group(func(r chi.Router) {
		r.Use(h.SessionMgr.RequireSignedIn, h.SessionMgr.RequireSelf("id"))
		r.Patch("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
		r.Post("/images/{kind}", h.HandleUploadImage)
		r.Delete("/images/{kind}", h.HandleDeleteImage)
	})
}
