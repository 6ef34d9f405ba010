// internal/app/features/social/routes.go
package social

import "github.com/go-chi/chi/v5"

// MountRoutes registers the relationship endpoints on a router scoped to
// /users/{id}. List edits belong to the owner; following needs any signed-in
// user.
func MountRoutes(r chi.Router, h *Handler) {
	r.Group(func(r chi.Router) {
		r.Use(h.SessionMgr.RequireSignedIn)
		r.Post("/follow", h.HandleFollow)
		r.Delete("/follow", h.HandleUnfollow)

		r.Group(func(r chi.Router) {
			r.Use(h.SessionMgr.RequireSelf("id"))
			r.Post("/games", h.HandleAddGame)
			r.Put("/games/{gameID}", h.HandleUpdateGame)
			r.Delete("/games/{gameID}", h.HandleRemoveGame)
			r.Post("/achievements", h.HandleAddAchievement)
			r.Delete("/achievements/{achievementID}", h.HandleRemoveAchievement)
			r.Post("/teams", h.HandleJoinTeam)
			r.Delete("/teams/{teamID}", h.HandleLeaveTeam)
		})
	})
}
