// internal/app/features/social/handler.go
package social

import (
	"context"
	"net/http"

	socialsvc "github.com/dalemusser/gamerie/internal/app/services/social"
	"github.com/dalemusser/gamerie/internal/app/system/auth"
	"github.com/dalemusser/gamerie/internal/app/system/respond"
	"github.com/dalemusser/gamerie/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the relationship endpoints under /users/{id}.
type Handler struct {
	Social     *socialsvc.Manager
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(mgr *socialsvc.Manager, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Social:     mgr,
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

func userID(r *http.Request) string { return chi.URLParam(r, "id") }

// HandleAddGame handles POST /users/{id}/games.
func (h *Handler) HandleAddGame(w http.ResponseWriter, r *http.Request) {
	var in socialsvc.GameInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Social.AddGame(ctx, userID(r), in)
	if err != nil {
		respond.Error(w, r, err, "Failed to add game")
		return
	}
	respond.Created(w, r, "", g)
}

// HandleUpdateGame handles PUT /users/{id}/games/{gameID}.
func (h *Handler) HandleUpdateGame(w http.ResponseWriter, r *http.Request) {
	var in socialsvc.GameInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Social.UpdateGame(ctx, userID(r), chi.URLParam(r, "gameID"), in)
	if err != nil {
		respond.Error(w, r, err, "Failed to update game")
		return
	}
	respond.OK(w, r, "", g)
}

// HandleRemoveGame handles DELETE /users/{id}/games/{gameID}.
func (h *Handler) HandleRemoveGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Social.RemoveGame(ctx, userID(r), chi.URLParam(r, "gameID")); err != nil {
		respond.Error(w, r, err, "Failed to remove game")
		return
	}
	respond.OK(w, r, "", nil)
}

// HandleAddAchievement handles POST /users/{id}/achievements.
func (h *Handler) HandleAddAchievement(w http.ResponseWriter, r *http.Request) {
	var in socialsvc.AchievementInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Social.AddAchievement(ctx, userID(r), in)
	if err != nil {
		respond.Error(w, r, err, "Failed to add achievement")
		return
	}
	respond.Created(w, r, "", a)
}

// HandleRemoveAchievement handles DELETE /users/{id}/achievements/{achievementID}.
func (h *Handler) HandleRemoveAchievement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Social.RemoveAchievement(ctx, userID(r), chi.URLParam(r, "achievementID")); err != nil {
		respond.Error(w, r, err, "Failed to remove achievement")
		return
	}
	respond.OK(w, r, "", nil)
}

// HandleJoinTeam handles POST /users/{id}/teams.
func (h *Handler) HandleJoinTeam(w http.ResponseWriter, r *http.Request) {
	var in socialsvc.TeamInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tm, err := h.Social.JoinTeam(ctx, userID(r), in)
	if err != nil {
		respond.Error(w, r, err, "Failed to join team")
		return
	}
	respond.Created(w, r, "", tm)
}

// HandleLeaveTeam handles DELETE /users/{id}/teams/{teamID}.
func (h *Handler) HandleLeaveTeam(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Social.LeaveTeam(ctx, userID(r), chi.URLParam(r, "teamID")); err != nil {
		respond.Error(w, r, err, "Failed to leave team")
		return
	}
	respond.OK(w, r, "", nil)
}

// HandleFollow handles POST /users/{id}/follow: the signed-in user follows
// {id}.
func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	h.follow(w, r, true)
}

// HandleUnfollow handles DELETE /users/{id}/follow.
func (h *Handler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	h.follow(w, r, false)
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request, follow bool) {
	actor := auth.CurrentSession(r).UserID()
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var err error
	if follow {
		err = h.Social.FollowUser(ctx, actor, userID(r))
	} else {
		err = h.Social.UnfollowUser(ctx, actor, userID(r))
	}
	if err != nil {
		respond.Error(w, r, err, "Failed to update follow status")
		return
	}
	respond.OK(w, r, "", nil)
}
