// internal/app/features/account/handler.go
package account

import (
	"context"
	"net/http"

	accountsvc "github.com/dalemusser/gamerie/internal/app/services/account"
	"github.com/dalemusser/gamerie/internal/app/system/auth"
	"github.com/dalemusser/gamerie/internal/app/system/ratelimit"
	"github.com/dalemusser/gamerie/internal/app/system/respond"
	"github.com/dalemusser/gamerie/internal/app/system/timeouts"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the sign-up, sign-in and password endpoints.
type Handler struct {
	Accounts   *accountsvc.Manager
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.AuthLimiter // nil disables throttling
	Log        *zap.Logger
}

func NewHandler(accounts *accountsvc.Manager, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   accounts,
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

type signUpRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

// throttled answers 429 when the limiter refuses the attempt.
func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, email string) bool {
	ok, reason := h.Limiter.Check(r, email)
	if ok {
		return false
	}
	h.Log.Warn("auth attempt throttled",
		zap.String("path", r.URL.Path),
		zap.String("ip", ratelimit.ClientIP(r)))
	respond.JSON(w, http.StatusTooManyRequests, respond.Body{Message: reason, Kind: "rate_limited"})
	return true
}

type confirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleSignUp handles POST /auth/signup. A missing role defaults to "user".
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	if h.throttled(w, r, req.Email) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sess := auth.CurrentSession(r)
	u, err := h.Accounts.SignUp(ctx, sess, req.Email, req.Password, req.Username, req.Role)
	if err != nil {
		respond.Error(w, r, err, "Failed to create account")
		return
	}
	if err := h.SessionMgr.Save(w, r, sess); err != nil {
		h.Log.Error("signup: save session", zap.Error(err))
	}
	respond.Created(w, r, "", u)
}

// HandleSignIn handles POST /auth/login.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	if h.throttled(w, r, req.Email) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess := auth.CurrentSession(r)
	u, err := h.Accounts.SignIn(ctx, sess, req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err, "Failed to sign in")
		return
	}
	h.Limiter.ResetEmail(req.Email)
	if err := h.SessionMgr.Save(w, r, sess); err != nil {
		h.Log.Error("login: save session", zap.Error(err))
	}
	respond.OK(w, r, "", u)
}

// HandleLogout handles POST /auth/logout. The cookie is cleared even when the
// provider call fails.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess := auth.CurrentSession(r)
	logoutErr := h.Accounts.Logout(ctx, sess)
	if err := h.SessionMgr.Save(w, r, sess); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if logoutErr != nil {
		respond.Error(w, r, logoutErr, "Failed to log out")
		return
	}
	respond.OK(w, r, "", nil)
}

// HandleReset handles POST /auth/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	if h.throttled(w, r, req.Email) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Accounts.ResetPassword(ctx, req.Email); err != nil {
		respond.Error(w, r, err, "Failed to send reset email")
		return
	}
	respond.OK(w, r, "", nil)
}

// HandleConfirmReset handles POST /auth/reset/confirm.
func (h *Handler) HandleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Accounts.ConfirmPasswordReset(ctx, req.Token, req.NewPassword); err != nil {
		respond.Error(w, r, err, "Failed to reset password")
		return
	}
	respond.OK(w, r, "", nil)
}

// ServeVerify handles GET /auth/verify?token=.
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Accounts.VerifyEmail(ctx, r.URL.Query().Get("token")); err != nil {
		respond.Error(w, r, err, "Failed to verify email")
		return
	}
	respond.OK(w, r, "", nil)
}

// ServeMe handles GET /auth/me.
//
// Response format:
//
//	{ "isAuthenticated": bool, "user": {...} }
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.JSON(w, http.StatusOK, map[string]any{"isAuthenticated": false})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"isAuthenticated": true,
		"user":            u,
	})
}
