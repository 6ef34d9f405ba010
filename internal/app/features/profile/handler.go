// internal/app/features/profile/handler.go
package profile

import (
	profilesvc "github.com/dalemusser/gamerie/internal/app/services/profile"
	"github.com/dalemusser/gamerie/internal/app/system/auth"
	"github.com/dalemusser/gamerie/internal/app/system/limits"
	"go.uber.org/zap"
)

// Handler owns the profile page endpoints under /users/{id}.
type Handler struct {
	Profiles      *profilesvc.Service
	SessionMgr    *auth.SessionManager
	Log           *zap.Logger
	MaxImageBytes int64
}

// NewHandler constructs a Handler. maxImageBytes <= 0 selects
// limits.MaxImageBytes.
func NewHandler(profiles *profilesvc.Service, sessionMgr *auth.SessionManager, maxImageBytes int64, logger *zap.Logger) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = limits.MaxImageBytes
	}
	return &Handler{
		Profiles:      profiles,
		SessionMgr:    sessionMgr,
		Log:           logger,
		MaxImageBytes: maxImageBytes,
	}
}
