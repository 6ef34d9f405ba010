// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/gamerie/internal/app/system/respond"
	"go.uber.org/zap"
)

// Handler answers requests no route claimed with the standard JSON envelope.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs an errors Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// NotFound answers unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Log.Debug("no route", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	respond.JSON(w, http.StatusNotFound, respond.Body{Message: "Route not found", Kind: "not_found"})
}

// MethodNotAllowed answers known paths hit with an unsupported method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, respond.Body{Message: "Method not allowed", Kind: "method_not_allowed"})
}
