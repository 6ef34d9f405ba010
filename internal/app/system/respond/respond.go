// internal/app/system/respond/respond.go
package respond

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/limits"
	"github.com/dalemusser/gamerie/internal/app/system/notify"
)

// Body is the envelope of every JSON response. Data is omitted when nil.
type Body struct {
	Message       string           `json:"message,omitempty"`
	Kind          string           `json:"kind,omitempty"`
	Data          any              `json:"data,omitempty"`
	Notifications []notify.Message `json:"notifications,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 envelope carrying message, data and the request's
// collected notifications. An empty message takes the text of the last
// collected notification.
func OK(w http.ResponseWriter, r *http.Request, message string, data any) {
	success(w, r, http.StatusOK, message, data)
}

// Created is OK with 201.
func Created(w http.ResponseWriter, r *http.Request, message string, data any) {
	success(w, r, http.StatusCreated, message, data)
}

func success(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	msgs := collected(r)
	if message == "" && len(msgs) > 0 {
		message = msgs[len(msgs)-1].Text
	}
	JSON(w, status, Body{
		Message:       message,
		Data:          data,
		Notifications: msgs,
	})
}

// Error writes err using its apperr kind to pick the status. Errors that are
// not an *apperr.Error answer 500 with fallback.
func Error(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	kind := apperr.KindOf(err)
	JSON(w, Status(kind), Body{
		Message:       apperr.Message(err, fallback),
		Kind:          string(kind),
		Notifications: collected(r),
	})
}

// Status maps an error kind to an HTTP status.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindReset:
		return http.StatusBadRequest
	case apperr.KindLogin, apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound, apperr.KindProfileMissing:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindRegistration:
		return http.StatusConflict
	case apperr.KindUpload, apperr.KindStorageDelete:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Decode reads a JSON request body into v. Unknown fields are rejected and
// bodies over limits.MaxJSONBody fail to decode.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.New(apperr.KindValidation, "decode", "Invalid request body", err)
	}
	return nil
}

// Collect wraps next so that every request carries a notify.Collector.
func Collect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := notify.WithCollector(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func collected(r *http.Request) []notify.Message {
	if r == nil {
		return nil
	}
	if c := notify.CollectorFrom(r.Context()); c != nil {
		return c.Messages()
	}
	return nil
}
