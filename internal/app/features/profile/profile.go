// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	profilesvc "github.com/dalemusser/gamerie/internal/app/services/profile"
	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/auth"
	"github.com/dalemusser/gamerie/internal/app/system/limits"
	"github.com/dalemusser/gamerie/internal/app/system/respond"
	"github.com/dalemusser/gamerie/internal/app/system/timeouts"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// updateRequest is the PATCH body. Absent fields are left untouched. Email,
// id and the follow lists cannot be changed here.
type updateRequest struct {
	Username     *string                  `json:"username"`
	Role         *models.Role             `json:"role"`
	Bio          *string                  `json:"bio"`
	Country      *string                  `json:"country"`
	Timezone     *string                  `json:"timezone"`
	Age          *int                     `json:"age"`
	Gender       *string                  `json:"gender"`
	Location     *string                  `json:"location"`
	GamesPlayed  *[]models.Game           `json:"gamesPlayed"`
	Teams        *[]models.TeamMembership `json:"teams"`
	Achievements *[]models.Achievement    `json:"achievements"`
	Stats        *models.UserStats        `json:"stats"`
}

func (u updateRequest) patch() models.UserPatch {
	return models.UserPatch{
		Username:     u.Username,
		Role:         u.Role,
		Bio:          u.Bio,
		Country:      u.Country,
		Timezone:     u.Timezone,
		Age:          u.Age,
		Gender:       u.Gender,
		Location:     u.Location,
		GamesPlayed:  u.GamesPlayed,
		Teams:        u.Teams,
		Achievements: u.Achievements,
		Stats:        u.Stats,
	}
}

// ServeProfile handles GET /users/{id}.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Profiles.GetProfile(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err, "Failed to load profile")
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

// HandleUpdate handles PATCH /users/{id} and answers with the updated
// profile.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.Profiles.UpdateProfile(ctx, id, req.patch()); err != nil {
		respond.Error(w, r, err, "Failed to update profile")
		return
	}
	h.reply(ctx, w, r, id)
}

// reply answers with the fresh profile, or with no data when it cannot be
// reloaded.
func (h *Handler) reply(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) {
	u, err := h.Profiles.GetProfile(ctx, id)
	if err != nil {
		h.Log.Warn("reload profile after write", zap.String("user_id", id), zap.Error(err))
		respond.OK(w, r, "", nil)
		return
	}
	respond.OK(w, r, "", u)
}

// HandleDelete handles DELETE /users/{id}. The caller's session ends with
// the profile.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Profiles.DeleteProfile(ctx, chi.URLParam(r, "id")); err != nil {
		respond.Error(w, r, err, "Failed to delete profile")
		return
	}

	sess := auth.CurrentSession(r)
	sess.Clear()
	if err := h.SessionMgr.Save(w, r, sess); err != nil {
		h.Log.Error("delete profile: clear session", zap.Error(err))
	}
	respond.OK(w, r, "", nil)
}

// HandleUploadImage handles POST /users/{id}/images/{kind} with a multipart
// form carrying the file in the "image" field.
func (h *Handler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	kind := profilesvc.ImageKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		respond.Error(w, r, apperr.Validation(profilesvc.OpUploadProfileImage, "Unknown image type"), "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxImageBytes+limits.MultipartOverhead)
	if err := r.ParseMultipartForm(h.MaxImageBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(w, r, apperr.New(apperr.KindValidation, profilesvc.OpUploadProfileImage, "Image is too large", err), "")
			return
		}
		respond.Error(w, r, apperr.New(apperr.KindValidation, profilesvc.OpUploadProfileImage, "Invalid upload", err), "")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		respond.Error(w, r, apperr.New(apperr.KindValidation, profilesvc.OpUploadProfileImage, "Please choose an image to upload", err), "")
		return
	}
	defer file.Close()
	if header.Size > h.MaxImageBytes {
		respond.Error(w, r, apperr.Validation(profilesvc.OpUploadProfileImage, "Image is too large"), "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	id := chi.URLParam(r, "id")
	url, err := h.Profiles.UploadProfileImage(ctx, id, file, header.Header.Get("Content-Type"), kind)
	if err != nil {
		respond.Error(w, r, err, "Failed to upload image")
		return
	}
	respond.Created(w, r, "", map[string]string{"url": url})
}

// HandleDeleteImage handles DELETE /users/{id}/images/{kind}. The stored URL
// comes from the signed-in user's profile.
func (h *Handler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	kind := profilesvc.ImageKind(chi.URLParam(r, "kind"))
	u, _ := auth.CurrentUser(r)

	var current string
	switch {
	case kind == profilesvc.ImageProfile && u.ProfileImage != nil:
		current = *u.ProfileImage
	case kind == profilesvc.ImageBackground && u.BackgroundImage != nil:
		current = *u.BackgroundImage
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Profiles.DeleteProfileImage(ctx, u.ID, current, kind); err != nil {
		respond.Error(w, r, err, "Failed to delete image")
		return
	}
	respond.OK(w, r, "", nil)
}
