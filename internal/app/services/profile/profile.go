// Package profile reads and mutates user profile documents and their
// images.
//
// Writes are partial updates of the user document. Image operations touch
// the object store and the document in two separate steps with no rollback:
// a binary uploaded before a failed document write stays in storage.
package profile

import (
	"context"
	"fmt"
	"io"
	"mime"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/gamerie/internal/app/services/social"
	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/auditlog"
	"github.com/dalemusser/gamerie/internal/app/system/blobstore"
	"github.com/dalemusser/gamerie/internal/app/system/events"
	"github.com/dalemusser/gamerie/internal/app/system/htmlsanitize"
	"github.com/dalemusser/gamerie/internal/app/system/inputval"
	"github.com/dalemusser/gamerie/internal/app/system/normalize"
	"github.com/dalemusser/gamerie/internal/app/system/notify"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"go.uber.org/zap"
)

const (
	OpGetProfile         = "getProfile"
	OpUpdateProfile      = "updateProfile"
	OpUploadProfileImage = "uploadProfileImage"
	OpDeleteProfileImage = "deleteProfileImage"
	OpDeleteProfile      = "deleteProfile"
)

// MaxAge bounds the self-reported age.
const MaxAge = 150

// ImageKind selects which profile image an operation targets.
type ImageKind string

const (
	ImageProfile    ImageKind = "profile"
	ImageBackground ImageKind = "background"
)

func (k ImageKind) Valid() bool {
	return k == ImageProfile || k == ImageBackground
}

// patch returns a UserPatch setting the image field for k to url ("" clears).
func (k ImageKind) patch(url string) models.UserPatch {
	if k == ImageBackground {
		return models.UserPatch{BackgroundImage: &url}
	}
	return models.UserPatch{ProfileImage: &url}
}

// Users is the part of the user store the service uses.
type Users interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, p models.UserPatch, now time.Time) error
	Delete(ctx context.Context, id string) error
}

// Service implements the profile operations.
type Service struct {
	users    Users
	blobs    blobstore.Blobs
	audit    *auditlog.Logger
	notifier *notify.Notifier
	events   events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Service. audit, notifier and pub may be nil.
func New(users Users, blobs blobstore.Blobs, audit *auditlog.Logger, notifier *notify.Notifier, pub events.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		users:    users,
		blobs:    blobs,
		audit:    audit,
		notifier: notifier,
		events:   pub,
		log:      log,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetProfile loads the profile shown on a user's page.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindNotFound, OpGetProfile, "Profile not found", err)
		}
		return nil, apperr.New(apperr.KindOf(err), OpGetProfile, "Failed to load profile", err)
	}
	return u, nil
}

// UpdateProfile cleans the free-text fields of p and writes it as one
// partial update stamped with updatedAt. Collection fields replace the
// stored arrays whole. An empty patch still stamps updatedAt.
func (s *Service) UpdateProfile(ctx context.Context, userID string, p models.UserPatch) error {
	p, err := clean(p)
	if err != nil {
		s.notifier.Error(ctx, OpUpdateProfile, err, "")
		return err
	}
	if err := s.write(ctx, OpUpdateProfile, userID, p, "Failed to update profile"); err != nil {
		s.notifier.Error(ctx, OpUpdateProfile, err, "")
		return err
	}
	s.audit.ProfileUpdated(ctx, userID, fieldNames(p))
	s.notifier.Success(ctx, OpUpdateProfile, "Profile updated successfully")
	return nil
}

// write performs the store update and labels failures for op.
func (s *Service) write(ctx context.Context, op, userID string, p models.UserPatch, failMsg string) error {
	if err := s.users.Update(ctx, userID, p, s.now().UTC()); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.New(apperr.KindNotFound, op, "Profile not found", err)
		}
		return apperr.New(apperr.KindStoreWrite, op, failMsg, err)
	}
	return nil
}

// clean sanitizes and validates the fields of p.
func clean(p models.UserPatch) (models.UserPatch, error) {
	if p.Username != nil {
		v := normalize.Username(htmlsanitize.PlainText(*p.Username))
		if v == "" {
			return p, apperr.Validation(OpUpdateProfile, "Username is required")
		}
		p.Username = &v
	}
	if p.Role != nil && !p.Role.Valid() {
		return p, apperr.Validation(OpUpdateProfile, "Invalid role")
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > MaxAge) {
		return p, apperr.Validation(OpUpdateProfile, "Age must be between 0 and 150")
	}
	if p.Bio != nil {
		v := htmlsanitize.Bio(*p.Bio)
		p.Bio = &v
	}
	for _, f := range []**string{&p.Country, &p.Timezone, &p.Gender, &p.Location} {
		if *f != nil {
			v := normalize.Text(htmlsanitize.PlainText(**f))
			*f = &v
		}
	}
	return cleanEntries(p)
}

// cleanEntries checks each entry of the replaced collections against the
// rules of the single-entry list operations. Cleaned copies replace the
// caller's slices.
func cleanEntries(p models.UserPatch) (models.UserPatch, error) {
	if p.GamesPlayed != nil {
		games := make([]models.Game, len(*p.GamesPlayed))
		for i, g := range *p.GamesPlayed {
			g.Name = plain(g.Name)
			g.Rank = plain(g.Rank)
			g.SkillLevel = models.SkillLevel(normalize.Text(string(g.SkillLevel)))
			in := social.GameInput{Name: g.Name, SkillLevel: string(g.SkillLevel), HoursPlayed: g.HoursPlayed, Rank: g.Rank}
			if err := checkEntry("Game", i, g.ID, in); err != nil {
				return p, err
			}
			games[i] = g
		}
		p.GamesPlayed = &games
	}
	if p.Teams != nil {
		teams := make([]models.TeamMembership, len(*p.Teams))
		for i, m := range *p.Teams {
			m.TeamID = normalize.Text(m.TeamID)
			m.Role = models.MemberRole(normalize.Text(string(m.Role)))
			if err := checkEntry("Team", i, m.TeamID, social.TeamInput{TeamID: m.TeamID, Role: string(m.Role)}); err != nil {
				return p, err
			}
			teams[i] = m
		}
		p.Teams = &teams
	}
	if p.Achievements != nil {
		achs := make([]models.Achievement, len(*p.Achievements))
		for i, a := range *p.Achievements {
			a.Title = plain(a.Title)
			a.Description = plain(a.Description)
			a.Game = plain(a.Game)
			a.Proof = normalize.Text(a.Proof)
			in := social.AchievementInput{Title: a.Title, Description: a.Description, Game: a.Game, Date: a.Date, Proof: a.Proof}
			if err := checkEntry("Achievement", i, a.ID, in); err != nil {
				return p, err
			}
			achs[i] = a
		}
		p.Achievements = &achs
	}
	return p, nil
}

func checkEntry(label string, i int, id string, in any) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation(OpUpdateProfile, fmt.Sprintf("%s %d: id is required.", label, i+1))
	}
	if res := inputval.Validate(in); res.HasErrors() {
		return apperr.Validation(OpUpdateProfile, fmt.Sprintf("%s %d: %s", label, i+1, res.First()))
	}
	return nil
}

func plain(s string) string {
	return normalize.Text(htmlsanitize.PlainText(s))
}

// fieldNames lists the patched fields for the audit trail.
func fieldNames(p models.UserPatch) string {
	names := make([]string, 0, 8)
	for k := range p.Fields(time.Time{}) {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// UploadProfileImage stores an image under users/{userID}/{kind}-{millis}
// and points the profile's image field at it. Either step failing is an
// upload error; the stored binary is not removed when the document write
// fails.
func (s *Service) UploadProfileImage(ctx context.Context, userID string, r io.Reader, contentType string, kind ImageKind) (string, error) {
	if !kind.Valid() {
		err := apperr.Validation(OpUploadProfileImage, "Unknown image type")
		s.notifier.Error(ctx, OpUploadProfileImage, err, "")
		return "", err
	}
	if !isImage(contentType) {
		err := apperr.Validation(OpUploadProfileImage, "Only image files can be uploaded")
		s.notifier.Error(ctx, OpUploadProfileImage, err, "")
		return "", err
	}

	path := blobstore.UserPath(userID, string(kind), s.now())
	url, err := s.blobs.Upload(ctx, path, r, contentType)
	if err != nil {
		e := apperr.New(apperr.KindUpload, OpUploadProfileImage, "Failed to upload image", err)
		s.notifier.Error(ctx, OpUploadProfileImage, e, "")
		return "", e
	}

	if err := s.users.Update(ctx, userID, kind.patch(url), s.now().UTC()); err != nil {
		s.log.Warn("image stored but profile not updated",
			zap.String("user_id", userID),
			zap.String("path", path),
			zap.Error(err))
		e := apperr.New(apperr.KindUpload, OpUploadProfileImage, "Failed to upload image", err)
		s.notifier.Error(ctx, OpUploadProfileImage, e, "")
		return "", e
	}

	s.audit.ProfileImageUploaded(ctx, userID, string(kind), url)
	s.notifier.Success(ctx, OpUploadProfileImage, "Image uploaded successfully")
	return url, nil
}

func isImage(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mt, "image/")
}

// DeleteProfileImage removes the stored binary first and then clears the
// image field. A failed binary delete leaves the field untouched.
func (s *Service) DeleteProfileImage(ctx context.Context, userID, imageURL string, kind ImageKind) error {
	if !kind.Valid() {
		err := apperr.Validation(OpDeleteProfileImage, "Unknown image type")
		s.notifier.Error(ctx, OpDeleteProfileImage, err, "")
		return err
	}
	if strings.TrimSpace(imageURL) == "" {
		err := apperr.Validation(OpDeleteProfileImage, "No image to delete")
		s.notifier.Error(ctx, OpDeleteProfileImage, err, "")
		return err
	}

	if err := s.blobs.Delete(ctx, imageURL); err != nil {
		e := apperr.New(apperr.KindStorageDelete, OpDeleteProfileImage, "Failed to delete image", err)
		s.notifier.Error(ctx, OpDeleteProfileImage, e, "")
		return e
	}

	if err := s.write(ctx, OpDeleteProfileImage, userID, kind.patch(""), "Failed to delete image"); err != nil {
		s.notifier.Error(ctx, OpDeleteProfileImage, err, "")
		return err
	}

	s.audit.ProfileImageDeleted(ctx, userID, string(kind))
	s.notifier.Success(ctx, OpDeleteProfileImage, "Image deleted successfully")
	return nil
}

// DeleteProfile deletes the user document, then tries to remove everything
// under the user's storage namespace. The document delete decides the
// outcome; a cleanup failure is logged and audited only.
func (s *Service) DeleteProfile(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		e := apperr.New(apperr.KindStoreWrite, OpDeleteProfile, "Failed to delete profile", err)
		s.notifier.Error(ctx, OpDeleteProfile, e, "")
		return e
	}

	if err := s.blobs.DeletePrefix(ctx, blobstore.UserPrefix(userID)); err != nil {
		s.log.Error("error deleting user storage",
			zap.String("user_id", userID),
			zap.Error(err))
		s.audit.StorageCleanupFailed(ctx, userID, err.Error())
	}

	if err := s.events.Publish(ctx, events.SubjectUserDeleted, events.UserEvent{UserID: userID, At: s.now().UTC()}); err != nil {
		s.log.Warn("event publish failed", zap.String("subject", events.SubjectUserDeleted), zap.Error(err))
	}

	s.audit.ProfileDeleted(ctx, userID)
	s.notifier.Success(ctx, OpDeleteProfile, "Profile deleted successfully")
	return nil
}
