package profile_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/gamerie/internal/app/services/profile"
	userstore "github.com/dalemusser/gamerie/internal/app/store/users"
	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/blobstore"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/app/system/events"
	"github.com/dalemusser/gamerie/internal/app/system/notify"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"github.com/dalemusser/gamerie/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	st   *testutil.Stack
	fx   *testutil.Fixtures
	svc  *profile.Service
	logs *observer.ObservedLogs
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := testutil.NewStack(t)
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	svc := profile.New(st.Users, st.Blobs, nil, notify.New(log, nil), st.Events, log)
	svc.SetClock(func() time.Time { return fixedNow })
	return fixture{st: st, fx: testutil.NewFixtures(t, st.Docs), svc: svc, logs: logs}
}

func strp(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")

	u, err := f.svc.GetProfile(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q", u.Username)
	}

	_, err = f.svc.GetProfile(ctx, "nobody")
	if !apperr.Is(err, apperr.KindNotFound) || apperr.Message(err, "") != "Profile not found" {
		t.Errorf("missing: err = %v", err)
	}
}

func TestUpdateProfile_SanitizesAndStamps(t *testing.T) {
	f := newFixture(t)
	ctx, c := notify.WithCollector(context.Background())
	alice := f.fx.CreateUser(ctx, "alice")

	err := f.svc.UpdateProfile(ctx, alice.ID, models.UserPatch{
		Bio:     strp(`<p>gg <script>alert(1)</script>wp</p>`),
		Country: strp("  <b>Norway</b> "),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	u := f.fx.MustGetUser(ctx, alice.ID)
	if strings.Contains(u.Bio, "script") || !strings.Contains(u.Bio, "gg") {
		t.Errorf("bio = %q", u.Bio)
	}
	if u.Country != "Norway" {
		t.Errorf("country = %q", u.Country)
	}
	if !u.UpdatedAt.Equal(fixedNow) {
		t.Errorf("updatedAt = %v, want %v", u.UpdatedAt, fixedNow)
	}
	if u.Username != "alice" {
		t.Error("untouched fields must be preserved")
	}
	if msgs := c.Messages(); len(msgs) != 1 || msgs[0].Text != "Profile updated successfully" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestUpdateProfile_EmptyPatchStillStamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")

	if err := f.svc.UpdateProfile(ctx, alice.ID, models.UserPatch{}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u := f.fx.MustGetUser(ctx, alice.ID); !u.UpdatedAt.Equal(fixedNow) {
		t.Errorf("updatedAt = %v", u.UpdatedAt)
	}
}

func TestUpdateProfile_ReplacesCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUserWith(ctx, "alice", func(u *models.User) {
		u.GamesPlayed = []models.Game{
			{ID: "g1", Name: "Chess", SkillLevel: models.SkillPro},
			{ID: "g2", Name: "Go", SkillLevel: models.SkillBeginner},
		}
	})

	next := []models.Game{{ID: "g3", Name: "Tetris", SkillLevel: models.SkillExpert, HoursPlayed: 3}}
	if err := f.svc.UpdateProfile(ctx, alice.ID, models.UserPatch{GamesPlayed: &next}); err != nil {
		t.Fatal(err)
	}

	got := f.fx.MustGetUser(ctx, alice.ID).GamesPlayed
	if len(got) != 1 || got[0].ID != "g3" {
		t.Errorf("gamesPlayed = %+v, want exactly the new array", got)
	}
}

func TestUpdateProfile_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")

	bad := -1
	role := models.Role("wizard")
	tests := []struct {
		name  string
		patch models.UserPatch
	}{
		{"blank username", models.UserPatch{Username: strp("   ")}},
		{"negative age", models.UserPatch{Age: &bad}},
		{"unknown role", models.UserPatch{Role: &role}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.svc.UpdateProfile(ctx, alice.ID, tt.patch); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestUpdateProfile_ValidatesCollectionEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUserWith(ctx, "alice", func(u *models.User) {
		u.GamesPlayed = []models.Game{{ID: "g0", Name: "Chess", SkillLevel: models.SkillPro}}
	})

	tests := []struct {
		name  string
		patch models.UserPatch
		want  string
	}{
		{"game with bad fields", models.UserPatch{GamesPlayed: &[]models.Game{
			{ID: "g1", Name: "", SkillLevel: "godlike", HoursPlayed: -5},
		}}, "Game 1: Game name is required."},
		{"game without id", models.UserPatch{GamesPlayed: &[]models.Game{
			{Name: "Tetris", SkillLevel: models.SkillExpert},
		}}, "Game 1: id is required."},
		{"second game negative hours", models.UserPatch{GamesPlayed: &[]models.Game{
			{ID: "g1", Name: "Tetris", SkillLevel: models.SkillExpert},
			{ID: "g2", Name: "Go", SkillLevel: models.SkillBeginner, HoursPlayed: -1},
		}}, "Game 2: Hours played must be at least 0."},
		{"team with unknown role", models.UserPatch{Teams: &[]models.TeamMembership{
			{UserID: "alice", TeamID: "t1", Role: "mascot"},
		}}, "Team 1: Team role is invalid."},
		{"team without id", models.UserPatch{Teams: &[]models.TeamMembership{
			{UserID: "alice", Role: models.MemberPlayer},
		}}, "Team 1: id is required."},
		{"achievement without title", models.UserPatch{Achievements: &[]models.Achievement{
			{ID: "a1", Title: "  "},
		}}, "Achievement 1: Title is required."},
		{"achievement with non-http proof", models.UserPatch{Achievements: &[]models.Achievement{
			{ID: "a1", Title: "First win", Proof: "javascript:alert(1)"},
		}}, "Achievement 1: Proof must be an http or https URL."},
		{"achievement without id", models.UserPatch{Achievements: &[]models.Achievement{
			{Title: "First win"},
		}}, "Achievement 1: id is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.UpdateProfile(ctx, alice.ID, tt.patch)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
			if got := apperr.Message(err, ""); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
			u := f.fx.MustGetUser(ctx, alice.ID)
			if len(u.GamesPlayed) != 1 || u.GamesPlayed[0].ID != "g0" || len(u.Teams) != 0 || len(u.Achievements) != 0 {
				t.Errorf("document changed: %+v", u)
			}
		})
	}
}

func TestUpdateProfile_CleansCollectionEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")

	games := []models.Game{{ID: "g1", Name: "<b>Chess</b>", SkillLevel: " pro ", HoursPlayed: 2}}
	achs := []models.Achievement{{ID: "a1", Title: "<i>Champ</i>", Proof: "https://gamerie.test/clip"}}
	if err := f.svc.UpdateProfile(ctx, alice.ID, models.UserPatch{GamesPlayed: &games, Achievements: &achs}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	u := f.fx.MustGetUser(ctx, alice.ID)
	if u.GamesPlayed[0].Name != "Chess" || u.GamesPlayed[0].SkillLevel != models.SkillPro {
		t.Errorf("game = %+v", u.GamesPlayed[0])
	}
	if u.Achievements[0].Title != "Champ" {
		t.Errorf("achievement = %+v", u.Achievements[0])
	}
	if games[0].Name != "<b>Chess</b>" {
		t.Error("caller's slice should not be modified")
	}
}

func TestUpdateProfile_MissingDocument(t *testing.T) {
	f := newFixture(t)
	err := f.svc.UpdateProfile(context.Background(), "ghost", models.UserPatch{Bio: strp("x")})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestUploadProfileImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")

	url, err := f.svc.UploadProfileImage(ctx, alice.ID, strings.NewReader("png-bytes"), "image/png", profile.ImageProfile)
	if err != nil {
		t.Fatalf("UploadProfileImage: %v", err)
	}

	wantPath := "users/" + alice.ID + "/profile-" + "1709294400000"
	if !f.st.Blobs.Exists(wantPath) {
		t.Errorf("object not stored at %s; have %v", wantPath, f.st.Blobs.List(""))
	}
	if ct := f.st.Blobs.ContentType(wantPath); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	u := f.fx.MustGetUser(ctx, alice.ID)
	if u.ProfileImage == nil || *u.ProfileImage != url {
		t.Errorf("profileImage = %v, want %q", u.ProfileImage, url)
	}
	if u.BackgroundImage != nil {
		t.Error("backgroundImage must be untouched")
	}
}

func TestUploadProfileImage_RejectsNonImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")

	calls := 0
	f.st.Blobs.FailOn = func(op, path string) error {
		calls++
		return nil
	}

	_, err := f.svc.UploadProfileImage(ctx, alice.ID, strings.NewReader("x"), "application/pdf", profile.ImageBackground)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v", err)
	}
	_, err = f.svc.UploadProfileImage(ctx, alice.ID, strings.NewReader("x"), "image/png", profile.ImageKind("avatar"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("kind: err = %v", err)
	}
	if calls != 0 {
		t.Errorf("storage touched %d times", calls)
	}
}

func TestUploadProfileImage_Failures(t *testing.T) {
	t.Run("binary upload fails", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		alice := f.fx.CreateUser(ctx, "alice")
		f.st.Blobs.FailOn = func(op, path string) error { return errors.New("quota") }

		_, err := f.svc.UploadProfileImage(ctx, alice.ID, strings.NewReader("x"), "image/jpeg", profile.ImageProfile)
		if !apperr.Is(err, apperr.KindUpload) {
			t.Errorf("err = %v", err)
		}
		if u := f.fx.MustGetUser(ctx, alice.ID); u.ProfileImage != nil {
			t.Error("profile must be untouched")
		}
	})

	t.Run("document write fails after upload", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		alice := f.fx.CreateUser(ctx, "alice")
		f.st.Docs.FailOn = func(op, collection, id string) error {
			if op == docstore.OpUpdate {
				return errors.New("write conflict")
			}
			return nil
		}

		_, err := f.svc.UploadProfileImage(ctx, alice.ID, strings.NewReader("x"), "image/jpeg", profile.ImageBackground)
		if !apperr.Is(err, apperr.KindUpload) {
			t.Errorf("err = %v", err)
		}
		if n := len(f.st.Blobs.List(userPrefix(alice.ID))); n != 1 {
			t.Errorf("binary should remain in storage, found %d objects", n)
		}
	})
}

func userPrefix(id string) string { return "users/" + id + "/" }

func TestDeleteProfileImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")

	url, err := f.svc.UploadProfileImage(ctx, alice.ID, strings.NewReader("x"), "image/png", profile.ImageBackground)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteProfileImage(ctx, alice.ID, url, profile.ImageBackground); err != nil {
		t.Fatalf("DeleteProfileImage: %v", err)
	}
	if f.st.Blobs.Exists(url) {
		t.Error("binary should be deleted")
	}
	if u := f.fx.MustGetUser(ctx, alice.ID); u.BackgroundImage != nil {
		t.Errorf("backgroundImage = %v, want null", *u.BackgroundImage)
	}
}

func TestDeleteProfileImage_BinaryFailureKeepsField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")

	url, err := f.svc.UploadProfileImage(ctx, alice.ID, strings.NewReader("x"), "image/png", profile.ImageProfile)
	if err != nil {
		t.Fatal(err)
	}
	f.st.Blobs.FailOn = func(op, path string) error {
		if op == blobstore.OpDelete {
			return errors.New("permission denied")
		}
		return nil
	}

	err = f.svc.DeleteProfileImage(ctx, alice.ID, url, profile.ImageProfile)
	if !apperr.Is(err, apperr.KindStorageDelete) {
		t.Fatalf("err = %v", err)
	}
	if u := f.fx.MustGetUser(ctx, alice.ID); u.ProfileImage == nil || *u.ProfileImage != url {
		t.Error("field must keep the URL when the binary delete fails")
	}
}

func TestDeleteProfileImage_MissingBinary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUserWith(ctx, "alice", func(u *models.User) {
		u.ProfileImage = strp("memory://blobs/users/uid-alice/profile-1")
	})

	err := f.svc.DeleteProfileImage(ctx, alice.ID, *alice.ProfileImage, profile.ImageProfile)
	if !apperr.Is(err, apperr.KindStorageDelete) {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteProfile_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")
	bob := f.fx.CreateUser(ctx, "bob")

	for _, kind := range []profile.ImageKind{profile.ImageProfile, profile.ImageBackground} {
		if _, err := f.svc.UploadProfileImage(ctx, alice.ID, strings.NewReader("x"), "image/png", kind); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.UploadProfileImage(ctx, bob.ID, strings.NewReader("x"), "image/png", profile.ImageProfile); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteProfile(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}

	if _, err := f.st.Users.GetByID(ctx, alice.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("document should be gone: %v", err)
	}
	if n := len(f.st.Blobs.List(userPrefix(alice.ID))); n != 0 {
		t.Errorf("alice's objects remain: %d", n)
	}
	if n := len(f.st.Blobs.List(userPrefix(bob.ID))); n != 1 {
		t.Errorf("bob's objects must survive, found %d", n)
	}
	subj := f.st.Events.Subjects()
	if len(subj) != 1 || subj[0] != events.SubjectUserDeleted {
		t.Errorf("events = %v", subj)
	}
}

func TestDeleteProfile_ToleratesCleanupFailure(t *testing.T) {
	f := newFixture(t)
	ctx, c := notify.WithCollector(context.Background())
	alice := f.fx.CreateUser(ctx, "alice")
	f.st.Blobs.FailOn = func(op, path string) error {
		if op == blobstore.OpDeletePrefix {
			return errors.New("storage offline")
		}
		return nil
	}

	if err := f.svc.DeleteProfile(ctx, alice.ID); err != nil {
		t.Fatalf("cleanup failure must not fail the operation: %v", err)
	}
	if f.st.Docs.Len(userstore.Collection) != 0 {
		t.Error("document should be deleted")
	}
	if f.logs.FilterMessage("error deleting user storage").Len() != 1 {
		t.Error("cleanup failure should be logged")
	}
	if msgs := c.Messages(); len(msgs) != 1 || msgs[0].Level != notify.LevelSuccess {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestDeleteProfile_DocumentFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.fx.CreateUser(ctx, "alice")
	f.st.Docs.FailOn = func(op, collection, id string) error {
		if op == docstore.OpDelete {
			return errors.New("unavailable")
		}
		return nil
	}
	cleanup := false
	f.st.Blobs.FailOn = func(op, path string) error {
		if op == blobstore.OpDeletePrefix {
			cleanup = true
		}
		return nil
	}

	if err := f.svc.DeleteProfile(ctx, alice.ID); !apperr.Is(err, apperr.KindStoreWrite) {
		t.Errorf("err = %v", err)
	}
	if cleanup {
		t.Error("storage cleanup must not run when the document delete fails")
	}
	if len(f.st.Events.Events()) != 0 {
		t.Error("no event on failure")
	}
}
