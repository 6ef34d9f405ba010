package social_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/gamerie/internal/app/features/social"
	socialsvc "github.com/dalemusser/gamerie/internal/app/services/social"
	"github.com/dalemusser/gamerie/internal/app/system/notify"
	"github.com/dalemusser/gamerie/internal/app/system/respond"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"github.com/dalemusser/gamerie/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type env struct {
	h     http.Handler
	fx    *testutil.Fixtures
	alice models.User
	bob   models.User
	jar   map[string][]*http.Cookie
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := testutil.NewStack(t)
	sm := st.SessionManager(t)
	mgr := socialsvc.New(st.Users, socialsvc.Options{Refresh: true}, nil, notify.New(zap.NewNop(), nil), st.Events, zap.NewNop())

	r := chi.NewRouter()
	r.Use(respond.Collect, sm.LoadSessionUser)
	r.Route("/users/{id}", func(r chi.Router) {
		social.MountRoutes(r, social.NewHandler(mgr, sm, zap.NewNop()))
	})

	alice, aliceCookies := st.SignedIn(t, sm, "alice")
	bob, bobCookies := st.SignedIn(t, sm, "bob")
	return &env{
		h:     r,
		fx:    testutil.NewFixtures(t, st.Docs),
		alice: alice,
		bob:   bob,
		jar:   map[string][]*http.Cookie{alice.ID: aliceCookies, bob.ID: bobCookies},
	}
}

// as sends req with the cookies of the given user; "" sends it anonymously.
func (e *env) as(who string, req *http.Request) *testutil.ResponseRecorder {
	for _, c := range e.jar[who] {
		req.AddCookie(c)
	}
	rec := testutil.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

type body struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func TestGames(t *testing.T) {
	e := newEnv(t)
	base := "/users/" + e.alice.ID

	rec := e.as(e.alice.ID, testutil.NewJSONRequest(t, "POST", base+"/games", map[string]any{
		"name": "Chess", "skillLevel": "beginner", "hoursPlayed": 10,
	}))
	rec.AssertStatus(t, http.StatusCreated)
	var b body
	rec.Decode(t, &b)
	if b.Message != "Game added successfully" {
		t.Errorf("message = %q", b.Message)
	}
	id, _ := b.Data["id"].(string)
	if id == "" {
		t.Fatalf("data = %v", b.Data)
	}

	rec = e.as(e.alice.ID, testutil.NewJSONRequest(t, "PUT", base+"/games/"+id, map[string]any{
		"name": "Chess", "skillLevel": "advanced", "hoursPlayed": 50,
	}))
	rec.AssertStatus(t, http.StatusOK)

	rec = e.as(e.alice.ID, testutil.NewRequest("DELETE", base+"/games/"+id))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Game removed successfully")

	if games := e.fx.MustGetUser(context.Background(), e.alice.ID).GamesPlayed; len(games) != 0 {
		t.Errorf("gamesPlayed = %+v", games)
	}
}

func TestGames_Rejections(t *testing.T) {
	e := newEnv(t)

	rec := e.as(e.alice.ID, testutil.NewJSONRequest(t, "POST", "/users/"+e.alice.ID+"/games", map[string]any{
		"name": "Chess", "skillLevel": "beginner", "hoursPlayed": -1,
	}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Hours played must be at least 0.")

	rec = e.as(e.alice.ID, testutil.NewJSONRequest(t, "POST", "/users/"+e.bob.ID+"/games", map[string]any{
		"name": "Chess", "skillLevel": "beginner",
	}))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = e.as("", testutil.NewJSONRequest(t, "POST", "/users/"+e.alice.ID+"/games", map[string]any{
		"name": "Chess", "skillLevel": "beginner",
	}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestFollow(t *testing.T) {
	e := newEnv(t)
	target := "/users/" + e.alice.ID + "/follow"

	rec := e.as(e.bob.ID, testutil.NewRequest("POST", target))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Following successfully")
	if !e.fx.MustGetUser(context.Background(), e.alice.ID).IsFollowedBy(e.bob.ID) {
		t.Fatal("bob should follow alice")
	}

	rec = e.as(e.bob.ID, testutil.NewRequest("DELETE", target))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Unfollowed successfully")
	if e.fx.MustGetUser(context.Background(), e.alice.ID).IsFollowedBy(e.bob.ID) {
		t.Error("bob should no longer follow alice")
	}
}

func TestFollow_Rejections(t *testing.T) {
	e := newEnv(t)

	rec := e.as(e.alice.ID, testutil.NewRequest("POST", "/users/"+e.alice.ID+"/follow"))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = e.as("", testutil.NewRequest("POST", "/users/"+e.alice.ID+"/follow"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = e.as(e.bob.ID, testutil.NewRequest("POST", "/users/uid-ghost/follow"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestTeamsAndAchievements(t *testing.T) {
	e := newEnv(t)
	base := "/users/" + e.alice.ID

	rec := e.as(e.alice.ID, testutil.NewJSONRequest(t, "POST", base+"/teams", map[string]any{"teamId": "t1", "role": "captain"}))
	rec.AssertStatus(t, http.StatusCreated)
	rec = e.as(e.alice.ID, testutil.NewJSONRequest(t, "POST", base+"/teams", map[string]any{"teamId": "t1", "role": "player"}))
	rec.AssertStatus(t, http.StatusConflict)
	rec = e.as(e.alice.ID, testutil.NewRequest("DELETE", base+"/teams/t1"))
	rec.AssertStatus(t, http.StatusOK)

	rec = e.as(e.alice.ID, testutil.NewJSONRequest(t, "POST", base+"/achievements", map[string]any{"title": "First win"}))
	rec.AssertStatus(t, http.StatusCreated)
	var b body
	rec.Decode(t, &b)
	id, _ := b.Data["id"].(string)
	rec = e.as(e.alice.ID, testutil.NewRequest("DELETE", base+"/achievements/"+id))
	rec.AssertStatus(t, http.StatusOK)

	u := e.fx.MustGetUser(context.Background(), e.alice.ID)
	if len(u.Teams) != 0 || len(u.Achievements) != 0 {
		t.Errorf("teams = %+v, achievements = %+v", u.Teams, u.Achievements)
	}
}
