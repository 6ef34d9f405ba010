package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/gamerie/internal/app/store/credentials"
	"github.com/dalemusser/gamerie/internal/app/store/emailverify"
	userstore "github.com/dalemusser/gamerie/internal/app/store/users"
	"github.com/dalemusser/gamerie/internal/app/system/auth"
	"github.com/dalemusser/gamerie/internal/app/system/authprovider"
	"github.com/dalemusser/gamerie/internal/app/system/blobstore"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/app/system/events"
	"github.com/dalemusser/gamerie/internal/app/system/mailer"
	"github.com/dalemusser/gamerie/internal/app/system/session"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Outbox is a mailer.Sender that keeps messages in memory.
type Outbox struct {
	mu   sync.Mutex
	sent []mailer.Email
	Err  error
}

func (o *Outbox) Send(ctx context.Context, msg mailer.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.Err != nil {
		return o.Err
	}
	o.sent = append(o.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (o *Outbox) Sent() []mailer.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]mailer.Email, len(o.sent))
	copy(out, o.sent)
	return out
}

// LinkToken extracts the token query parameter from the first link in body.
func LinkToken(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http") {
			u, err := url.Parse(line)
			if err != nil {
				t.Fatal(err)
			}
			return u.Query().Get("token")
		}
	}
	t.Fatalf("no link in %q", body)
	return ""
}

// Stack is the in-memory wiring used by service and handler tests.
type Stack struct {
	Docs     *docstore.Memory
	Blobs    *blobstore.Store
	Users    *userstore.Store
	Creds    *credentials.Store
	Tokens   *emailverify.Store
	Provider *authprovider.Local
	Mail     *Outbox
	Events   *events.Recorder
}

// NewStack builds a Stack over fresh in-memory gateways.
func NewStack(t *testing.T) *Stack {
	t.Helper()
	docs := docstore.NewMemory()
	creds := credentials.New(docs)
	tokens := emailverify.New(docs, time.Hour)
	mail := &Outbox{}

	p, err := authprovider.NewLocal(creds, tokens, mail, authprovider.Config{
		Issuer:     "gamerie-test",
		SigningKey: []byte("test-signing-key"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		SiteName:   "Gamerie",
		BaseURL:    "https://gamerie.test",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	return &Stack{
		Docs:     docs,
		Blobs:    blobstore.NewMemory(""),
		Users:    userstore.New(docs),
		Creds:    creds,
		Tokens:   tokens,
		Provider: p,
		Mail:     mail,
		Events:   &events.Recorder{},
	}
}

// SessionManager returns a cookie session manager verifying tokens against
// the stack's provider and users.
func (s *Stack) SessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", auth.DefaultSessionName, "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	sm.Attach(s.Provider, s.Users)
	return sm
}

// SignedIn creates a provider account and profile for name and returns the
// user with the cookies of a signed-in browser.
func (s *Stack) SignedIn(t *testing.T, sm *auth.SessionManager, name string) (models.User, []*http.Cookie) {
	t.Helper()
	ctx := context.Background()
	res, err := s.Provider.CreateAccount(ctx, name+"@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", name, err)
	}
	u := models.NewUser(res.UID, res.Email, name, models.RoleUser, time.Now().UTC().Truncate(time.Millisecond))
	if err := s.Users.Create(ctx, u); err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}

	rec := httptest.NewRecorder()
	if err := sm.Save(rec, httptest.NewRequest("POST", "/auth/login", nil), session.Restore(&u, res.IDToken, res.ExpiresAt)); err != nil {
		t.Fatalf("Save session: %v", err)
	}
	return u, rec.Result().Cookies()
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	users *userstore.Store
	t     *testing.T
}

// NewFixtures creates a Fixtures writing through docs.
func NewFixtures(t *testing.T, docs docstore.Documents) *Fixtures {
	t.Helper()
	return &Fixtures{users: userstore.New(docs), t: t}
}

// CreateUser stores a fresh user whose id, email and username derive from
// name.
func (f *Fixtures) CreateUser(ctx context.Context, name string) models.User {
	f.t.Helper()
	u := models.NewUser("uid-"+name, name+"@example.com", name, models.RoleUser, time.Now().UTC().Truncate(time.Millisecond))
	if err := f.users.Create(ctx, u); err != nil {
		f.t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

// CreateUserWith stores a user after applying mutate to the fresh value.
func (f *Fixtures) CreateUserWith(ctx context.Context, name string, mutate func(*models.User)) models.User {
	f.t.Helper()
	u := models.NewUser("uid-"+name, name+"@example.com", name, models.RoleUser, time.Now().UTC().Truncate(time.Millisecond))
	mutate(&u)
	if err := f.users.Create(ctx, u); err != nil {
		f.t.Fatalf("CreateUserWith(%s): %v", name, err)
	}
	return u
}

// MustGetUser reloads a user or fails the test.
func (f *Fixtures) MustGetUser(ctx context.Context, id string) *models.User {
	f.t.Helper()
	u, err := f.users.GetByID(ctx, id)
	if err != nil {
		f.t.Fatalf("GetByID(%s): %v", id, err)
	}
	return u
}
