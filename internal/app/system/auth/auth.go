package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/authprovider"
	"github.com/dalemusser/gamerie/internal/app/system/respond"
	"github.com/dalemusser/gamerie/internal/app/system/session"
	"github.com/dalemusser/gamerie/internal/app/system/timeouts"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "gamerie-session"

	tokenKey   = "id_token"
	expiresKey = "expires_at"
)

// TokenVerifier checks a provider ID token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (authprovider.Account, error)
}

// UserLoader loads the profile document for a verified account.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionManager keeps the provider ID token in a signed cookie and turns it
// back into a *session.Session on every request.
type SessionManager struct {
	store    *sessions.CookieStore
	name     string
	log      *zap.Logger
	verifier TokenVerifier
	users    UserLoader
}

// NewSessionManager builds a cookie store using the provided session key and
// domain. The `secure` flag controls whether cookies are marked Secure and
// which SameSite mode is used.
//
// In production (secure=true), cookies are Secure + SameSite=None.
// In local dev over http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, sessionName, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if sessionName == "" {
		sessionName = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", sessionName),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: sessionName, log: logger}, nil
}

// Attach wires the provider and the user store. Until it is called,
// LoadSessionUser treats every request as signed out.
func (sm *SessionManager) Attach(v TokenVerifier, users UserLoader) {
	sm.verifier = v
	sm.users = users
}

// Name returns the cookie name.
func (sm *SessionManager) Name() string {
	return sm.name
}

// Save writes sess's token to the cookie. A session that is not
// authenticated clears the cookie.
func (sm *SessionManager) Save(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	c := sm.get(r)
	if sess == nil || sess.State() != session.Authenticated {
		delete(c.Values, tokenKey)
		delete(c.Values, expiresKey)
		c.Options.MaxAge = -1
	} else {
		c.Values[tokenKey] = sess.Token()
		c.Values[expiresKey] = sess.ExpiresAt().Unix()
	}
	if err := c.Save(r, w); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	return nil
}

// get returns the cookie session. An undecodable cookie (rotated key,
// tampering) yields a fresh session.
func (sm *SessionManager) get(r *http.Request) *sessions.Session {
	c, err := sm.store.Get(r, sm.name)
	if err != nil {
		var cookieErr securecookie.Error
		if errors.As(err, &cookieErr) && cookieErr.IsDecode() {
			sm.log.Debug("discarding undecodable session cookie", zap.Error(err))
		} else {
			sm.log.Warn("session cookie read failed", zap.Error(err))
		}
	}
	// A copy of the store options so per-response changes do not leak.
	opts := *sm.store.Options
	c.Options = &opts
	return c
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-Session helpers                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentSessionKey ctxKey = "currentSession"

// WithSession returns r carrying sess. LoadSessionUser uses it; tests use it
// to inject a signed-in session.
func WithSession(r *http.Request, sess *session.Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentSessionKey, sess))
}

// CurrentSession returns the request's session. It is never nil: a request
// that did not pass through LoadSessionUser gets a fresh unauthenticated one.
func CurrentSession(r *http.Request) *session.Session {
	if s, ok := r.Context().Value(currentSessionKey).(*session.Session); ok && s != nil {
		return s
	}
	return session.New()
}

// CurrentUser returns the signed-in user and a "found?" flag.
func CurrentUser(r *http.Request) (*models.User, bool) {
	s, ok := r.Context().Value(currentSessionKey).(*session.Session)
	if !ok || s == nil || s.State() != session.Authenticated {
		return nil, false
	}
	u := s.User()
	return u, u != nil
}

// LoadSessionUser injects a session into the request context. A cookie whose
// token verifies and whose profile loads yields an authenticated session;
// anything else yields an unauthenticated one, and a token that no longer
// verifies is removed from the cookie.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.New()

		c := sm.get(r)
		tok, _ := c.Values[tokenKey].(string)
		if tok != "" && sm.verifier != nil && sm.users != nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
			if restored, ok := sm.restore(ctx, c, tok); ok {
				sess = restored
			} else {
				delete(c.Values, tokenKey)
				delete(c.Values, expiresKey)
				c.Options.MaxAge = -1
				if err := c.Save(r, w); err != nil {
					sm.log.Warn("clear session cookie failed", zap.Error(err))
				}
			}
			cancel()
		}

		next.ServeHTTP(w, WithSession(r, sess))
	})
}

func (sm *SessionManager) restore(ctx context.Context, c *sessions.Session, tok string) (*session.Session, bool) {
	acct, err := sm.verifier.VerifyToken(ctx, tok)
	if err != nil {
		sm.log.Debug("session token rejected", zap.Error(err))
		return nil, false
	}
	u, err := sm.users.GetByID(ctx, acct.UID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			sm.log.Warn("session user has no profile", zap.String("user_id", acct.UID))
		} else {
			sm.log.Error("session user load failed", zap.String("user_id", acct.UID), zap.Error(err))
		}
		return nil, false
	}
	var exp time.Time
	if unix, ok := c.Values[expiresKey].(int64); ok {
		exp = time.Unix(unix, 0)
	}
	return session.Restore(u, tok, exp), true
}

// RequireSignedIn ensures there is an authenticated session in context (set
// by LoadSessionUser). Otherwise it answers 401 with a JSON body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		respond.JSON(w, http.StatusUnauthorized, respond.Body{
			Message: "Please sign in",
			Kind:    string(apperr.KindUnauthorized),
		})
	})
}

// RequireSelf allows the request only when the signed-in user's id equals
// the URL parameter param. It mirrors the "is own profile" check of the
// profile pages and must run after RequireSignedIn.
func (sm *SessionManager) RequireSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CurrentSession(r).IsOwn(chi.URLParam(r, param)) {
				next.ServeHTTP(w, r)
				return
			}
			respond.JSON(w, http.StatusForbidden, respond.Body{
				Message: "You can only change your own profile",
				Kind:    string(apperr.KindUnauthorized),
			})
		})
	}
}
