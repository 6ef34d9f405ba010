// Package account signs users up, in and out.
//
// Every operation works on an explicit *session.Session owned by the caller.
// The auth provider and the user document store are two separate systems;
// sign-up writes to both without a transaction (see SignUp).
package account

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/auditlog"
	"github.com/dalemusser/gamerie/internal/app/system/authprovider"
	"github.com/dalemusser/gamerie/internal/app/system/events"
	"github.com/dalemusser/gamerie/internal/app/system/normalize"
	"github.com/dalemusser/gamerie/internal/app/system/notify"
	"github.com/dalemusser/gamerie/internal/app/system/session"
	"github.com/dalemusser/gamerie/internal/app/system/timeouts"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"go.uber.org/zap"
)

// Operation names used in errors, notifications and metrics.
const (
	OpSignUp        = "signUp"
	OpSignIn        = "signIn"
	OpLogout        = "logout"
	OpResetPassword = "resetPassword"
	OpConfirmReset  = "confirmPasswordReset"
	OpVerifyEmail   = "verifyEmail"
)

// Provider is the part of the auth provider the manager uses.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (authprovider.SignInResult, error)
	SignIn(ctx context.Context, email, password string) (authprovider.SignInResult, error)
	SignOut(ctx context.Context, idToken string) error
	SendVerificationEmail(ctx context.Context, acct authprovider.Account) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) (authprovider.Account, error)
	VerifyEmail(ctx context.Context, token string) (authprovider.Account, error)
	Subscribe(l authprovider.Listener) func()
}

// Users is the part of the user store the manager uses.
type Users interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u models.User) error
}

// Manager runs the account operations.
type Manager struct {
	provider Provider
	users    Users
	audit    *auditlog.Logger
	notifier *notify.Notifier
	events   events.Publisher
	log      *zap.Logger
	now      func() time.Time

	bg sync.WaitGroup

	mu          sync.Mutex
	observer    func() // unsubscribe of the active ObserveSession listener
	observerGen int
}

// New builds a Manager. audit, notifier and pub may be nil.
func New(provider Provider, users Users, audit *auditlog.Logger, notifier *notify.Notifier, pub events.Publisher, log *zap.Logger) *Manager {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Manager{
		provider: provider,
		users:    users,
		audit:    audit,
		notifier: notifier,
		events:   pub,
		log:      log,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Wait blocks until background work (verification mail) has finished.
func (m *Manager) Wait() {
	m.bg.Wait()
}

func errBusy(op string) error {
	return apperr.New(apperr.KindConflict, op, "Another sign-in is already in progress", nil)
}

// SignUp creates the provider account and the user document, then signs the
// session in. role "" means models.RoleUser.
//
// The two writes are not atomic. When the document write fails after the
// credential exists, the credential is left in place, logged with its uid and
// audited as orphaned, and the error is a registration error.
func (m *Manager) SignUp(ctx context.Context, sess *session.Session, email, password, username string, role models.Role) (*models.User, error) {
	username = normalize.Username(username)
	role = models.Role(normalize.Role(string(role)))
	if role == "" {
		role = models.RoleUser
	}
	if username == "" {
		err := apperr.Validation(OpSignUp, "Username is required")
		m.notifier.Error(ctx, OpSignUp, err, "")
		return nil, err
	}
	if !role.Valid() {
		err := apperr.Validation(OpSignUp, "Invalid role")
		m.notifier.Error(ctx, OpSignUp, err, "")
		return nil, err
	}
	if !sess.Begin() {
		return nil, errBusy(OpSignUp)
	}

	res, err := m.provider.CreateAccount(ctx, email, password)
	if err != nil {
		sess.Fail()
		e := apperr.New(apperr.KindRegistration, OpSignUp, registrationMessage(err), err)
		m.audit.SignUp(ctx, "", normalize.Email(email), false, err.Error())
		m.notifier.Error(ctx, OpSignUp, e, "")
		return nil, e
	}

	m.sendVerification(ctx, res.Account)

	u := models.NewUser(res.UID, res.Email, username, role, m.now())
	if err := m.users.Create(ctx, u); err != nil {
		sess.Fail()
		m.log.Error("user document write failed after credential creation; credential orphaned",
			zap.String("user_id", res.UID),
			zap.String("email", res.Email),
			zap.Error(err))
		m.audit.OrphanedCredential(ctx, res.UID, res.Email, err.Error())
		if serr := m.provider.SignOut(ctx, res.IDToken); serr != nil {
			m.log.Warn("sign-out of orphaned account failed", zap.String("user_id", res.UID), zap.Error(serr))
		}
		e := apperr.Rekind(err, apperr.KindRegistration, OpSignUp, "Failed to create account")
		m.notifier.Error(ctx, OpSignUp, e, "")
		return nil, e
	}

	sess.Set(&u, res.IDToken, res.ExpiresAt)
	m.audit.SignUp(ctx, u.ID, u.Email, true, "")
	m.publish(ctx, events.SubjectUserCreated, events.UserEvent{UserID: u.ID, At: u.CreatedAt})
	m.notifier.Success(ctx, OpSignUp, "Welcome to Gamerie! Please check your email for verification.")
	return sess.User(), nil
}

// sendVerification mails the verification link in the background. Failure
// is logged and audited, never returned.
func (m *Manager) sendVerification(ctx context.Context, acct authprovider.Account) {
	bgCtx := context.WithoutCancel(ctx)
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		sendCtx, cancel := context.WithTimeout(bgCtx, timeouts.Medium())
		defer cancel()
		if err := m.provider.SendVerificationEmail(sendCtx, acct); err != nil {
			m.log.Warn("verification email failed",
				zap.String("user_id", acct.UID),
				zap.String("email", acct.Email),
				zap.Error(err))
			m.audit.VerificationEmailSent(bgCtx, acct.UID, acct.Email, false, err.Error())
			return
		}
		m.audit.VerificationEmailSent(bgCtx, acct.UID, acct.Email, true, "")
	}()
}

func registrationMessage(err error) string {
	switch {
	case errors.Is(err, authprovider.ErrEmailInUse):
		return "This email is already registered"
	case errors.Is(err, authprovider.ErrWeakPassword):
		return "Password should be at least 6 characters"
	case errors.Is(err, authprovider.ErrInvalidEmail):
		return "Invalid email address"
	}
	return "Failed to create account"
}

// SignIn checks the credentials, loads the user document and signs the
// session in. An unverified email adds a warning but does not fail.
func (m *Manager) SignIn(ctx context.Context, sess *session.Session, email, password string) (*models.User, error) {
	if !sess.Begin() {
		return nil, errBusy(OpSignIn)
	}

	res, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		sess.Fail()
		var e *apperr.Error
		if errors.Is(err, authprovider.ErrInvalidCredentials) {
			e = apperr.New(apperr.KindLogin, OpSignIn, "Invalid email or password", err)
		} else {
			e = apperr.New(apperr.KindLogin, OpSignIn, "Failed to sign in", err)
		}
		m.audit.LoginFailed(ctx, normalize.Email(email), err.Error())
		m.notifier.Error(ctx, OpSignIn, e, "")
		return nil, e
	}

	u, err := m.users.GetByID(ctx, res.UID)
	if err != nil {
		sess.Fail()
		if serr := m.provider.SignOut(ctx, res.IDToken); serr != nil {
			m.log.Warn("sign-out after failed profile load failed", zap.String("user_id", res.UID), zap.Error(serr))
		}
		var e *apperr.Error
		if apperr.Is(err, apperr.KindNotFound) {
			m.audit.LoginProfileMissing(ctx, res.UID, res.Email)
			e = apperr.New(apperr.KindProfileMissing, OpSignIn, "User profile not found", err)
		} else {
			e = apperr.Rekind(err, apperr.KindLogin, OpSignIn, "Failed to load profile")
		}
		m.notifier.Error(ctx, OpSignIn, e, "")
		return nil, e
	}

	sess.Set(u, res.IDToken, res.ExpiresAt)
	m.audit.LoginSuccess(ctx, u.ID, res.Email)
	if !res.EmailVerified {
		m.notifier.Warning(ctx, OpSignIn, "Please verify your email address")
	}
	m.notifier.Success(ctx, OpSignIn, "Welcome back to Gamerie!")
	return sess.User(), nil
}

// Logout signs the session's token out at the provider and clears the
// session. Logging out an empty session is a no-op success.
func (m *Manager) Logout(ctx context.Context, sess *session.Session) error {
	uid, tok := sess.UserID(), sess.Token()
	if err := m.provider.SignOut(ctx, tok); err != nil {
		e := apperr.New(apperr.KindFailure, OpLogout, "Failed to log out", err)
		m.notifier.Error(ctx, OpLogout, e, "")
		return e
	}
	sess.Clear()
	if uid != "" {
		m.audit.Logout(ctx, uid)
	}
	m.notifier.Success(ctx, OpLogout, "Successfully logged out")
	return nil
}

// ResetPassword asks the provider to mail a password-reset link.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	if err := m.provider.SendPasswordResetEmail(ctx, email); err != nil {
		msg := "Failed to send password reset email"
		switch {
		case errors.Is(err, authprovider.ErrUserNotFound):
			msg = "No account found with this email"
		case errors.Is(err, authprovider.ErrInvalidEmail):
			msg = "Invalid email address"
		}
		e := apperr.New(apperr.KindReset, OpResetPassword, msg, err)
		m.audit.PasswordResetRequested(ctx, normalize.Email(email), false, err.Error())
		m.notifier.Error(ctx, OpResetPassword, e, "")
		return e
	}
	m.audit.PasswordResetRequested(ctx, normalize.Email(email), true, "")
	m.notifier.Success(ctx, OpResetPassword, "Password reset email sent")
	return nil
}

// ConfirmPasswordReset completes a mailed reset link.
func (m *Manager) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	acct, err := m.provider.ConfirmPasswordReset(ctx, token, newPassword)
	if err != nil {
		msg := "Failed to reset password"
		switch {
		case errors.Is(err, authprovider.ErrWeakPassword):
			msg = "Password should be at least 6 characters"
		case errors.Is(err, authprovider.ErrLinkInvalid):
			msg = "This reset link is invalid or has expired"
		}
		e := apperr.New(apperr.KindReset, OpConfirmReset, msg, err)
		m.notifier.Error(ctx, OpConfirmReset, e, "")
		return e
	}
	m.audit.PasswordChanged(ctx, acct.UID)
	m.notifier.Success(ctx, OpConfirmReset, "Password updated. You can now log in.")
	return nil
}

// VerifyEmail completes a mailed verification link.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	acct, err := m.provider.VerifyEmail(ctx, token)
	if err != nil {
		kind := apperr.KindFailure
		msg := "Failed to verify email"
		if errors.Is(err, authprovider.ErrLinkInvalid) {
			kind = apperr.KindValidation
			msg = "This verification link is invalid or has expired"
		}
		e := apperr.New(kind, OpVerifyEmail, msg, err)
		m.notifier.Error(ctx, OpVerifyEmail, e, "")
		return e
	}
	m.audit.EmailVerified(ctx, acct.UID, acct.Email)
	m.notifier.Success(ctx, OpVerifyEmail, "Email verified")
	return nil
}

// ObserveSession keeps sess in step with provider session changes for the
// session's own account and returns a function that stops observing.
//
// Only one observer is active per Manager: a second call replaces the first
// and logs a warning.
//
// On a sign-in of the session's account the user document is fetched again;
// a missing document or a failed fetch clears the session. Sign-out or token
// expiry of the session's account clears the session. Events for other
// accounts, and events that arrive while a sign-in or sign-up on sess is in
// flight, are ignored. onChange (may be nil) receives the session's user
// after every change, nil when the session was cleared.
func (m *Manager) ObserveSession(ctx context.Context, sess *session.Session, onChange func(*models.User)) (stop func()) {
	listener := func(e authprovider.Event) {
		if sess.State() == session.Authenticating {
			return
		}
		if e.UID == "" || sess.UserID() != e.UID {
			return
		}

		switch e.Kind {
		case authprovider.SignedIn:
			fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
			u, err := m.users.GetByID(fetchCtx, e.UID)
			cancel()
			if err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					m.log.Warn("session user document missing; clearing session", zap.String("user_id", e.UID))
				} else {
					m.log.Error("session user refresh failed; clearing session", zap.String("user_id", e.UID), zap.Error(err))
				}
				sess.Clear()
				notifyChange(onChange, nil)
				return
			}
			if sess.Refresh(u) {
				notifyChange(onChange, sess.User())
			}
		case authprovider.SignedOut, authprovider.Expired:
			sess.Clear()
			notifyChange(onChange, nil)
		}
	}

	unsubscribe := m.provider.Subscribe(listener)

	m.mu.Lock()
	prev := m.observer
	m.observerGen++
	gen := m.observerGen
	m.observer = unsubscribe
	m.mu.Unlock()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			unsubscribe()
			m.mu.Lock()
			if m.observerGen == gen {
				m.observer = nil
			}
			m.mu.Unlock()
		})
	}

	if prev != nil {
		m.log.Warn("session observer replaced; only one observer is active at a time")
		prev()
	}
	return stop
}

func notifyChange(onChange func(*models.User), u *models.User) {
	if onChange != nil {
		onChange(u)
	}
}

func (m *Manager) publish(ctx context.Context, subject string, payload any) {
	if err := m.events.Publish(ctx, subject, payload); err != nil {
		m.log.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
