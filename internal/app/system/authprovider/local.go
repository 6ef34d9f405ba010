package authprovider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/gamerie/internal/app/store/credentials"
	"github.com/dalemusser/gamerie/internal/app/store/emailverify"
	"github.com/dalemusser/gamerie/internal/app/system/mailer"
	"github.com/dalemusser/gamerie/internal/app/system/normalize"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Config configures Local.
type Config struct {
	Issuer     string
	SigningKey []byte
	TokenTTL   time.Duration
	BcryptCost int

	SiteName string
	BaseURL  string // prefix for mailed links
}

const defaultTokenTTL = time.Hour

// Local is the in-process provider.
type Local struct {
	creds  *credentials.Store
	tokens *emailverify.Store
	mail   mailer.Sender
	cfg    Config
	log    *zap.Logger
	valid  *validator.Validate
	now    func() time.Time

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	revoked   map[string]time.Time // jti -> token expiry
}

type idClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// NewLocal builds a provider. SigningKey must be non-empty.
func NewLocal(creds *credentials.Store, tokens *emailverify.Store, mail mailer.Sender, cfg Config, log *zap.Logger) (*Local, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("authprovider: signing key is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "gamerie"
	}
	return &Local{
		creds:     creds,
		tokens:    tokens,
		mail:      mail,
		cfg:       cfg,
		log:       log,
		valid:     validator.New(),
		now:       time.Now,
		listeners: map[int]Listener{},
		revoked:   map[string]time.Time{},
	}, nil
}

// SetClock replaces the time source. Used by tests.
func (p *Local) SetClock(now func() time.Time) {
	p.now = now
}

// Subscribe registers l for session changes and returns a function that
// removes it.
func (p *Local) Subscribe(l Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Local) emit(e Event) {
	p.mu.Lock()
	ls := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.mu.Unlock()

	for _, l := range ls {
		l(e)
	}
}

func (p *Local) checkEmail(email string) error {
	if err := p.valid.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// CreateAccount registers email/password and signs the new account in.
func (p *Local) CreateAccount(ctx context.Context, email, password string) (SignInResult, error) {
	email = normalize.Email(email)
	if err := p.checkEmail(email); err != nil {
		return SignInResult{}, err
	}
	if len(password) < MinPasswordLength {
		return SignInResult{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return SignInResult{}, fmt.Errorf("hash password: %w", err)
	}

	cred, err := p.creds.Create(ctx, credentials.Credential{
		Email:        email,
		UID:          uuid.NewString(),
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, credentials.ErrDuplicateEmail) {
			return SignInResult{}, ErrEmailInUse
		}
		return SignInResult{}, fmt.Errorf("create credential: %w", err)
	}

	return p.signIn(Account{UID: cred.UID, Email: cred.Email})
}

// SignIn checks email/password and issues an ID token.
func (p *Local) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	cred, err := p.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return SignInResult{}, ErrInvalidCredentials
		}
		return SignInResult{}, fmt.Errorf("load credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return SignInResult{}, ErrInvalidCredentials
	}
	return p.signIn(Account{UID: cred.UID, Email: cred.Email, EmailVerified: cred.EmailVerified})
}

func (p *Local) signIn(acct Account) (SignInResult, error) {
	now := p.now()
	exp := now.Add(p.cfg.TokenTTL)
	claims := idClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.cfg.Issuer,
			Subject:   acct.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Email:         acct.Email,
		EmailVerified: acct.EmailVerified,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.cfg.SigningKey)
	if err != nil {
		return SignInResult{}, fmt.Errorf("sign token: %w", err)
	}

	p.emit(Event{Kind: SignedIn, UID: acct.UID, Email: acct.Email})
	return SignInResult{Account: acct, IDToken: signed, ExpiresAt: exp}, nil
}

// parse verifies the signature and issuer but not the expiry.
func (p *Local) parse(idToken string) (*idClaims, error) {
	var c idClaims
	_, err := jwt.ParseWithClaims(idToken, &c, func(t *jwt.Token) (any, error) {
		return p.cfg.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if c.Issuer != p.cfg.Issuer || c.Subject == "" || c.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// VerifyToken validates an ID token. An expired token is reported to
// subscribers as an Expired event.
func (p *Local) VerifyToken(ctx context.Context, idToken string) (Account, error) {
	c, err := p.parse(idToken)
	if err != nil {
		return Account{}, err
	}

	p.mu.Lock()
	_, revoked := p.revoked[c.ID]
	p.mu.Unlock()
	if revoked {
		return Account{}, ErrInvalidToken
	}

	if !c.ExpiresAt.Time.After(p.now()) {
		p.emit(Event{Kind: Expired, UID: c.Subject, Email: c.Email})
		return Account{}, ErrTokenExpired
	}
	return Account{UID: c.Subject, Email: c.Email, EmailVerified: c.EmailVerified}, nil
}

// SignOut revokes idToken. Unknown, malformed or empty tokens are ignored so
// that sign-out is idempotent.
func (p *Local) SignOut(ctx context.Context, idToken string) error {
	if idToken == "" {
		return nil
	}
	c, err := p.parse(idToken)
	if err != nil {
		return nil
	}

	now := p.now()
	p.mu.Lock()
	_, already := p.revoked[c.ID]
	p.revoked[c.ID] = c.ExpiresAt.Time
	for jti, exp := range p.revoked {
		if !exp.After(now) {
			delete(p.revoked, jti)
		}
	}
	p.mu.Unlock()

	if !already {
		p.emit(Event{Kind: SignedOut, UID: c.Subject, Email: c.Email})
	}
	return nil
}

// SendVerificationEmail mails a verify-email link for acct.
func (p *Local) SendVerificationEmail(ctx context.Context, acct Account) error {
	tok, err := p.tokens.Create(ctx, acct.UID, acct.Email, emailverify.PurposeVerify)
	if err != nil {
		return err
	}
	msg := mailer.BuildVerificationEmail(mailer.LinkEmailData{
		SiteName:  p.cfg.SiteName,
		Link:      fmt.Sprintf("%s/auth/verify?token=%s", p.cfg.BaseURL, tok.Token),
		ExpiresIn: formatExpiry(p.tokens.Expiry()),
	})
	msg.To = acct.Email
	return p.mail.Send(ctx, msg)
}

// SendPasswordResetEmail mails a reset link to an existing account.
func (p *Local) SendPasswordResetEmail(ctx context.Context, email string) error {
	email = normalize.Email(email)
	if err := p.checkEmail(email); err != nil {
		return err
	}
	cred, err := p.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	tok, err := p.tokens.Create(ctx, cred.UID, cred.Email, emailverify.PurposeReset)
	if err != nil {
		return err
	}
	msg := mailer.BuildPasswordResetEmail(mailer.LinkEmailData{
		SiteName:  p.cfg.SiteName,
		Link:      fmt.Sprintf("%s/auth/reset/confirm?token=%s", p.cfg.BaseURL, tok.Token),
		ExpiresIn: formatExpiry(p.tokens.Expiry()),
	})
	msg.To = cred.Email
	return p.mail.Send(ctx, msg)
}

// ConfirmPasswordReset sets a new password using a mailed reset token.
func (p *Local) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (Account, error) {
	if len(newPassword) < MinPasswordLength {
		return Account{}, ErrWeakPassword
	}
	t, err := p.tokens.Consume(ctx, token, emailverify.PurposeReset)
	if err != nil {
		if errors.Is(err, emailverify.ErrNotFound) {
			return Account{}, ErrLinkInvalid
		}
		return Account{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cfg.BcryptCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	if err := p.creds.SetPasswordHash(ctx, t.Email, string(hash)); err != nil {
		return Account{}, err
	}
	return Account{UID: t.UID, Email: t.Email}, nil
}

// VerifyEmail marks the account's address as confirmed using a mailed token.
func (p *Local) VerifyEmail(ctx context.Context, token string) (Account, error) {
	t, err := p.tokens.Consume(ctx, token, emailverify.PurposeVerify)
	if err != nil {
		if errors.Is(err, emailverify.ErrNotFound) {
			return Account{}, ErrLinkInvalid
		}
		return Account{}, err
	}
	if err := p.creds.MarkVerified(ctx, t.Email); err != nil {
		return Account{}, err
	}
	return Account{UID: t.UID, Email: t.Email, EmailVerified: true}, nil
}

// formatExpiry renders a duration for email copy ("24 hours", "30 minutes").
func formatExpiry(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
