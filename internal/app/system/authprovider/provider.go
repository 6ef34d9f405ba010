// Package authprovider is the identity provider behind Gamerie accounts.
//
// Local keeps email/password credentials in the document store, hashes
// passwords with bcrypt, issues HS256 ID tokens whose subject is the account
// uid, and mails single-use links for email verification and password reset.
// Session changes (sign-in, sign-out, token expiry) are broadcast to
// subscribers.
package authprovider

import (
	"errors"
	"time"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("no account for this email")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrLinkInvalid        = errors.New("link is invalid or has expired")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Account identifies an authenticated principal.
type Account struct {
	UID           string
	Email         string
	EmailVerified bool
}

// SignInResult is returned by account creation and sign-in.
type SignInResult struct {
	Account
	IDToken   string
	ExpiresAt time.Time
}

// EventKind is the kind of a session change.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	Expired
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Event reports a session change for one account.
type Event struct {
	Kind  EventKind
	UID   string
	Email string
}

// Listener receives session changes. Listeners are called synchronously on
// the goroutine that caused the change and must not block.
type Listener func(Event)
