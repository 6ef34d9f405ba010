// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/app/system/normalize"
)

// Collection holds pending email tokens. A TTL index on expires_at removes
// stale records in MongoDB.
const Collection = "email_tokens"

const (
	// TokenLength is the length of a link token in bytes (32 bytes = 64 hex chars).
	TokenLength = 32
	// DefaultExpiry is how long a token is valid.
	DefaultExpiry = 24 * time.Hour
)

// Purpose distinguishes what a token authorizes.
type Purpose string

const (
	PurposeVerify Purpose = "verify_email"
	PurposeReset  Purpose = "reset_password"
)

var (
	// ErrNotFound is returned when a token is unknown, already used, expired,
	// or was issued for a different purpose.
	ErrNotFound = errors.New("token not found or expired")
)

// Token is a single-use link token mailed to a user.
type Token struct {
	Token     string    `bson:"_id"`
	UID       string    `bson:"uid"`
	Email     string    `bson:"email"`
	Purpose   Purpose   `bson:"purpose"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages email tokens.
type Store struct {
	docs   docstore.Documents
	expiry time.Duration
	now    func() time.Time
}

// New creates a Store. If expiry is 0 or negative, DefaultExpiry is used.
func New(docs docstore.Documents, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{docs: docs, expiry: expiry, now: time.Now}
}

// Expiry returns the token lifetime.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// SetClock replaces the time source. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Create issues a new token and returns it.
func (s *Store) Create(ctx context.Context, uid, email string, purpose Purpose) (Token, error) {
	now := s.now().UTC()
	t := Token{
		Token:     generateToken(),
		UID:       uid,
		Email:     normalize.Email(email),
		Purpose:   purpose,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if err := s.docs.Create(ctx, Collection, t.Token, t); err != nil {
		return Token{}, fmt.Errorf("insert token: %w", err)
	}
	return t, nil
}

// Consume validates token for purpose and deletes it (single use).
func (s *Store) Consume(ctx context.Context, token string, purpose Purpose) (*Token, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var t Token
	if err := s.docs.Fetch(ctx, Collection, token, &t); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if t.Purpose != purpose {
		return nil, ErrNotFound
	}
	// Expired tokens are removed either way. A token is only handed out
	// once its document is gone.
	if err := s.docs.Delete(ctx, Collection, token); err != nil {
		return nil, fmt.Errorf("delete token: %w", err)
	}
	if !s.now().Before(t.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &t, nil
}

// generateToken generates a random link token.
// Panics if the system's cryptographic random number generator fails.
func generateToken() string {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand.Read failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
