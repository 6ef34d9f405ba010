// internal/app/store/credentials/store.go
package credentials

// Terminology: User Identifiers
//   - UID / uid: the auth subject id, also the users document id
//   - Email: the normalized login identifier and the credential document id

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/app/system/normalize"
)

// Collection holds one credential per account.
const Collection = "credentials"

var (
	// ErrNotFound is returned when no credential exists for the email.
	ErrNotFound = errors.New("credential not found")
	// ErrDuplicateEmail is returned when an account already uses the email.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
)

// Credential is the auth provider's record of an account.
type Credential struct {
	Email         string    `bson:"_id"`
	UID           string    `bson:"uid"`
	PasswordHash  string    `bson:"password_hash"`
	EmailVerified bool      `bson:"email_verified"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// Store manages credential records.
type Store struct {
	docs docstore.Documents
}

func New(docs docstore.Documents) *Store {
	return &Store{docs: docs}
}

// Create inserts c after normalizing its email.
func (s *Store) Create(ctx context.Context, c Credential) (Credential, error) {
	c.Email = normalize.Email(c.Email)
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.docs.Create(ctx, Collection, c.Email, c); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return Credential{}, ErrDuplicateEmail
		}
		return Credential{}, err
	}
	return c, nil
}

// GetByEmail looks up a credential by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	var c Credential
	if err := s.docs.Fetch(ctx, Collection, normalize.Email(email), &c); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// SetPasswordHash replaces the stored bcrypt hash.
func (s *Store) SetPasswordHash(ctx context.Context, email, hash string) error {
	return s.update(ctx, email, docstore.Fields{"password_hash": hash})
}

// MarkVerified records that the email address was confirmed.
func (s *Store) MarkVerified(ctx context.Context, email string) error {
	return s.update(ctx, email, docstore.Fields{"email_verified": true})
}

// Delete removes the credential for email.
func (s *Store) Delete(ctx context.Context, email string) error {
	return s.docs.Delete(ctx, Collection, normalize.Email(email))
}

func (s *Store) update(ctx context.Context, email string, set docstore.Fields) error {
	set["updated_at"] = time.Now().UTC()
	if err := s.docs.PartialUpdate(ctx, Collection, normalize.Email(email), set); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
