package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/domain/models"
)

// Collection holds one document per user, keyed by the auth subject id.
const Collection = "users"

// Store reads and writes User documents through the document gateway.
type Store struct {
	docs docstore.Documents
}

func New(docs docstore.Documents) *Store {
	return &Store{docs: docs}
}

// GetByID loads a user. A missing document is apperr.KindNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.docs.Fetch(ctx, Collection, id, &u); err != nil {
		return nil, err
	}
	normalizeCollections(&u)
	return &u, nil
}

// Create inserts u under u.ID. An existing id is apperr.KindConflict.
func (s *Store) Create(ctx context.Context, u models.User) error {
	normalizeCollections(&u)
	return s.docs.Create(ctx, Collection, u.ID, u)
}

// Update writes the patch as one partial update, stamping updatedAt with now.
// An empty patch still stamps updatedAt.
func (s *Store) Update(ctx context.Context, id string, p models.UserPatch, now time.Time) error {
	return s.docs.PartialUpdate(ctx, Collection, id, p.Fields(now))
}

// Delete removes the user document.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, Collection, id)
}

// normalizeCollections turns null arrays (older documents, hand-written
// fixtures) into empty ones so callers never see nil collections.
func normalizeCollections(u *models.User) {
	if u.GamesPlayed == nil {
		u.GamesPlayed = []models.Game{}
	}
	if u.Teams == nil {
		u.Teams = []models.TeamMembership{}
	}
	if u.Achievements == nil {
		u.Achievements = []models.Achievement{}
	}
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}
}
