// Package session holds the signed-in state of one client.
//
// A Session moves Unauthenticated -> Authenticating -> Authenticated while a
// sign-in or sign-up is in flight, and back to Unauthenticated on failure,
// logout, or a provider-reported sign-out. It is safe for concurrent use.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/dalemusser/gamerie/internal/domain/models"
)

// State is the authentication state of a Session.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// Session is the explicit replacement for a process-wide current user.
type Session struct {
	mu        sync.RWMutex
	state     State
	user      *models.User
	token     string
	expiresAt time.Time
}

// New returns an unauthenticated session.
func New() *Session {
	return &Session{}
}

// Restore returns an authenticated session for an already verified token.
func Restore(u *models.User, token string, expiresAt time.Time) *Session {
	s := New()
	s.Set(u, token, expiresAt)
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Begin marks a sign-in or sign-up as in flight. It returns false if one is
// already in flight on this session.
func (s *Session) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Authenticating {
		return false
	}
	s.state = Authenticating
	return true
}

// Set records the signed-in user and token.
func (s *Session) Set(u *models.User, token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = clone(u)
	s.token = token
	s.expiresAt = expiresAt
	if u == nil {
		s.state = Unauthenticated
		return
	}
	s.state = Authenticated
}

// Fail abandons an in-flight sign-in. The session ends up unauthenticated.
func (s *Session) Fail() {
	s.Clear()
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Unauthenticated
	s.user = nil
	s.token = ""
	s.expiresAt = time.Time{}
}

// Refresh replaces the cached user snapshot when u is the signed-in user.
// It reports whether the snapshot was replaced.
func (s *Session) Refresh(u *models.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated || s.user == nil || u == nil || u.ID != s.user.ID {
		return false
	}
	s.user = clone(u)
	return true
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.user)
}

// UserID returns the signed-in user's id, or "".
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Token returns the provider ID token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt returns the token expiry.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// IsOwn reports whether userID is the signed-in user.
func (s *Session) IsOwn(userID string) bool {
	id := s.UserID()
	return id != "" && id == userID
}

func clone(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	c.GamesPlayed = slices.Clone(u.GamesPlayed)
	c.Teams = slices.Clone(u.Teams)
	c.Achievements = slices.Clone(u.Achievements)
	c.Followers = slices.Clone(u.Followers)
	c.Following = slices.Clone(u.Following)
	return &c
}
