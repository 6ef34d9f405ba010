// Package social maintains the relationship lists of a user document:
// followers, games, achievements and team memberships.
//
// Every operation is a read-modify-write against a snapshot held in the
// Manager's cache, not against the live document. Calls for the same user are
// serialized in this process; another process (or a second Manager) editing
// the same user can still be overwritten, last writer wins.
package social

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/auditlog"
	"github.com/dalemusser/gamerie/internal/app/system/events"
	"github.com/dalemusser/gamerie/internal/app/system/notify"
	"github.com/dalemusser/gamerie/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	OpFollowUser        = "followUser"
	OpUnfollowUser      = "unfollowUser"
	OpAddGame           = "addGame"
	OpUpdateGame        = "updateGame"
	OpRemoveGame        = "removeGame"
	OpAddAchievement    = "addAchievement"
	OpRemoveAchievement = "removeAchievement"
	OpJoinTeam          = "joinTeam"
	OpLeaveTeam         = "leaveTeam"
)

// Users is the part of the user store the manager uses.
type Users interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, p models.UserPatch, now time.Time) error
}

// Options tunes relationship bookkeeping.
type Options struct {
	// Reciprocal also maintains the actor's Following list on follow and
	// unfollow. Off by default: only the target's Followers is written.
	Reciprocal bool

	// Refresh reloads the snapshot from the store at the start of every
	// operation instead of reusing the cached one. Operations on one user
	// are still serialized.
	Refresh bool
}

// Manager implements the relationship operations.
type Manager struct {
	users    Users
	audit    *auditlog.Logger
	notifier *notify.Notifier
	events   events.Publisher
	log      *zap.Logger
	opts     Options
	now      func() time.Time
	newID    func() string

	cacheMu sync.RWMutex
	cache   map[string]cached

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

// keyLock serializes work on one user id. refs counts holders and waiters;
// the entry leaves Manager.locks when it drops to zero.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

type cached struct {
	user     *models.User
	loadedAt time.Time
}

// New builds a Manager. audit, notifier and pub may be nil.
func New(users Users, opts Options, audit *auditlog.Logger, notifier *notify.Notifier, pub events.Publisher, log *zap.Logger) *Manager {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Manager{
		users:    users,
		audit:    audit,
		notifier: notifier,
		events:   pub,
		log:      log,
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
		cache:    make(map[string]cached),
		locks:    make(map[string]*keyLock),
	}
}

// SetClock replaces the time source. Used by tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// SetIDFunc replaces the id generator. Used by tests.
func (m *Manager) SetIDFunc(f func() string) { m.newID = f }

func (m *Manager) acquire(id string) *keyLock {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &keyLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return l
}

func (m *Manager) release(id string, l *keyLock) {
	l.mu.Unlock()

	m.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
	m.locksMu.Unlock()
}

// lock acquires the locks of every distinct id in sorted order and returns
// the matching unlock.
func (m *Manager) lock(ids ...string) func() {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	held := make([]*keyLock, 0, len(uniq))
	for _, id := range uniq {
		held = append(held, m.acquire(id))
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			m.release(uniq[i], held[i])
		}
	}
}

// Load fetches userID from the store, replacing any cached snapshot, and
// returns a copy of it.
func (m *Manager) Load(ctx context.Context, userID string) (*models.User, error) {
	unlock := m.lock(userID)
	defer unlock()
	u, err := m.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	return clone(u), nil
}

// Forget drops the cached snapshot of userID.
func (m *Manager) Forget(userID string) {
	m.cacheMu.Lock()
	delete(m.cache, userID)
	m.cacheMu.Unlock()
}

func (m *Manager) fetch(ctx context.Context, userID string) (*models.User, error) {
	u, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.cacheMu.Lock()
	m.cache[userID] = cached{user: u, loadedAt: m.now()}
	m.cacheMu.Unlock()
	return u, nil
}

// Prune drops snapshots loaded before cutoff and returns how many were
// dropped. The next operation on those users fetches them again.
func (m *Manager) Prune(cutoff time.Time) int {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	n := 0
	for id, c := range m.cache {
		if c.loadedAt.Before(cutoff) {
			delete(m.cache, id)
			n++
		}
	}
	return n
}

// snapshot returns a copy of the cached user, loading it when absent. The
// caller must hold the user's lock.
func (m *Manager) snapshot(ctx context.Context, op, userID string) (*models.User, error) {
	m.cacheMu.RLock()
	c, ok := m.cache[userID]
	m.cacheMu.RUnlock()
	u := c.user
	if !ok || m.opts.Refresh {
		var err error
		if u, err = m.fetch(ctx, userID); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.New(apperr.KindNotFound, op, "User not found", err)
			}
			return nil, apperr.New(apperr.KindOf(err), op, "Failed to load user", err)
		}
	}
	return clone(u), nil
}

// commit persists p for userID and folds it into the cached snapshot. The
// cache is left untouched when the write fails.
func (m *Manager) commit(ctx context.Context, op, userID string, p models.UserPatch, failMsg string) error {
	now := m.now().UTC()
	if err := m.users.Update(ctx, userID, p, now); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			m.Forget(userID)
			return apperr.New(apperr.KindNotFound, op, "User not found", err)
		}
		return apperr.New(apperr.KindStoreWrite, op, failMsg, err)
	}
	m.cacheMu.Lock()
	if c, ok := m.cache[userID]; ok {
		next := clone(c.user)
		p.Apply(next, now)
		m.cache[userID] = cached{user: next, loadedAt: c.loadedAt}
	}
	m.cacheMu.Unlock()
	return nil
}

func (m *Manager) fail(ctx context.Context, op string, err error) error {
	m.notifier.Error(ctx, op, err, "")
	return err
}

func (m *Manager) publish(ctx context.Context, subject string, ev events.UserEvent) {
	if err := m.events.Publish(ctx, subject, ev); err != nil {
		m.log.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// FollowUser adds actorID to targetID's followers. Following twice is a
// no-op without a write.
func (m *Manager) FollowUser(ctx context.Context, actorID, targetID string) error {
	return m.setFollow(ctx, OpFollowUser, actorID, targetID, true)
}

// UnfollowUser removes actorID from targetID's followers. Unfollowing someone
// not followed is a no-op without a write.
func (m *Manager) UnfollowUser(ctx context.Context, actorID, targetID string) error {
	return m.setFollow(ctx, OpUnfollowUser, actorID, targetID, false)
}

func (m *Manager) setFollow(ctx context.Context, op, actorID, targetID string, follow bool) error {
	failMsg := "Failed to update follow status"
	if strings.TrimSpace(actorID) == "" {
		return m.fail(ctx, op, apperr.New(apperr.KindUnauthorized, op, "Please login to follow users", nil))
	}
	if actorID == targetID {
		return m.fail(ctx, op, apperr.Validation(op, "You cannot follow yourself"))
	}

	ids := []string{targetID}
	if m.opts.Reciprocal {
		ids = append(ids, actorID)
	}
	unlock := m.lock(ids...)
	defer unlock()

	target, err := m.snapshot(ctx, op, targetID)
	if err != nil {
		return m.fail(ctx, op, err)
	}
	if next, changed := toggle(target.Followers, actorID, follow); changed {
		if err := m.commit(ctx, op, targetID, models.UserPatch{Followers: &next}, failMsg); err != nil {
			return m.fail(ctx, op, err)
		}
	}

	if m.opts.Reciprocal {
		actor, err := m.snapshot(ctx, op, actorID)
		if err != nil {
			m.log.Warn("follow recorded on target only", zap.String("actor_id", actorID), zap.String("target_id", targetID), zap.Error(err))
			return m.fail(ctx, op, err)
		}
		if next, changed := toggle(actor.Following, targetID, follow); changed {
			if err := m.commit(ctx, op, actorID, models.UserPatch{Following: &next}, failMsg); err != nil {
				m.log.Warn("follow recorded on target only", zap.String("actor_id", actorID), zap.String("target_id", targetID), zap.Error(err))
				return m.fail(ctx, op, err)
			}
		}
	}

	ev := events.UserEvent{UserID: targetID, ActorID: actorID, At: m.now().UTC()}
	if follow {
		m.audit.Followed(ctx, actorID, targetID)
		m.publish(ctx, events.SubjectUserFollowed, ev)
		m.notifier.Success(ctx, op, "Following successfully")
	} else {
		m.audit.Unfollowed(ctx, actorID, targetID)
		m.publish(ctx, events.SubjectUserUnfollowed, ev)
		m.notifier.Success(ctx, op, "Unfollowed successfully")
	}
	return nil
}

// toggle adds or removes id from set, reporting whether anything changed.
// The input slice is not modified.
func toggle(set []string, id string, add bool) ([]string, bool) {
	idx := -1
	for i, v := range set {
		if v == id {
			idx = i
			break
		}
	}
	switch {
	case add && idx < 0:
		out := make([]string, 0, len(set)+1)
		out = append(out, set...)
		return append(out, id), true
	case !add && idx >= 0:
		out := make([]string, 0, len(set)-1)
		out = append(out, set[:idx]...)
		return append(out, set[idx+1:]...), true
	}
	return set, false
}

func clone(u *models.User) *models.User {
	c := *u
	c.GamesPlayed = append([]models.Game{}, u.GamesPlayed...)
	c.Teams = append([]models.TeamMembership{}, u.Teams...)
	c.Achievements = append([]models.Achievement{}, u.Achievements...)
	c.Followers = append([]string{}, u.Followers...)
	c.Following = append([]string{}, u.Following...)
	return &c
}
