// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/google/uuid"
)

// Collection holds audit events.
const Collection = "audit_events"

// Event categories
const (
	CategoryAuth    = "auth"
	CategoryProfile = "profile"
	CategorySocial  = "social"
)

// Auth event types
const (
	EventSignUp                = "sign_up"
	EventSignUpOrphaned        = "sign_up_orphaned_credential"
	EventLoginSuccess          = "login_success"
	EventLoginFailed           = "login_failed"
	EventLoginProfileMissing   = "login_profile_missing"
	EventLogout                = "logout"
	EventPasswordResetRequest  = "password_reset_requested"
	EventPasswordChanged       = "password_changed"
	EventVerificationEmailSent = "verification_email_sent"
	EventEmailVerified         = "email_verified"
)

// Profile event types
const (
	EventProfileUpdated       = "profile_updated"
	EventProfileImageUploaded = "profile_image_uploaded"
	EventProfileImageDeleted  = "profile_image_deleted"
	EventProfileDeleted       = "profile_deleted"
	EventStorageCleanupFailed = "storage_cleanup_failed"
)

// Social event types
const (
	EventFollowed   = "followed"
	EventUnfollowed = "unfollowed"
)

// Event represents an audit event.
type Event struct {
	ID        string    `bson:"_id"`
	Timestamp time.Time `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who
	UserID  string `bson:"user_id,omitempty"`  // affected user
	ActorID string `bson:"actor_id,omitempty"` // who performed the action, when different

	// Context
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// Store manages audit event records.
type Store struct {
	docs docstore.Documents
}

// New creates a new audit Store.
func New(docs docstore.Documents) *Store {
	return &Store{docs: docs}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return s.docs.Create(ctx, Collection, event.ID, event)
}

// Get loads one event by id.
func (s *Store) Get(ctx context.Context, id string) (*Event, error) {
	var e Event
	if err := s.docs.Fetch(ctx, Collection, id, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
