// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: User Identifiers
//   - UserID / userID / user_id: the auth subject id, also the users document id
//   - ActorID: the signed-in user performing an action on another user

import (
	"context"
	"net/http"

	"github.com/dalemusser/gamerie/internal/app/store/audit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (sign-up, login, logout, password, verification).
	// Values: "all" (store + zap), "db" (store only), "log" (zap only), "off" (disabled)
	Auth string
	// Profile controls logging for profile and relationship changes.
	// Values: "all" (store + zap), "db" (store only), "log" (zap only), "off" (disabled)
	Profile string
}

// Logger provides convenience methods for logging audit events.
// It logs to the document store (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

type requestInfoKey struct{}

type requestInfo struct {
	ip        string
	userAgent string
}

// WithRequest stores the client address and user agent of r in ctx so that
// events logged further down the call chain carry them.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{
		ip:        getClientIP(r),
		userAgent: r.UserAgent(),
	})
}

// Middleware attaches request info to every request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequest(r.Context(), r)))
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// Fall back to RemoteAddr
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryProfile, audit.CategorySocial:
		setting = l.config.Profile
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if info, ok := ctx.Value(requestInfoKey{}).(requestInfo); ok {
		if event.IP == "" {
			event.IP = info.ip
		}
		if event.UserAgent == "" {
			event.UserAgent = info.userAgent
		}
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// SignUp logs a registration attempt.
func (l *Logger) SignUp(ctx context.Context, userID, email string, success bool, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventSignUp,
		UserID:        userID,
		Success:       success,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// OrphanedCredential logs a credential whose user document could not be written.
func (l *Logger) OrphanedCredential(ctx context.Context, userID, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventSignUpOrphaned,
		UserID:        userID,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginFailed logs a rejected sign-in.
func (l *Logger) LoginFailed(ctx context.Context, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// LoginProfileMissing logs a sign-in whose user document does not exist.
func (l *Logger) LoginProfileMissing(ctx context.Context, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginProfileMissing,
		UserID:        userID,
		Success:       false,
		FailureReason: "user document missing",
		Details:       map[string]string{"email": email},
	})
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		Success:   true,
	})
}

// PasswordResetRequested logs a reset mail request.
func (l *Logger) PasswordResetRequested(ctx context.Context, email string, success bool, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventPasswordResetRequest,
		Success:       success,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// PasswordChanged logs a completed password reset.
func (l *Logger) PasswordChanged(ctx context.Context, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordChanged,
		UserID:    userID,
		Success:   true,
	})
}

// VerificationEmailSent logs the outcome of sending a verification mail.
func (l *Logger) VerificationEmailSent(ctx context.Context, userID, email string, success bool, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventVerificationEmailSent,
		UserID:        userID,
		Success:       success,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// EmailVerified logs a confirmed email address.
func (l *Logger) EmailVerified(ctx context.Context, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventEmailVerified,
		UserID:    userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// --- Profile Events ---

// ProfileUpdated logs a profile write. fields lists the written field names.
func (l *Logger) ProfileUpdated(ctx context.Context, userID, fields string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryProfile,
		EventType: audit.EventProfileUpdated,
		UserID:    userID,
		Success:   true,
		Details:   map[string]string{"fields": fields},
	})
}

// ProfileImageUploaded logs a new profile or background image.
func (l *Logger) ProfileImageUploaded(ctx context.Context, userID, kind, url string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryProfile,
		EventType: audit.EventProfileImageUploaded,
		UserID:    userID,
		Success:   true,
		Details:   map[string]string{"kind": kind, "url": url},
	})
}

// ProfileImageDeleted logs a removed profile or background image.
func (l *Logger) ProfileImageDeleted(ctx context.Context, userID, kind string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryProfile,
		EventType: audit.EventProfileImageDeleted,
		UserID:    userID,
		Success:   true,
		Details:   map[string]string{"kind": kind},
	})
}

// ProfileDeleted logs a deleted user document.
func (l *Logger) ProfileDeleted(ctx context.Context, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryProfile,
		EventType: audit.EventProfileDeleted,
		UserID:    userID,
		Success:   true,
	})
}

// StorageCleanupFailed logs binaries left behind after a profile delete.
func (l *Logger) StorageCleanupFailed(ctx context.Context, userID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryProfile,
		EventType:     audit.EventStorageCleanupFailed,
		UserID:        userID,
		Success:       false,
		FailureReason: reason,
	})
}

// --- Social Events ---

// Followed logs actorID following userID.
func (l *Logger) Followed(ctx context.Context, actorID, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySocial,
		EventType: audit.EventFollowed,
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
	})
}

// Unfollowed logs actorID unfollowing userID.
func (l *Logger) Unfollowed(ctx context.Context, actorID, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySocial,
		EventType: audit.EventUnfollowed,
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
	})
}
