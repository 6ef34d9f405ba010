package auditlog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/gamerie/internal/app/store/audit"
	"github.com/dalemusser/gamerie/internal/app/system/auditlog"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, "uid", "a@example.com")
	logger.Logout(ctx, "uid")
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		setting    string
		wantStored int
		wantLogged int
	}{
		{"all", 1, 1},
		{"db", 1, 0},
		{"log", 0, 1},
		{"off", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			docs := docstore.NewMemory()
			core, logs := observer.New(zap.InfoLevel)
			logger := auditlog.New(audit.New(docs), zap.New(core), auditlog.Config{
				Auth:    tt.setting,
				Profile: tt.setting,
			})
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger.LoginSuccess(ctx, "uid-1", "a@example.com")

			if got := docs.Len(audit.Collection); got != tt.wantStored {
				t.Errorf("stored = %d, want %d", got, tt.wantStored)
			}
			if got := logs.Len(); got != tt.wantLogged {
				t.Errorf("logged = %d, want %d", got, tt.wantLogged)
			}
		})
	}
}

func TestLogger_CategoryRouting(t *testing.T) {
	docs := docstore.NewMemory()
	logger := auditlog.New(audit.New(docs), zap.NewNop(), auditlog.Config{
		Auth:    "db",
		Profile: "off",
	})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.ProfileUpdated(ctx, "uid-1", "bio")
	logger.Followed(ctx, "uid-2", "uid-1")
	if docs.Len(audit.Collection) != 0 {
		t.Errorf("profile/social events should be off, stored %d", docs.Len(audit.Collection))
	}

	logger.Logout(ctx, "uid-1")
	if docs.Len(audit.Collection) != 1 {
		t.Errorf("auth event should be stored, got %d", docs.Len(audit.Collection))
	}
}

func TestMiddleware_AttachesRequestInfo(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: "log"})

	h := auditlog.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Logout(r.Context(), "uid-1")
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	if ip, _ := entries[0].ContextMap()["ip"].(string); ip != "203.0.113.7" {
		t.Errorf("ip = %q", ip)
	}
}

func TestLogger_StoreFailureIsLogged(t *testing.T) {
	docs := docstore.NewMemory()
	docs.FailOn = func(op, collection, id string) error { return context.DeadlineExceeded }
	core, logs := observer.New(zap.ErrorLevel)
	logger := auditlog.New(audit.New(docs), zap.New(core), auditlog.Config{Auth: "db"})

	logger.Logout(context.Background(), "uid-1")
	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("expected store failure to be logged")
	}
}
