package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})
	got := Current()
	if got.Short != 7*time.Second {
		t.Errorf("Short = %v", got.Short)
	}
	if got.Medium != DefaultMedium || got.Upload != DefaultUpload {
		t.Errorf("unset values changed: %+v", got)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("GAMERIE_TIMEOUT_UPLOAD", "2m")
	t.Setenv("GAMERIE_TIMEOUT_PING", "not-a-duration")

	if n := ConfigureFromEnv(); n != 1 {
		t.Errorf("configured = %d, want 1", n)
	}
	if Upload() != 2*time.Minute {
		t.Errorf("Upload = %v", Upload())
	}
	if Ping() != DefaultPing {
		t.Errorf("Ping = %v, invalid value should be ignored", Ping())
	}
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.New(core), "follow user")
	<-ctx.Done()
	cancel()

	if logs.FilterMessage("operation timed out").Len() != 1 {
		t.Error("expected a timeout warning")
	}
}
