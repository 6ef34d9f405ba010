package credentials_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/gamerie/internal/app/store/credentials"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/testutil"
)

func TestStore_CreateAndLookup(t *testing.T) {
	s := credentials.New(docstore.NewMemory())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, err := s.Create(ctx, credentials.Credential{Email: "  Alice@Example.COM ", UID: "uid-1", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Email != "alice@example.com" {
		t.Errorf("Email = %q", c.Email)
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got, err := s.GetByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.UID != "uid-1" || got.EmailVerified {
		t.Errorf("got %+v", got)
	}
}

func TestStore_DuplicateEmail(t *testing.T) {
	s := credentials.New(docstore.NewMemory())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, _ = s.Create(ctx, credentials.Credential{Email: "a@example.com", UID: "1"})
	_, err := s.Create(ctx, credentials.Credential{Email: "A@EXAMPLE.COM", UID: "2"})
	if !errors.Is(err, credentials.ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_Updates(t *testing.T) {
	s := credentials.New(docstore.NewMemory())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, _ = s.Create(ctx, credentials.Credential{Email: "a@example.com", UID: "1", PasswordHash: "old"})
	if err := s.SetPasswordHash(ctx, "a@example.com", "new"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkVerified(ctx, "A@example.com"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetByEmail(ctx, "a@example.com")
	if got.PasswordHash != "new" || !got.EmailVerified {
		t.Errorf("got %+v", got)
	}

	if err := s.MarkVerified(ctx, "nobody@example.com"); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("MarkVerified missing err = %v", err)
	}
	if _, err := s.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("GetByEmail missing err = %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := credentials.New(docstore.NewMemory())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, _ = s.Create(ctx, credentials.Credential{Email: "a@example.com", UID: "1"})
	if err := s.Delete(ctx, "a@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetByEmail(ctx, "a@example.com"); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
