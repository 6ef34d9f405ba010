package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/storage"
)

func TestUserPath(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	if got := UserPath("u1", "profile", at); got != "users/u1/profile-1700000000123" {
		t.Errorf("UserPath = %q", got)
	}
	if got := UserPrefix("u1"); got != "users/u1/" {
		t.Errorf("UserPrefix = %q", got)
	}
}

func TestResolvePath(t *testing.T) {
	base := "https://storage.googleapis.com/bucket"
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"path", "users/u1/profile-1", "users/u1/profile-1"},
		{"leading slash", "/users/u1/profile-1", "users/u1/profile-1"},
		{"url", base + "/users/u1/profile-1", "users/u1/profile-1"},
		{"url with query", base + "/users/u1/profile-1?alt=media", "users/u1/profile-1"},
		{"escaped", base + "/users/a%20b/x", "users/a b/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolvePath(base, tt.ref); got != tt.want {
				t.Errorf("resolvePath(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestMemory_UploadDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")

	url, err := m.Upload(ctx, "users/u1/profile-1", strings.NewReader("png"), "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != MemoryBaseURL+"/users/u1/profile-1" {
		t.Errorf("url = %q", url)
	}
	if !m.Exists(url) || !m.Exists("users/u1/profile-1") {
		t.Fatal("uploaded object should be addressable by url and path")
	}
	if m.ContentType("users/u1/profile-1") != "image/png" {
		t.Errorf("content type = %q", m.ContentType("users/u1/profile-1"))
	}

	if err := m.Delete(ctx, url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if m.Exists(url) {
		t.Error("object still exists after delete")
	}

	err = m.Delete(ctx, url)
	if !apperr.Is(err, apperr.KindStorageDelete) || !errors.Is(err, ErrNotExist) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestMemory_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")
	for _, p := range []string{"users/u1/profile-1", "users/u1/background-2", "users/u10/profile-3"} {
		if _, err := m.Upload(ctx, p, strings.NewReader("x"), "image/png"); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.DeletePrefix(ctx, UserPrefix("u1")); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if got := m.List("users/u1/"); len(got) != 0 {
		t.Errorf("remaining under u1: %v", got)
	}
	if got := m.List("users/u10/"); len(got) != 1 {
		t.Errorf("u10 should be untouched, got %v", got)
	}
}

func TestDeletePrefix_MoreThanOnePage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")
	for i := 0; i < listPage+5; i++ {
		if _, err := m.Upload(ctx, fmt.Sprintf("users/u1/img-%05d", i), strings.NewReader("x"), "image/png"); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.DeletePrefix(ctx, UserPrefix("u1")); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if got := m.List("users/u1/"); len(got) != 0 {
		t.Errorf("%d objects left", len(got))
	}
}

// partialDeleter reports one object per batch as not deleted, the way S3
// answers a quiet DeleteObjects with per-key errors.
type partialDeleter struct {
	*storage.Memory
}

func (p partialDeleter) DeleteMany(ctx context.Context, paths []string) (int, error) {
	n, err := p.Memory.DeleteMany(ctx, paths[1:])
	return n, err
}

func TestDeletePrefix_ReportsUndeletedObjects(t *testing.T) {
	ctx := context.Background()
	s := New(partialDeleter{storage.NewMemory(storage.MemoryConfig{BaseURL: MemoryBaseURL})})
	for _, p := range []string{"users/u1/profile-1", "users/u1/background-2"} {
		if _, err := s.Upload(ctx, p, strings.NewReader("x"), "image/png"); err != nil {
			t.Fatal(err)
		}
	}

	err := s.DeletePrefix(ctx, UserPrefix("u1"))
	if !apperr.Is(err, apperr.KindStorageDelete) {
		t.Fatalf("err = %v, want storage delete error", err)
	}
	if !strings.Contains(err.Error(), "1 of 2 objects") {
		t.Errorf("err = %v", err)
	}
}

func TestMemory_FailOn(t *testing.T) {
	m := NewMemory("")
	m.FailOn = func(op, path string) error {
		if op == OpUpload {
			return errors.New("quota exceeded")
		}
		return nil
	}
	_, err := m.Upload(context.Background(), "users/u1/profile-1", strings.NewReader("x"), "image/png")
	if !apperr.Is(err, apperr.KindUpload) {
		t.Errorf("kind = %q, want upload", apperr.KindOf(err))
	}
	if m.Exists("users/u1/profile-1") {
		t.Error("failed upload should not store the object")
	}
}
