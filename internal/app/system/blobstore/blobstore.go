// Package blobstore is the binary half of the remote store gateway.
//
// Objects live under hierarchical slash-separated paths in a waffle
// storage.Store backend. Upload returns a public URL for the stored object;
// Delete accepts either that URL or the raw path. DeletePrefix removes every
// object under a namespace and is used for advisory cleanup.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/storage"
)

// Blobs is the gateway contract used by the profile service.
type Blobs interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, pathOrURL string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Operation names passed to FailOn.
const (
	OpUpload       = "upload"
	OpDelete       = "delete"
	OpDeletePrefix = "deletePrefix"
)

const (
	msgUpload = "Failed to upload file"
	msgDelete = "Failed to delete file"

	listPage = 1000
)

// ErrNotExist is the cause attached when a deleted object is missing.
var ErrNotExist = errors.New("blobstore: object does not exist")

// Store adapts a storage.Store to Blobs. FailOn, when set, is consulted
// before each operation with one of the Op constants; tests use it to inject
// backend failures.
type Store struct {
	backend storage.Store
	base    string

	FailOn func(op, path string) error
}

// New wraps backend.
func New(backend storage.Store) *Store {
	return &Store{backend: backend, base: urlBase(backend)}
}

// urlBase recovers the URL prefix the backend puts in front of object paths.
func urlBase(b storage.Store) string {
	const key = "k"
	return strings.TrimSuffix(b.URL(key), "/"+key)
}

// Backend names the underlying storage backend.
func (s *Store) Backend() string { return s.backend.Backend() }

// Close releases the backend client when it holds one.
func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Store) fail(op, path string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn(op, path)
}

func (s *Store) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	if err := s.fail(OpUpload, path); err != nil {
		return "", apperr.New(apperr.KindUpload, OpUpload, msgUpload, err)
	}
	if err := s.backend.Put(ctx, path, r, &storage.PutOptions{ContentType: contentType}); err != nil {
		return "", apperr.New(apperr.KindUpload, OpUpload, msgUpload, err)
	}
	if u := s.backend.URL(path); u != "" {
		return u, nil
	}
	return path, nil
}

func (s *Store) Delete(ctx context.Context, pathOrURL string) error {
	path := resolvePath(s.base, pathOrURL)
	if err := s.fail(OpDelete, path); err != nil {
		return apperr.New(apperr.KindStorageDelete, OpDelete, msgDelete, err)
	}
	if err := s.backend.Delete(ctx, path); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = errors.Join(ErrNotExist, err)
		}
		return apperr.New(apperr.KindStorageDelete, OpDelete, msgDelete, err)
	}
	return nil
}

// DeletePrefix lists prefix page by page and deletes each page. Objects the
// backend reports as not deleted make the call fail.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if err := s.fail(OpDeletePrefix, prefix); err != nil {
		return apperr.New(apperr.KindStorageDelete, OpDeletePrefix, msgDelete, err)
	}

	var errs []error
	err := s.pages(ctx, prefix, func(batch []string) {
		n, err := s.backend.DeleteMany(ctx, batch)
		switch {
		case err != nil:
			errs = append(errs, err)
		case n < len(batch):
			errs = append(errs, fmt.Errorf("%d of %d objects under %q not deleted", len(batch)-n, len(batch), prefix))
		}
	})
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return apperr.New(apperr.KindStorageDelete, OpDeletePrefix, msgDelete, errors.Join(errs...))
	}
	return nil
}

// pages calls fn with each listed page of paths starting with prefix. The
// backend normalizes a trailing slash away, so results are filtered against
// the raw prefix to keep "users/u1/" from matching "users/u10/". Paths
// already seen are skipped, which ends the walk on backends that restart the
// listing instead of honoring the continuation token.
func (s *Store) pages(ctx context.Context, prefix string, fn func([]string)) error {
	seen := map[string]bool{}
	opts := &storage.ListOptions{MaxKeys: listPage}
	for {
		res, err := s.backend.List(ctx, prefix, opts)
		if err != nil {
			return err
		}
		fresh := 0
		var batch []string
		for _, o := range res.Objects {
			if seen[o.Path] {
				continue
			}
			seen[o.Path] = true
			fresh++
			if strings.HasPrefix(o.Path, prefix) {
				batch = append(batch, o.Path)
			}
		}
		if len(batch) > 0 {
			fn(batch)
		}
		if !res.IsTruncated || fresh == 0 {
			return nil
		}
		opts.ContinuationToken = res.NextContinuationToken
	}
}

// Exists reports whether an object is stored at pathOrURL.
func (s *Store) Exists(pathOrURL string) bool {
	ok, err := s.backend.Exists(context.Background(), resolvePath(s.base, pathOrURL))
	return err == nil && ok
}

// List returns the paths under prefix in listing order.
func (s *Store) List(prefix string) []string {
	var out []string
	_ = s.pages(context.Background(), prefix, func(batch []string) { out = append(out, batch...) })
	return out
}

// ContentType returns the stored content type, or "" if absent.
func (s *Store) ContentType(path string) string {
	info, err := s.backend.Head(context.Background(), path)
	if err != nil {
		return ""
	}
	return info.ContentType
}

// UserPath returns users/{userID}/{kind}-{epochMillis}.
func UserPath(userID, kind string, at time.Time) string {
	return fmt.Sprintf("users/%s/%s-%d", userID, kind, at.UnixMilli())
}

// UserPrefix returns the namespace holding every object of userID.
func UserPrefix(userID string) string {
	return "users/" + userID + "/"
}

// resolvePath maps an object URL back to its path. Anything that does not
// start with base is treated as a path already.
func resolvePath(base, ref string) string {
	prefix := strings.TrimRight(base, "/") + "/"
	if base == "" || !strings.HasPrefix(ref, prefix) {
		return strings.TrimPrefix(ref, "/")
	}
	rest := strings.TrimPrefix(ref, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	if p, err := url.PathUnescape(rest); err == nil {
		return p
	}
	return rest
}
