// Package docstore is the document half of the remote store gateway.
//
// Documents are addressed by (collection, id). Partial updates merge only the
// given top-level fields; a field whose value is an array replaces the stored
// array whole. There is no retry and no multi-document transaction: a failure
// surfaces to the caller as an *apperr.Error immediately.
package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Fields is a top-level field map for PartialUpdate.
type Fields = bson.M

// Documents is the gateway contract used by the typed stores.
type Documents interface {
	// Fetch decodes the document into out. Missing documents are KindNotFound.
	Fetch(ctx context.Context, collection, id string, out any) error
	// Create inserts doc under id. An existing id is KindConflict.
	Create(ctx context.Context, collection, id string, doc any) error
	// PartialUpdate sets the given fields. A missing document is KindNotFound;
	// other failures are KindStoreWrite.
	PartialUpdate(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes the document. Deleting a missing document succeeds.
	Delete(ctx context.Context, collection, id string) error
}

const (
	msgNotFound    = "Document not found"
	msgExists      = "Document already exists"
	msgReadFailed  = "Failed to load data"
	msgWriteFailed = "Failed to save changes"
	msgDelete      = "Failed to delete data"
)
