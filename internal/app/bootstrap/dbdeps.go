// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/gamerie/internal/app/system/blobstore"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/app/system/events"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// MongoClient and MongoDatabase are nil when documents are kept in memory;
// everything else reads and writes through Docs.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Docs   docstore.Documents
	Blobs  blobstore.Blobs
	Events events.Publisher

	closers *closers
}
