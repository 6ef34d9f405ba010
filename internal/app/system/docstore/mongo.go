package docstore

import (
	"context"
	"errors"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mongo implements Documents on a MongoDB database. The document id is the
// string _id.
type Mongo struct {
	db *mongo.Database
}

// NewMongo wraps db.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) Fetch(ctx context.Context, collection, id string, out any) error {
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.New(apperr.KindNotFound, "fetch "+collection, msgNotFound, err)
	}
	return apperr.New(apperr.KindFailure, "fetch "+collection, msgReadFailed, err)
}

func (m *Mongo) Create(ctx context.Context, collection, id string, doc any) error {
	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return apperr.New(apperr.KindConflict, "create "+collection, msgExists, err)
		}
		return apperr.New(apperr.KindStoreWrite, "create "+collection, msgWriteFailed, err)
	}
	return nil
}

func (m *Mongo) PartialUpdate(ctx context.Context, collection, id string, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return apperr.New(apperr.KindStoreWrite, "update "+collection, msgWriteFailed, err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "update "+collection, msgNotFound, mongo.ErrNoDocuments)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return apperr.New(apperr.KindStoreWrite, "delete "+collection, msgDelete, err)
	}
	return nil
}
