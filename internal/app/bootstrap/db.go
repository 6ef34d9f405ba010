// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/gamerie/internal/app/system/blobstore"
	"github.com/dalemusser/gamerie/internal/app/system/docstore"
	"github.com/dalemusser/gamerie/internal/app/system/events"
	"github.com/dalemusser/gamerie/internal/app/system/indexes"
	"github.com/dalemusser/gamerie/internal/app/system/timeouts"
	"github.com/dalemusser/gamerie/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB dials the document store, the blob backend and the event broker.
// Whatever was opened before a failure is closed again.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (deps DBDeps, err error) {
	deps.closers = &closers{}
	defer func() {
		if err != nil {
			deps.closers.run(context.Background(), logger)
		}
	}()

	switch appCfg.DocStore {
	case "memory":
		deps.Docs = docstore.NewMemory()
	default:
		client, db, cerr := connectMongo(ctx, appCfg, logger)
		if cerr != nil {
			return deps, cerr
		}
		deps.MongoClient, deps.MongoDatabase = client, db
		deps.Docs = docstore.NewMongo(db)
		deps.closers.add("mongo", client.Disconnect)
	}

	switch appCfg.BlobBackend {
	case "gcs":
		g, gerr := blobstore.NewGCS(ctx, blobstore.GCSConfig{
			Bucket:          appCfg.GCSBucket,
			CredentialsFile: appCfg.GCSCredentialsFile,
			PublicBaseURL:   appCfg.BlobPublicURL,
		})
		if gerr != nil {
			return deps, fmt.Errorf("gcs: %w", gerr)
		}
		deps.Blobs = g
		deps.closers.add("gcs", func(context.Context) error { return g.Close() })
	case "s3":
		s, serr := blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:        appCfg.S3Bucket,
			Region:        appCfg.S3Region,
			Endpoint:      appCfg.S3Endpoint,
			PublicBaseURL: appCfg.BlobPublicURL,
		})
		if serr != nil {
			return deps, fmt.Errorf("s3: %w", serr)
		}
		deps.Blobs = s
	default:
		deps.Blobs = blobstore.NewMemory(appCfg.BlobPublicURL)
	}
	logger.Info("blob storage ready", zap.String("backend", appCfg.BlobBackend))

	if appCfg.NATSURL == "" {
		deps.Events = events.Nop{}
	} else {
		nc, nerr := events.ConnectNATS(appCfg.NATSURL, logger)
		if nerr != nil {
			return deps, nerr
		}
		deps.Events = nc
		deps.closers.add("nats", func(context.Context) error { nc.Close(); return nil })
		logger.Info("event publishing enabled", zap.String("nats_url", appCfg.NATSURL))
	}

	return deps, nil
}

func connectMongo(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return client, client.Database(appCfg.MongoDatabase), nil
}

// EnsureSchema attaches collection validators and reconciles indexes. It is a
// no-op for the in-memory store.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("collection validators", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("index setup", zap.Error(err))
		return err
	}
	return nil
}
