// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/gamerie/internal/app/store/audit"
	"github.com/dalemusser/gamerie/internal/app/store/credentials"
	"github.com/dalemusser/gamerie/internal/app/store/emailverify"
	userstore "github.com/dalemusser/gamerie/internal/app/store/users"
	"github.com/dalemusser/gamerie/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(userstore.Collection, usersSchema())
	ensure(credentials.Collection, credentialsSchema())
	ensure(emailverify.Collection, emailTokensSchema())

	// Append-only; no validator.
	ensure(audit.Collection, nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

// nonBlank matches a string with at least one non-space character.
var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enumOf[T ~string](vals ...T) bson.A {
	out := make(bson.A, 0, len(vals))
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

func usersSchema() bson.M {
	game := bson.M{
		"bsonType": "object",
		"required": bson.A{"id", "name", "skillLevel", "hoursPlayed"},
		"properties": bson.M{
			"id":          nonBlank,
			"name":        nonBlank,
			"skillLevel":  bson.M{"enum": enumOf(models.SkillLevels...)},
			"hoursPlayed": bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0},
		},
	}
	team := bson.M{
		"bsonType": "object",
		"required": bson.A{"teamId", "role"},
		"properties": bson.M{
			"teamId": nonBlank,
			"role": bson.M{"enum": enumOf(
				models.MemberOwner, models.MemberCaptain, models.MemberPlayer,
				models.MemberSubstitute, models.MemberCoach,
			)},
		},
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "username", "role", "followers", "createdAt", "updatedAt"},
			"properties": bson.M{
				"email":    nonBlank,
				"username": nonBlank,
				"role": bson.M{"enum": enumOf(
					models.RoleUser, models.RoleAdmin, models.RoleScouter,
					models.RoleCoach, models.RoleTeamOwner, models.RoleInfluencer,
				)},
				"profileImage":    bson.M{"bsonType": bson.A{"string", "null"}},
				"backgroundImage": bson.M{"bsonType": bson.A{"string", "null"}},
				"age":             bson.M{"bsonType": bson.A{"int", "long", "null"}, "minimum": 0},
				"gamesPlayed":     bson.M{"bsonType": "array", "items": game},
				"teams":           bson.M{"bsonType": "array", "items": team},
				"achievements":    bson.M{"bsonType": "array"},
				"followers":       bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"following":       bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"createdAt":       bson.M{"bsonType": "date"},
				"updatedAt":       bson.M{"bsonType": "date"},
			},
		},
	}
}

func credentialsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"uid", "password_hash", "email_verified"},
			"properties": bson.M{
				"uid":            nonBlank,
				"password_hash":  nonBlank,
				"email_verified": bson.M{"bsonType": "bool"},
				"created_at":     bson.M{"bsonType": "date"},
				"updated_at":     bson.M{"bsonType": "date"},
			},
		},
	}
}

func emailTokensSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"uid", "email", "purpose", "expires_at"},
			"properties": bson.M{
				"uid":        nonBlank,
				"email":      nonBlank,
				"purpose":    bson.M{"enum": enumOf(emailverify.PurposeVerify, emailverify.PurposeReset)},
				"expires_at": bson.M{"bsonType": "date"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
