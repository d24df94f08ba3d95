package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/sessionkit/core/session"
)

// defaultCollection is the collection name used when none is configured.
const defaultCollection = "sessions"

// Store persists session records in a MongoDB collection with the handle as
// document id. It implements session.Store.
type Store struct {
	coll *mongo.Collection
}

// New creates a Store using the "sessions" collection of db.
func New(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(defaultCollection)}
}

// NewWithCollection creates a Store backed by an explicit collection.
func NewWithCollection(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// EnsureIndexes creates the supporting indexes: a user index for bulk
// revocation and a TTL index that reaps expired records server-side.
// Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	return err
}

type publicDocument struct {
	UserID string         `bson:"user_id"`
	Roles  []string       `bson:"roles"`
	Extra  map[string]any `bson:"extra,omitempty"`
}

type document struct {
	Handle    string         `bson:"_id"`
	UserID    string         `bson:"user_id"`
	TokenHash string         `bson:"token_hash"`
	CSRFToken string         `bson:"csrf_token"`
	ExpiresAt time.Time      `bson:"expires_at"`
	Public    publicDocument `bson:"public_data"`
	Private   map[string]any `bson:"private_data,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

func toDocument(rec *session.Record) document {
	return document{
		Handle:    rec.Handle.String(),
		UserID:    rec.UserID.String(),
		TokenHash: rec.TokenHash,
		CSRFToken: rec.CSRFToken,
		ExpiresAt: rec.ExpiresAt,
		Public: publicDocument{
			UserID: rec.Public.UserID.String(),
			Roles:  rec.Public.Roles,
			Extra:  rec.Public.Extra,
		},
		Private:   rec.Private,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func fromDocument(doc document) (*session.Record, error) {
	handle, err := uuid.Parse(doc.Handle)
	if err != nil {
		return nil, fmt.Errorf("mongo: corrupt session handle %q: %w", doc.Handle, err)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("mongo: corrupt session user id %q: %w", doc.UserID, err)
	}
	publicUserID, err := uuid.Parse(doc.Public.UserID)
	if err != nil {
		return nil, fmt.Errorf("mongo: corrupt session user id %q: %w", doc.Public.UserID, err)
	}

	return &session.Record{
		Handle:    handle,
		UserID:    userID,
		TokenHash: doc.TokenHash,
		CSRFToken: doc.CSRFToken,
		ExpiresAt: doc.ExpiresAt,
		Public: session.PublicData{
			UserID: publicUserID,
			Roles:  doc.Public.Roles,
			Extra:  doc.Public.Extra,
		},
		Private:   doc.Private,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *Store) GetSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: handle.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return fromDocument(doc)
}

func (s *Store) GetSessions(ctx context.Context, userID uuid.UUID) ([]session.Record, error) {
	cursor, err := s.coll.Find(ctx,
		bson.D{{Key: "user_id", Value: userID.String()}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var records []session.Record
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rec, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, cursor.Err()
}

func (s *Store) CreateSession(ctx context.Context, record *session.Record) error {
	_, err := s.coll.InsertOne(ctx, toDocument(record))
	if mongo.IsDuplicateKeyError(err) {
		return session.ErrConflict
	}
	return err
}

func (s *Store) UpdateSession(ctx context.Context, handle uuid.UUID, update session.Update) (*session.Record, error) {
	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	if update.UserID != nil {
		set = append(set, bson.E{Key: "user_id", Value: update.UserID.String()})
	}
	if update.TokenHash != nil {
		set = append(set, bson.E{Key: "token_hash", Value: *update.TokenHash})
	}
	if update.CSRFToken != nil {
		set = append(set, bson.E{Key: "csrf_token", Value: *update.CSRFToken})
	}
	if update.ExpiresAt != nil {
		set = append(set, bson.E{Key: "expires_at", Value: *update.ExpiresAt})
	}
	if update.Public != nil {
		set = append(set, bson.E{Key: "public_data", Value: publicDocument{
			UserID: update.Public.UserID.String(),
			Roles:  update.Public.Roles,
			Extra:  update.Public.Extra,
		}})
	}
	if update.Private != nil {
		set = append(set, bson.E{Key: "private_data", Value: update.Private})
	}

	var doc document
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: handle.String()}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return fromDocument(doc)
}

func (s *Store) DeleteSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	var doc document
	err := s.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: handle.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return fromDocument(doc)
}
