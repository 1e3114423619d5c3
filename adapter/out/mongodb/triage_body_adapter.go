package mongodb

import (
	"context"
	"errors"
	"time"

	"assistant_server/pkg/apperr"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionMessageBodies = "message_bodies"

	// Bodies are a hydration cache, not the system of record; stale entries
	// age out via the TTL index.
	bodyTTL = 30 * 24 * time.Hour
)

// BodyAdapter implements out.MessageBodyStore using MongoDB. Push
// notifications carry only a snippet; the full body lands here so the worker
// can hydrate before classification.
type BodyAdapter struct {
	collection *mongo.Collection
}

func NewBodyAdapter(db *mongo.Database) *BodyAdapter {
	return &BodyAdapter{collection: db.Collection(collectionMessageBodies)}
}

// EnsureIndexes creates the lookup and TTL indexes.
func (a *BodyAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "external_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

type bodyDocument struct {
	UserID     string    `bson:"user_id"`
	ExternalID string    `bson:"external_id"`
	Body       string    `bson:"body"`
	SavedAt    time.Time `bson:"saved_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

func (a *BodyAdapter) Save(ctx context.Context, userID uuid.UUID, externalID, body string) error {
	now := time.Now()
	filter := bson.M{"user_id": userID.String(), "external_id": externalID}
	update := bson.M{"$set": bodyDocument{
		UserID:     userID.String(),
		ExternalID: externalID,
		Body:       body,
		SavedAt:    now,
		ExpiresAt:  now.Add(bodyTTL),
	}}

	_, err := a.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return apperr.DatabaseError("save message body", err)
	}
	return nil
}

func (a *BodyAdapter) Get(ctx context.Context, userID uuid.UUID, externalID string) (string, error) {
	filter := bson.M{"user_id": userID.String(), "external_id": externalID}

	var doc bodyDocument
	err := a.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", apperr.NotFound("message body")
	}
	if err != nil {
		return "", apperr.DatabaseError("fetch message body", err)
	}
	return doc.Body, nil
}
