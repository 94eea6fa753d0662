package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/infrastructure/repository/entity"
	"shopify-merchant-link/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// webhookRetention bounds how long delivery logs are kept
const webhookRetention = 30 * 24 * time.Hour

// MongoRepository implements SessionRepository and WebhookLog using MongoDB
type MongoRepository struct {
	sessionsCollection *mongo.Collection
	webhooksCollection *mongo.Collection
	encryptionSvc      ports.EncryptionService
}

var (
	_ ports.SessionRepository = (*MongoRepository)(nil)
	_ ports.WebhookLog        = (*MongoRepository)(nil)
)

// NewMongoRepository creates a new MongoDB repository
func NewMongoRepository(db *mongo.Database, encryptionSvc ports.EncryptionService) *MongoRepository {
	return &MongoRepository{
		sessionsCollection: db.Collection("sessions"),
		webhooksCollection: db.Collection("webhook_events"),
		encryptionSvc:      encryptionSvc,
	}
}

// EnsureIndexes creates the shop lookup index and the webhook log TTL index
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.sessionsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "shop", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create sessions index: %w", err)
	}

	_, err = r.webhooksCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "receivedAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(webhookRetention.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook_events index: %w", err)
	}
	return nil
}

// StoreSession saves or updates an offline session, encrypting its token
func (r *MongoRepository) StoreSession(ctx context.Context, session *domain.PlatformSession) error {
	encryptedToken, err := r.encryptionSvc.Encrypt(session.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt session token: %w", err)
	}

	doc := entity.MongoSessionDocFromDomain(session, encryptedToken)
	now := time.Now()
	doc.UpdatedAt = now

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": session.ID}
	update := bson.M{
		"$set": bson.M{
			"shop":        doc.Shop,
			"state":       doc.State,
			"scope":       doc.Scope,
			"isOnline":    doc.IsOnline,
			"accessToken": doc.AccessToken,
			"updatedAt":   doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	if _, err := r.sessionsCollection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession retrieves a session by id, returning nil when absent
func (r *MongoRepository) LoadSession(ctx context.Context, id string) (*domain.PlatformSession, error) {
	var doc entity.MongoSessionDoc
	err := r.sessionsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	accessToken, err := r.encryptionSvc.Decrypt(doc.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session token: %w", err)
	}
	return doc.ToDomain(accessToken), nil
}

// DeleteSession removes a session. Deleting an absent session is not an error.
func (r *MongoRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.sessionsCollection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// LogWebhook logs a webhook event
func (r *MongoRepository) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookDocFromDomain(event)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = time.Now()
	}

	if _, err := r.webhooksCollection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}
