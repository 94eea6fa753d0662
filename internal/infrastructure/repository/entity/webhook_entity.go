package entity

import (
	"time"

	"shopify-merchant-link/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookDoc represents a logged webhook delivery in MongoDB
type MongoWebhookDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	WebhookID  string             `bson:"webhookId,omitempty"`
	Payload    []byte             `bson:"payload"`
	Verified   bool               `bson:"verified"`
	ReceivedAt time.Time          `bson:"receivedAt"`
}

// MongoWebhookDocFromDomain converts a domain event to a MongoDB document
func MongoWebhookDocFromDomain(event *domain.WebhookEvent) *MongoWebhookDoc {
	doc := &MongoWebhookDoc{
		Topic:      event.Topic,
		Shop:       event.Shop,
		WebhookID:  event.WebhookID,
		Payload:    event.Payload,
		Verified:   event.Verified,
		ReceivedAt: event.ReceivedAt,
	}
	if event.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(event.ID); err == nil {
			doc.ID = objID
		}
	}
	return doc
}
