package domain

import "time"

// WebhookEvent is a verified inbound webhook. Payload is the raw request body.
type WebhookEvent struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	Topic      string    `json:"topic" bson:"topic"`
	Shop       string    `json:"shop" bson:"shop"`
	WebhookID  string    `json:"webhook_id,omitempty" bson:"webhook_id,omitempty"`
	Payload    []byte    `json:"-" bson:"payload"`
	Verified   bool      `json:"verified" bson:"verified"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}
