package entity

import (
	"time"

	"shopify-merchant-link/internal/domain"
)

// MongoSessionDoc represents an offline session in MongoDB.
// AccessToken holds an EncryptedCredential, never the plaintext token.
type MongoSessionDoc struct {
	ID          string    `bson:"_id"`
	Shop        string    `bson:"shop"`
	State       string    `bson:"state"`
	Scope       string    `bson:"scope"`
	IsOnline    bool      `bson:"isOnline"`
	AccessToken string    `bson:"accessToken"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain session carrying the given plaintext token
func (d *MongoSessionDoc) ToDomain(accessToken string) *domain.PlatformSession {
	return &domain.PlatformSession{
		ID:          d.ID,
		Shop:        d.Shop,
		State:       d.State,
		Scope:       d.Scope,
		IsOnline:    d.IsOnline,
		AccessToken: accessToken,
	}
}

// MongoSessionDocFromDomain converts a domain session to a MongoDB document
func MongoSessionDocFromDomain(session *domain.PlatformSession, encryptedToken domain.EncryptedCredential) *MongoSessionDoc {
	return &MongoSessionDoc{
		ID:          session.ID,
		Shop:        session.Shop,
		State:       session.State,
		Scope:       session.Scope,
		IsOnline:    session.IsOnline,
		AccessToken: encryptedToken,
	}
}
