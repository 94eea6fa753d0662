package repository

import (
	"bytes"
	"context"
	"testing"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/infrastructure/encryption"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newVault(t *testing.T) *encryption.Service {
	t.Helper()
	vault, err := encryption.NewService("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return vault
}

func TestMongoRepositorySessions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("store encrypts token", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, newVault(t))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := repo.StoreSession(context.Background(), &domain.PlatformSession{
			ID:          "offline_acme.myshopify.com",
			Shop:        "acme.myshopify.com",
			AccessToken: "shpat_plain",
		})
		require.NoError(t, err)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		require.Equal(t, "update", started.CommandName)
		require.False(t, bytes.Contains(started.Command, []byte("shpat_plain")))
	})

	mt.Run("load decrypts token", func(mt *mtest.T) {
		vault := newVault(t)
		repo := NewMongoRepository(mt.DB, vault)
		encrypted, err := vault.Encrypt("shpat_plain")
		require.NoError(t, err)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.sessions", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "offline_acme.myshopify.com"},
			{Key: "shop", Value: "acme.myshopify.com"},
			{Key: "isOnline", Value: false},
			{Key: "accessToken", Value: encrypted},
		}))

		session, err := repo.LoadSession(context.Background(), "offline_acme.myshopify.com")
		require.NoError(t, err)
		require.NotNil(t, session)
		require.Equal(t, "shpat_plain", session.AccessToken)
		require.Equal(t, "acme.myshopify.com", session.Shop)
	})

	mt.Run("load missing returns nil", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, newVault(t))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.sessions", mtest.FirstBatch))

		session, err := repo.LoadSession(context.Background(), "offline_missing.myshopify.com")
		require.NoError(t, err)
		require.Nil(t, session)
	})

	mt.Run("load tampered token fails closed", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, newVault(t))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.sessions", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "offline_acme.myshopify.com"},
			{Key: "accessToken", Value: "00:00:00"},
		}))

		_, err := repo.LoadSession(context.Background(), "offline_acme.myshopify.com")
		require.ErrorIs(t, err, domain.ErrDecryption)
	})
}

func TestMongoRepositoryLogWebhook(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, newVault(t))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.LogWebhook(context.Background(), &domain.WebhookEvent{
			Topic:    "app/uninstalled",
			Shop:     "acme.myshopify.com",
			Payload:  []byte(`{}`),
			Verified: true,
		})
		require.NoError(t, err)
		require.Equal(t, "insert", mt.GetStartedEvent().CommandName)
	})
}
