package application

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/infrastructure/auth"
	"shopify-merchant-link/internal/infrastructure/cache"
	"shopify-merchant-link/internal/infrastructure/encryption"
	shopifyinfra "shopify-merchant-link/internal/infrastructure/shopify"
	"shopify-merchant-link/internal/ports"

	"github.com/alicebob/miniredis/v2"
	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret = "merchant-jwt-secret-0123456789abcdef"
	testVaultKey  = "0123456789abcdef0123456789abcdef"
	testAPIKey    = "api-key-123"
)

// fakeProvider stands in for the Shopify OAuth primitive
type fakeProvider struct {
	mu          sync.Mutex
	beginErr    error
	callbackErr error
	token       string
	beginCalls  int
}

func (p *fakeProvider) Begin(_ context.Context, w http.ResponseWriter, _ *http.Request, shop string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.beginCalls++
	if p.beginErr != nil {
		return "", p.beginErr
	}
	http.SetCookie(w, &http.Cookie{Name: "shopify_app_state", Value: "nonce"})
	return "https://" + shop + "/admin/oauth/authorize?client_id=" + testAPIKey, nil
}

func (p *fakeProvider) Callback(_ context.Context, _ http.ResponseWriter, r *http.Request) (*domain.PlatformSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.callbackErr != nil {
		return nil, p.callbackErr
	}
	shop := r.URL.Query().Get("shop")
	return &domain.PlatformSession{
		ID:          domain.OfflineSessionID(shop),
		Shop:        shop,
		State:       "nonce",
		Scope:       "read_products",
		AccessToken: p.token,
	}, nil
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.PlatformSession
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]*domain.PlatformSession{}}
}

func (m *memorySessions) StoreSession(_ context.Context, s *domain.PlatformSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *memorySessions) LoadSession(_ context.Context, id string) (*domain.PlatformSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

func (m *memorySessions) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type connectCall struct {
	MerchantID string
	Input      ports.ConnectStoreInput
}

type fakeIdentity struct {
	mu         sync.Mutex
	connects   []connectCall
	connectErr error
	merchants  map[string]*domain.Merchant
	logins     map[string]*ports.LoginResult
}

func (f *fakeIdentity) ConnectStore(_ context.Context, merchantID string, input ports.ConnectStoreInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connects = append(f.connects, connectCall{MerchantID: merchantID, Input: input})
	return nil
}

func (f *fakeIdentity) GetMerchant(_ context.Context, merchantID string) (*domain.Merchant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.merchants[merchantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeIdentity) Login(_ context.Context, email, password string) (*ports.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins[email+":"+password], nil
}

func (f *fakeIdentity) connectCalls() []connectCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]connectCall(nil), f.connects...)
}

type metafieldCall struct {
	Shop, Namespace, Key, Value string
}

type fakeShopify struct {
	mu           sync.Mutex
	metafields   []metafieldCall
	metafieldErr error
	shopErr      error
	products     []goshopify.Product
	productsErr  error
	sessionsSeen []*domain.PlatformSession
}

func (f *fakeShopify) GetShop(_ context.Context, session *domain.PlatformSession) (*goshopify.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionsSeen = append(f.sessionsSeen, session)
	if f.shopErr != nil {
		return nil, f.shopErr
	}
	return &goshopify.Shop{Domain: session.Shop}, nil
}

func (f *fakeShopify) GetProducts(_ context.Context, session *domain.PlatformSession, _ interface{}) ([]goshopify.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionsSeen = append(f.sessionsSeen, session)
	return f.products, f.productsErr
}

func (f *fakeShopify) SetShopMetafield(_ context.Context, session *domain.PlatformSession, namespace, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metafieldErr != nil {
		return f.metafieldErr
	}
	f.metafields = append(f.metafields, metafieldCall{Shop: session.Shop, Namespace: namespace, Key: key, Value: value})
	return nil
}

type recordingMetrics struct {
	mu         sync.Mutex
	handshakes []string
	webhooks   []string
	links      []string
}

func (m *recordingMetrics) ObserveHandshake(stage, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handshakes = append(m.handshakes, stage+":"+outcome)
}

func (m *recordingMetrics) ObserveWebhook(topic, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks = append(m.webhooks, topic+":"+outcome)
}

func (m *recordingMetrics) ObserveLink(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, outcome)
}

// harness wires an orchestrator against miniredis and in-memory fakes
type harness struct {
	mr           *miniredis.Miniredis
	correlations *cache.RedisCorrelationStore
	provider     *fakeProvider
	sessions     *memorySessions
	identity     *fakeIdentity
	shopify      *fakeShopify
	vault        *encryption.Service
	tokens       *auth.MerchantTokenVerifier
	metrics      *recordingMetrics
	linker       *AccountLinker
	orchestrator *OAuthOrchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	vault, err := encryption.NewService(testVaultKey)
	require.NoError(t, err)

	h := &harness{
		mr:           mr,
		correlations: cache.NewRedisCorrelationStore(rdb),
		provider:     &fakeProvider{token: "shpat_live_token"},
		sessions:     newMemorySessions(),
		identity:     &fakeIdentity{},
		shopify:      &fakeShopify{},
		vault:        vault,
		tokens:       auth.NewMerchantTokenVerifier(testJWTSecret, zerolog.Nop()),
		metrics:      &recordingMetrics{},
	}
	credentials := shopifyinfra.NewTokenManager(vault, zerolog.Nop())
	h.linker = NewAccountLinker(h.identity, h.shopify, credentials, h.metrics, zerolog.Nop())
	h.orchestrator = NewOAuthOrchestrator(h.provider, h.tokens, h.correlations, h.sessions, h.linker, h.metrics, testAPIKey, zerolog.Nop())
	return h
}

func (h *harness) merchantToken(t *testing.T, merchantID string) string {
	t.Helper()
	token, err := h.tokens.Issue(merchantID, merchantID+"@example.com", time.Hour)
	require.NoError(t, err)
	return token
}

var errBoom = errors.New("boom")
