package application

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"shopify-merchant-link/internal/domain"

	"github.com/stretchr/testify/require"
)

const testShop = "acme.example"

func beginInstall(t *testing.T, h *harness, shop, merchantToken string) (HandshakeResult, *httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/install?shop="+url.QueryEscape(shop), nil)
	result, err := h.orchestrator.Begin(context.Background(), NewResponseState(rec), req, shop, merchantToken)
	return result, rec, err
}

func completeInstall(t *testing.T, h *harness, query string) (HandshakeResult, *httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+query, nil)
	result, err := h.orchestrator.Callback(context.Background(), NewResponseState(rec), req)
	return result, rec, err
}

func callbackQuery(shop string) string {
	return fmt.Sprintf("code=abc&shop=%s&state=nonce&host=YWRtaW4uc2hvcGlmeS5jb20vc3RvcmUvYWNtZQ&hmac=ignored", shop)
}

func TestInstallWithMerchantLinksExactlyOnce(t *testing.T) {
	h := newHarness(t)
	sessionKey := domain.OfflineSessionID(testShop)

	result, rec, err := beginInstall(t, h, testShop, h.merchantToken(t, "m1"))
	require.NoError(t, err)
	require.Equal(t, StateCorrelationStored, result.State)
	require.Equal(t, "m1", result.MerchantID)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "https://acme.example/admin/oauth/authorize")
	require.Contains(t, rec.Header().Get("Set-Cookie"), "shopify_app_state=")

	merchantID, found, err := h.correlations.Get(context.Background(), sessionKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "m1", merchantID)

	result, rec, err = completeInstall(t, h, callbackQuery(testShop))
	require.NoError(t, err)
	require.Equal(t, StateLinked, result.State)
	require.True(t, result.Linked)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://acme.example/admin/apps/api-key-123?host=YWRtaW4uc2hvcGlmeS5jb20vc3RvcmUvYWNtZQ", rec.Header().Get("Location"))

	calls := h.identity.connectCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "m1", calls[0].MerchantID)
	require.Equal(t, domain.StoreTypeShopify, calls[0].Input.Type)
	require.Equal(t, testShop, calls[0].Input.ShopDomain)
	require.NotEqual(t, "shpat_live_token", calls[0].Input.AccessToken)
	plaintext, err := h.vault.Decrypt(calls[0].Input.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "shpat_live_token", plaintext)

	require.Equal(t, []metafieldCall{{Shop: testShop, Namespace: "crypto_payments_app", Key: "merchant_id", Value: "m1"}}, h.shopify.metafields)

	_, found, err = h.correlations.Get(context.Background(), sessionKey)
	require.NoError(t, err)
	require.False(t, found)

	stored, err := h.sessions.LoadSession(context.Background(), sessionKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.False(t, stored.IsOnline)

	// a replayed callback finds no correlation and links nothing new
	result, _, err = completeInstall(t, h, callbackQuery(testShop))
	require.NoError(t, err)
	require.False(t, result.Linked)
	require.Len(t, h.identity.connectCalls(), 1)
}

func TestInstallWithoutMerchantDoesNotLink(t *testing.T) {
	h := newHarness(t)

	result, rec, err := beginInstall(t, h, testShop, "")
	require.NoError(t, err)
	require.Equal(t, StateUnauthenticated, result.State)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Empty(t, h.mr.Keys())

	result, _, err = completeInstall(t, h, callbackQuery(testShop))
	require.NoError(t, err)
	require.Equal(t, StateLinked, result.State)
	require.False(t, result.Linked)
	require.Empty(t, h.identity.connectCalls())
	require.Empty(t, h.shopify.metafields)
}

func TestInstallWithInvalidMerchantTokenProceedsAnonymously(t *testing.T) {
	h := newHarness(t)

	result, rec, err := beginInstall(t, h, testShop, "not-a-jwt")
	require.NoError(t, err)
	require.Equal(t, StateUnauthenticated, result.State)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Empty(t, h.mr.Keys())
}

func TestExpiredCorrelationDoesNotLink(t *testing.T) {
	h := newHarness(t)

	_, _, err := beginInstall(t, h, testShop, h.merchantToken(t, "m1"))
	require.NoError(t, err)

	h.mr.FastForward(domain.CorrelationTTL + time.Second)

	result, _, err := completeInstall(t, h, callbackQuery(testShop))
	require.NoError(t, err)
	require.False(t, result.Linked)
	require.Empty(t, h.identity.connectCalls())
}

func TestCallbackMissingAccessToken(t *testing.T) {
	h := newHarness(t)
	h.provider.token = ""

	result, rec, err := completeInstall(t, h, callbackQuery(testShop))
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, StateFailed, result.State)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, h.sessions.sessions)
}

func TestCallbackMissingHost(t *testing.T) {
	h := newHarness(t)

	result, _, err := completeInstall(t, h, "code=abc&shop=acme.example&state=nonce")
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, StateFailed, result.State)
}

func TestCallbackProviderFailure(t *testing.T) {
	h := newHarness(t)
	_, _, err := beginInstall(t, h, testShop, h.merchantToken(t, "m1"))
	require.NoError(t, err)

	h.provider.callbackErr = fmt.Errorf("%w: hmac mismatch", domain.ErrSignature)
	result, _, err := completeInstall(t, h, callbackQuery(testShop))
	require.ErrorIs(t, err, domain.ErrSignature)
	require.Equal(t, StateFailed, result.State)
	require.Empty(t, h.identity.connectCalls())

	// the record is left to expire on its own
	_, found, err := h.correlations.Get(context.Background(), domain.OfflineSessionID(testShop))
	require.NoError(t, err)
	require.True(t, found)

	h.provider.callbackErr = errBoom
	_, _, err = completeInstall(t, h, callbackQuery(testShop))
	require.ErrorIs(t, err, domain.ErrUpstream)
}

func TestBeginProviderFailureHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	h.provider.beginErr = errBoom

	result, rec, err := beginInstall(t, h, testShop, h.merchantToken(t, "m1"))
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.Equal(t, StateFailed, result.State)
	require.Empty(t, h.mr.Keys())
	require.Empty(t, rec.Header().Get("Location"))
}

func TestBeginCorrelationFailureDropsStateCookie(t *testing.T) {
	h := newHarness(t)
	token := h.merchantToken(t, "m1")
	h.mr.SetError("ERR store unavailable")

	result, rec, err := beginInstall(t, h, testShop, token)
	require.Error(t, err)
	require.Equal(t, StateFailed, result.State)
	require.Equal(t, 1, h.provider.beginCalls)
	require.Empty(t, rec.Header().Get("Set-Cookie"))
	require.Empty(t, rec.Header().Get("Location"))
	require.Contains(t, h.metrics.handshakes, "begin:failed")
}

func TestBeginRejectsInvalidShop(t *testing.T) {
	h := newHarness(t)

	_, _, err := beginInstall(t, h, "not a shop", "")
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Zero(t, h.provider.beginCalls)
}

func TestLinkFailureFailsCallback(t *testing.T) {
	h := newHarness(t)
	h.identity.connectErr = fmt.Errorf("%w: status 502", domain.ErrUpstream)

	_, _, err := beginInstall(t, h, testShop, h.merchantToken(t, "m1"))
	require.NoError(t, err)

	result, rec, err := completeInstall(t, h, callbackQuery(testShop))
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.Equal(t, StateFailed, result.State)
	require.Equal(t, "m1", result.MerchantID)
	require.Empty(t, rec.Header().Get("Location"))
	require.Contains(t, h.metrics.handshakes, "callback:failed")

	// the record was consumed before linking, so a replayed callback cannot link
	require.Empty(t, h.mr.Keys())
}

func TestMetafieldFailureStillLinks(t *testing.T) {
	h := newHarness(t)
	h.shopify.metafieldErr = errBoom

	_, _, err := beginInstall(t, h, testShop, h.merchantToken(t, "m1"))
	require.NoError(t, err)

	result, _, err := completeInstall(t, h, callbackQuery(testShop))
	require.NoError(t, err)
	require.True(t, result.Linked)
	require.Len(t, h.identity.connectCalls(), 1)
}

func TestConcurrentCallbacksLinkOnce(t *testing.T) {
	h := newHarness(t)
	_, _, err := beginInstall(t, h, testShop, h.merchantToken(t, "m1"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+callbackQuery(testShop), nil)
			_, err := h.orchestrator.Callback(context.Background(), NewResponseState(rec), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, h.identity.connectCalls(), 1)
}

func TestConcurrentInstallsForDifferentShops(t *testing.T) {
	h := newHarness(t)
	shops := map[string]string{"one.example": "m1", "two.example": "m2", "three.example": "m3"}

	for shop, merchant := range shops {
		_, _, err := beginInstall(t, h, shop, h.merchantToken(t, merchant))
		require.NoError(t, err)
	}
	for shop := range shops {
		result, _, err := completeInstall(t, h, callbackQuery(shop))
		require.NoError(t, err)
		require.True(t, result.Linked)
	}

	linked := map[string]string{}
	for _, call := range h.identity.connectCalls() {
		linked[call.Input.ShopDomain] = call.MerchantID
	}
	require.Equal(t, shops, linked)
}
