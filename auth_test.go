package polyclob

import (
	"context"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyfi/polymarket-clob-sdk-go/chain"
)

// Hardhat account #0; throwaway key, never funded.
const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testSigner(t *testing.T) *chain.LocalSigner {
	t.Helper()
	signer, err := chain.NewLocalSigner(testPrivateKey)
	require.NoError(t, err)
	return signer
}

func testCredentials(key, passphrase, secret string) ApiCredentials {
	return ApiCredentials{
		Key:        key,
		Secret:     base64.URLEncoding.EncodeToString([]byte(secret)),
		Passphrase: passphrase,
	}
}

func TestAuthenticateCreatesApiKey(t *testing.T) {
	var captured http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/api-key", r.URL.Path)
		captured = r.Header.Clone()
		w.Write([]byte(`{"apiKey":"key-1","secret":"c2VjcmV0LTE=","passphrase":"pass-1"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	signer := testSigner(t)

	creds, err := client.Authenticate(context.Background(), signer)
	require.NoError(t, err)
	assert.Equal(t, "key-1", creds.Key)
	assert.Equal(t, "pass-1", creds.Passphrase)

	assert.Equal(t, signer.Address().Hex(), captured.Get(headerAddress))
	assert.Equal(t, "0", captured.Get(headerNonce))

	// The L1 signature must commit to the advertised address and timestamp.
	sigHex := captured.Get(headerSignature)
	require.Len(t, sigHex, 2+130)
	sig := common.FromHex(sigHex)
	require.Len(t, sig, 65)
	sig[64] -= 27

	digest := chain.AuthDigest(client.auth.chainID, &chain.AuthMessage{
		Address:   signer.Address(),
		Timestamp: captured.Get(headerTimestamp),
		Nonce:     big.NewInt(0),
	})
	pubKey, err := crypto.SigToPub(digest.Bytes(), sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pubKey))
}

func TestAuthenticateFallsBackToDerive(t *testing.T) {
	var createHits, deriveHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api-key":
			createHits.Add(1)
			http.Error(w, `{"error":"api key already exists"}`, http.StatusBadRequest)
		case "/auth/derive-api-key":
			deriveHits.Add(1)
			require.Equal(t, http.MethodGet, r.Method)
			w.Write([]byte(`{"apiKey":"key-existing","secret":"c2VjcmV0LTE=","passphrase":"pass-1"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	creds, err := client.Authenticate(context.Background(), testSigner(t))
	require.NoError(t, err)
	assert.Equal(t, "key-existing", creds.Key)
	assert.Equal(t, int64(1), createHits.Load())
	assert.Equal(t, int64(1), deriveHits.Load())

	// Repeating the handshake re-derives the same credentials.
	again, err := client.Authenticate(context.Background(), testSigner(t))
	require.NoError(t, err)
	assert.Equal(t, creds, again)
}

func TestAuthenticateServerErrorDoesNotFallBack(t *testing.T) {
	var deriveHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/derive-api-key" {
			deriveHits.Add(1)
		}
		http.Error(w, `{"error":"maintenance"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Authenticate(context.Background(), testSigner(t))

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int64(0), deriveHits.Load(), "5xx must not trigger key derivation")
}

func TestL2HeadersRequireAuthentication(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")

	_, err := client.auth.l2Headers(context.Background(), http.MethodGet, "/auth/api-keys", nil)
	require.ErrorIs(t, err, ErrUnauthenticated)

	var authzErr *AuthorizationError
	require.ErrorAs(t, err, &authzErr)
}

func TestAuthenticatedOpsFailFastWithoutNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ApiKeys(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = client.CancelAllOrders(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	assert.Equal(t, int64(0), hits.Load(), "unauthorized calls must not reach the network")
}

func TestL2HeadersSignRequestBytes(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	signer := testSigner(t)
	creds := testCredentials("key-1", "pass-1", "trading-secret")
	client.auth.store.setAuthenticated(signer.Address(), creds)

	body := []byte(`{"order":{"salt":42}}`)
	headers, err := client.auth.l2Headers(context.Background(), http.MethodPost, "/order", body)
	require.NoError(t, err)

	assert.Equal(t, signer.Address().Hex(), headers[headerAddress])
	assert.Equal(t, "key-1", headers[headerAPIKey])
	assert.Equal(t, "pass-1", headers[headerPassphrase])
	require.NotEmpty(t, headers[headerTimestamp])

	expected, err := buildHMACSignature(creds.Secret, headers[headerTimestamp], http.MethodPost, "/order", body)
	require.NoError(t, err)
	assert.Equal(t, expected, headers[headerSignature])
}

func TestBuilderHeadersCarryBothSignatures(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	signer := testSigner(t)
	creds := testCredentials("key-1", "pass-1", "trading-secret")
	builderCreds := testCredentials("builder-key", "builder-pass", "builder-secret")

	client.auth.store.setAuthenticated(signer.Address(), creds)
	require.NoError(t, client.auth.store.promoteToBuilder(builderCreds))

	headers, err := client.auth.builderHeaders(context.Background(), http.MethodGet, "/builder-trades", nil)
	require.NoError(t, err)

	assert.Equal(t, "key-1", headers[headerAPIKey])
	assert.Equal(t, "builder-key", headers[headerBuilderAPIKey])
	assert.Equal(t, "builder-pass", headers[headerBuilderPassphrase])

	expected, err := buildHMACSignature(builderCreds.Secret, headers[headerBuilderTimestamp], http.MethodGet, "/builder-trades", nil)
	require.NoError(t, err)
	assert.Equal(t, expected, headers[headerBuilderSignature])
	assert.NotEqual(t, headers[headerSignature], headers[headerBuilderSignature],
		"trading and builder secrets must produce distinct signatures")
}

func TestBuilderHeadersReadClockOnce(t *testing.T) {
	var timeHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/time", r.URL.Path)
		timeHits.Add(1)
		w.Write([]byte(`1700000000`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, ClientConfig{ChainID: ChainIDAmoy, UseServerTime: true})
	require.NoError(t, err)
	client.auth.store.setAuthenticated(testSigner(t).Address(), testCredentials("key-1", "pass-1", "trading-secret"))
	require.NoError(t, client.auth.store.promoteToBuilder(testCredentials("builder-key", "builder-pass", "builder-secret")))

	headers, err := client.auth.builderHeaders(context.Background(), http.MethodGet, "/builder-trades", nil)
	require.NoError(t, err)

	assert.Equal(t, "1700000000", headers[headerTimestamp])
	assert.Equal(t, headers[headerTimestamp], headers[headerBuilderTimestamp],
		"both signatures are bound to one timestamp")
	assert.Equal(t, int64(1), timeHits.Load(), "one clock read covers both signatures")
}

func TestBuilderOpsRequireBuilderState(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.auth.store.setAuthenticated(testSigner(t).Address(), testCredentials("key-1", "pass-1", "trading-secret"))

	_, err := client.BuilderTrades(context.Background(), nil)
	require.ErrorIs(t, err, ErrNotBuilder)
	assert.Equal(t, int64(0), hits.Load())

	// Trading endpoints remain available in the authenticated state.
	_, err = client.auth.l2Headers(context.Background(), http.MethodGet, "/data/orders", nil)
	require.NoError(t, err)
}

func TestPromoteToBuilderRequiresAuthentication(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")

	err := client.PromoteToBuilder(testCredentials("builder-key", "builder-pass", "builder-secret"))
	require.ErrorIs(t, err, ErrUnauthenticated)

	var authzErr *AuthorizationError
	require.ErrorAs(t, err, &authzErr)
	assert.Equal(t, "promote_to_builder", authzErr.Operation)
}

func TestCredentialStoreProgressionIsMonotonic(t *testing.T) {
	store := &credentialStore{}
	signer := testSigner(t)

	store.setAuthenticated(signer.Address(), testCredentials("key-1", "pass-1", "s1"))
	require.NoError(t, store.promoteToBuilder(testCredentials("builder-key", "builder-pass", "s2")))

	// Re-running the handshake refreshes credentials without losing the
	// builder state.
	store.setAuthenticated(signer.Address(), testCredentials("key-2", "pass-2", "s3"))

	state, _, creds, builderCreds := store.snapshot()
	assert.Equal(t, stateBuilder, state)
	assert.Equal(t, "key-2", creds.Key)
	assert.Equal(t, "builder-key", builderCreds.Key)
}

func TestBuildHMACSignatureRejectsInvalidSecret(t *testing.T) {
	_, err := buildHMACSignature("not@base64!!", "1700000000", http.MethodGet, "/time", nil)
	assert.Error(t, err)
}
