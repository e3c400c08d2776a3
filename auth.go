package polyclob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/polyfi/polymarket-clob-sdk-go/chain"
)

// Authentication header names
const (
	headerAddress    = "POLY_ADDRESS"
	headerSignature  = "POLY_SIGNATURE"
	headerTimestamp  = "POLY_TIMESTAMP"
	headerNonce      = "POLY_NONCE"
	headerAPIKey     = "POLY_API_KEY"
	headerPassphrase = "POLY_PASSPHRASE"

	headerBuilderAPIKey     = "POLY_BUILDER_API_KEY"
	headerBuilderTimestamp  = "POLY_BUILDER_TIMESTAMP"
	headerBuilderPassphrase = "POLY_BUILDER_PASSPHRASE"
	headerBuilderSignature  = "POLY_BUILDER_SIGNATURE"
)

// clock is the timestamp source for signed requests. Pluggable so clients
// can follow the exchange's clock instead of the local one.
type clock interface {
	now(ctx context.Context) (int64, error)
}

type localClock struct{}

func (localClock) now(context.Context) (int64, error) {
	return time.Now().Unix(), nil
}

// serverClock asks the exchange for its current time before every signed
// request, trading a round-trip for immunity to local clock skew.
type serverClock struct {
	api *APIClient
}

func (c serverClock) now(ctx context.Context) (int64, error) {
	var ts serverTimeResponse
	if err := c.api.doJSON(ctx, http.MethodGet, "/time", nil, nil, &ts); err != nil {
		return 0, err
	}
	return int64(ts), nil
}

// authState tracks the monotonic authentication progression.
type authState int

const (
	stateUnauthenticated authState = iota
	stateAuthenticated
	stateBuilder
)

// credentialStore holds derived credentials behind a RWMutex. Transitions
// take the write lock; header construction takes the read lock so many
// tasks can sign requests in parallel.
type credentialStore struct {
	mu           sync.RWMutex
	state        authState
	address      common.Address
	creds        ApiCredentials
	builderCreds ApiCredentials
}

func (s *credentialStore) setAuthenticated(address common.Address, creds ApiCredentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = address
	s.creds = creds
	if s.state == stateUnauthenticated {
		s.state = stateAuthenticated
	}
}

func (s *credentialStore) promoteToBuilder(creds ApiCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateUnauthenticated {
		return ErrUnauthenticated
	}
	s.builderCreds = creds
	s.state = stateBuilder
	return nil
}

func (s *credentialStore) snapshot() (authState, common.Address, ApiCredentials, ApiCredentials) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.address, s.creds, s.builderCreds
}

// authEngine implements both authentication protocols: the one-time L1
// wallet-signature handshake and the per-request L2 HMAC signature.
type authEngine struct {
	api     *APIClient
	store   *credentialStore
	clock   clock
	chainID *big.Int
	logger  *zap.Logger
}

func newAuthEngine(api *APIClient, clk clock, chainID ChainID, logger *zap.Logger) *authEngine {
	return &authEngine{
		api:     api,
		store:   &credentialStore{},
		clock:   clk,
		chainID: big.NewInt(int64(chainID)),
		logger:  logger,
	}
}

// authenticate performs the L1 handshake: sign a time-bound typed message
// with the wallet, then create or derive API credentials. Idempotent: a
// repeat call with the same wallet re-derives the same credentials.
func (a *authEngine) authenticate(ctx context.Context, signer chain.Signer, nonce int64) (ApiCredentials, error) {
	timestamp, err := a.clock.now(ctx)
	if err != nil {
		return ApiCredentials{}, &AuthenticationError{Message: "failed to read clock", Cause: err}
	}

	msg := &chain.AuthMessage{
		Address:   signer.Address(),
		Timestamp: strconv.FormatInt(timestamp, 10),
		Nonce:     big.NewInt(nonce),
	}
	digest := chain.AuthDigest(a.chainID, msg)

	signature, err := signer.SignHash(ctx, digest)
	if err != nil {
		return ApiCredentials{}, &SigningError{Message: "wallet refused auth message", Cause: err}
	}

	headers := map[string]string{
		headerAddress:   signer.Address().Hex(),
		headerSignature: fmt.Sprintf("0x%x", signature),
		headerTimestamp: msg.Timestamp,
		headerNonce:     strconv.FormatInt(nonce, 10),
	}

	var creds ApiCredentials
	err = a.api.doJSON(ctx, http.MethodPost, "/auth/api-key", headers, nil, &creds)
	if err != nil {
		// The key may already exist for this wallet; derive it instead.
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.Status >= http.StatusInternalServerError {
			return ApiCredentials{}, &AuthenticationError{Message: "credential exchange failed", Cause: err}
		}
		if err := a.api.doJSON(ctx, http.MethodGet, "/auth/derive-api-key", headers, nil, &creds); err != nil {
			return ApiCredentials{}, &AuthenticationError{Message: "credential derivation failed", Cause: err}
		}
	}

	a.store.setAuthenticated(signer.Address(), creds)
	a.logger.Info("authenticated",
		zap.String("address", signer.Address().Hex()),
		zap.String("api_key", creds.Key))
	return creds, nil
}

// l2Headers computes the per-request signature headers for authenticated
// endpoints. body must be the exact bytes that will be sent.
func (a *authEngine) l2Headers(ctx context.Context, method, path string, body []byte) (map[string]string, error) {
	state, address, creds, _ := a.store.snapshot()
	if state < stateAuthenticated {
		return nil, &AuthorizationError{Operation: method + " " + path, Cause: ErrUnauthenticated}
	}

	timestamp, err := a.clock.now(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read clock: %w", err)
	}
	ts := strconv.FormatInt(timestamp, 10)

	signature, err := buildHMACSignature(creds.Secret, ts, method, path, body)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		headerAddress:    address.Hex(),
		headerSignature:  signature,
		headerTimestamp:  ts,
		headerAPIKey:     creds.Key,
		headerPassphrase: creds.Passphrase,
	}, nil
}

// builderHeaders extends the L2 headers with a second signature computed
// from the independently-scoped builder credentials.
func (a *authEngine) builderHeaders(ctx context.Context, method, path string, body []byte) (map[string]string, error) {
	state, _, _, builderCreds := a.store.snapshot()
	if state < stateBuilder {
		return nil, &AuthorizationError{Operation: method + " " + path, Cause: ErrNotBuilder}
	}

	headers, err := a.l2Headers(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	// Both signatures share one timestamp; only the secret differs.
	ts := headers[headerTimestamp]
	signature, err := buildHMACSignature(builderCreds.Secret, ts, method, path, body)
	if err != nil {
		return nil, err
	}

	headers[headerBuilderAPIKey] = builderCreds.Key
	headers[headerBuilderTimestamp] = ts
	headers[headerBuilderPassphrase] = builderCreds.Passphrase
	headers[headerBuilderSignature] = signature
	return headers, nil
}

// buildHMACSignature signs the canonical request string
// timestamp + method + path + body with the URL-safe base64 secret.
func buildHMACSignature(secret, timestamp, method, path string, body []byte) (string, error) {
	key, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}
