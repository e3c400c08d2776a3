package polyclob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polyfi/polymarket-clob-sdk-go/chain"
)

// Client is the composition root of the SDK. It is cheap to clone: all
// clones share the transport, credential store and market-parameter cache,
// and any clone may be used from many goroutines concurrently.
type Client struct {
	api           *APIClient
	auth          *authEngine
	markets       *marketParamsCache
	chainID       ChainID
	contracts     ContractAddresses
	funder        string
	signatureType SignatureType
	logger        *zap.Logger
}

// NewClient creates a new CLOB client for the given host.
func NewClient(host string, config ClientConfig) (*Client, error) {
	cfg := config.withDefaults()

	contracts, ok := DefaultContractAddresses[cfg.ChainID]
	if !ok {
		return nil, &InvalidOrderError{
			Message: fmt.Sprintf("chain_id must be one of %v", SupportedChainIDs),
		}
	}

	api := NewAPIClient(host, cfg.HTTPTimeout, cfg.Logger)

	var clk clock = localClock{}
	if cfg.UseServerTime {
		clk = serverClock{api: api}
	}

	funder := ""
	if cfg.FunderAddress != "" {
		funder = common.HexToAddress(cfg.FunderAddress).Hex()
	}

	return &Client{
		api:           api,
		auth:          newAuthEngine(api, clk, cfg.ChainID, cfg.Logger),
		markets:       newMarketParamsCache(api, cfg.Logger),
		chainID:       cfg.ChainID,
		contracts:     contracts,
		funder:        funder,
		signatureType: cfg.SignatureType,
		logger:        cfg.Logger,
	}, nil
}

// Clone returns a handle sharing all stateful components with the
// receiver. Clones may be moved to other goroutines freely; the shared
// state lives as long as the longest-lived clone.
func (c *Client) Clone() *Client {
	clone := *c
	return &clone
}

func (c *Client) exchangeFor(negRisk bool) common.Address {
	if negRisk {
		return common.HexToAddress(c.contracts.NegRiskExchange)
	}
	return common.HexToAddress(c.contracts.CTFExchange)
}

// --- unauthenticated operations ---

// Ok checks the API is reachable.
func (c *Client) Ok(ctx context.Context) error {
	_, err := c.api.do(ctx, http.MethodGet, "/", nil, nil)
	return err
}

// ServerTime returns the exchange's clock as a unix timestamp.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	var ts serverTimeResponse
	if err := c.api.doJSON(ctx, http.MethodGet, "/time", nil, nil, &ts); err != nil {
		return 0, err
	}
	return int64(ts), nil
}

// TickSize returns the market's minimum price increment, fetching and
// caching the market parameters on first access.
func (c *Client) TickSize(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	params, err := c.markets.getOrFetch(ctx, tokenID)
	if err != nil {
		return decimal.Zero, err
	}
	return params.TickSize, nil
}

// NegRisk reports whether the token belongs to a negative-risk market.
func (c *Client) NegRisk(ctx context.Context, tokenID string) (bool, error) {
	params, err := c.markets.getOrFetch(ctx, tokenID)
	if err != nil {
		return false, err
	}
	return params.NegRisk, nil
}

// Midpoint returns the midpoint price of the token's book.
func (c *Client) Midpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	var resp midpointResponse
	path := fmt.Sprintf("/midpoint?token_id=%s", tokenID)
	if err := c.api.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Mid, nil
}

// Price returns the best price for the token on the given side.
func (c *Client) Price(ctx context.Context, tokenID string, side Side) (decimal.Decimal, error) {
	var resp priceResponse
	path := fmt.Sprintf("/price?token_id=%s&side=%s", tokenID, side)
	if err := c.api.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Price, nil
}

// OrderBook returns a snapshot of the book for the token.
func (c *Client) OrderBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	var book OrderBook
	path := fmt.Sprintf("/book?token_id=%s", tokenID)
	if err := c.api.doJSON(ctx, http.MethodGet, path, nil, nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// --- authentication ---

// Authenticate performs the L1 wallet handshake and transitions the
// client (and every clone) to the authenticated state. Calling it again
// with the same wallet re-derives equivalent credentials.
func (c *Client) Authenticate(ctx context.Context, signer chain.Signer) (ApiCredentials, error) {
	return c.auth.authenticate(ctx, signer, 0)
}

// AuthenticateWithNonce is Authenticate with an explicit key nonce,
// selecting among multiple API keys registered for one wallet.
func (c *Client) AuthenticateWithNonce(ctx context.Context, signer chain.Signer, nonce int64) (ApiCredentials, error) {
	return c.auth.authenticate(ctx, signer, nonce)
}

// PromoteToBuilder attaches independently-scoped builder credentials.
// Trading credentials are unaffected. Fails unless already authenticated.
func (c *Client) PromoteToBuilder(creds ApiCredentials) error {
	if err := c.auth.store.promoteToBuilder(creds); err != nil {
		return &AuthorizationError{Operation: "promote_to_builder", Cause: err}
	}
	c.logger.Info("promoted to builder", zap.String("builder_api_key", creds.Key))
	return nil
}

// doL2 sends an authenticated request with per-request signature headers.
func (c *Client) doL2(ctx context.Context, method, path string, reqBody, result interface{}) error {
	var body []byte
	if reqBody != nil {
		var err error
		body, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	headers, err := c.auth.l2Headers(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.api.doJSON(ctx, method, path, headers, body, result)
}

// doBuilder sends a builder-attributed request carrying both credential
// sets.
func (c *Client) doBuilder(ctx context.Context, method, path string, reqBody, result interface{}) error {
	var body []byte
	if reqBody != nil {
		var err error
		body, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	headers, err := c.auth.builderHeaders(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.api.doJSON(ctx, method, path, headers, body, result)
}

// --- authenticated operations ---

// ApiKeys lists the API keys registered for the authenticated wallet.
func (c *Client) ApiKeys(ctx context.Context) ([]string, error) {
	var resp apiKeysResponse
	if err := c.doL2(ctx, http.MethodGet, "/auth/api-keys", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ApiKeys, nil
}

// ClosedOnlyMode reports whether the account is restricted to closing
// positions.
func (c *Client) ClosedOnlyMode(ctx context.Context) (bool, error) {
	var resp closedOnlyResponse
	if err := c.doL2(ctx, http.MethodGet, "/auth/ban-status/closed-only", nil, &resp); err != nil {
		return false, err
	}
	return resp.ClosedOnly, nil
}

// CreateBuilderApiKey registers the authenticated wallet as a builder and
// returns fresh builder-scoped credentials. They are not attached to the
// client; pass them to PromoteToBuilder.
func (c *Client) CreateBuilderApiKey(ctx context.Context) (ApiCredentials, error) {
	var creds ApiCredentials
	if err := c.doL2(ctx, http.MethodPost, "/auth/builder-api-key", nil, &creds); err != nil {
		return ApiCredentials{}, err
	}
	return creds, nil
}

// PostOrder submits a signed order. The signed order is not mutated; the
// response carries the exchange's acceptance or rejection.
func (c *Client) PostOrder(ctx context.Context, signed *SignedOrder, orderType OrderType) (*PostOrderResponse, error) {
	orderJSON, err := signed.toJSON()
	if err != nil {
		return nil, err
	}

	_, _, creds, _ := c.auth.store.snapshot()
	req := PostOrderRequest{
		Order:     orderJSON,
		Owner:     creds.Key,
		OrderType: orderType,
	}

	var resp PostOrderResponse
	if err := c.doL2(ctx, http.MethodPost, "/order", req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("order posted",
		zap.String("order_id", resp.OrderID),
		zap.String("status", resp.Status),
		zap.Bool("success", resp.Success))
	return &resp, nil
}

// CancelOrder cancels one resting order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*CancelResponse, error) {
	if orderID == "" {
		return nil, &InvalidOrderError{Message: "order_id must be a non-empty string"}
	}
	req := map[string]string{"orderID": orderID}
	var resp CancelResponse
	if err := c.doL2(ctx, http.MethodDelete, "/order", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelOrders cancels a batch of resting orders.
func (c *Client) CancelOrders(ctx context.Context, orderIDs []string) (*CancelResponse, error) {
	if len(orderIDs) == 0 {
		return nil, &InvalidOrderError{Message: "orderIDs list cannot be empty"}
	}
	var resp CancelResponse
	if err := c.doL2(ctx, http.MethodDelete, "/orders", orderIDs, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelAllOrders cancels every resting order of the account.
func (c *Client) CancelAllOrders(ctx context.Context) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.doL2(ctx, http.MethodDelete, "/cancel-all", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Orders lists the account's open orders.
func (c *Client) Orders(ctx context.Context, req *OrdersRequest) ([]OpenOrder, error) {
	path := "/data/orders"
	if req != nil {
		path += encodeListQuery(req.Market, req.AssetID)
	}
	var orders []OpenOrder
	if err := c.doL2(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Trades lists the account's trade history.
func (c *Client) Trades(ctx context.Context, req *TradesRequest) ([]TradeRecord, error) {
	path := "/data/trades"
	if req != nil {
		path += encodeListQuery(req.Market, req.AssetID)
	}
	var trades []TradeRecord
	if err := c.doL2(ctx, http.MethodGet, path, nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// --- builder operations ---

// BuilderApiKeys lists the builder credentials registered for the wallet.
func (c *Client) BuilderApiKeys(ctx context.Context) ([]ApiCredentials, error) {
	var keys []ApiCredentials
	if err := c.doBuilder(ctx, http.MethodGet, "/auth/builder-api-keys", nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// BuilderTrades lists trades attributed to the builder credentials.
func (c *Client) BuilderTrades(ctx context.Context, req *TradesRequest) ([]TradeRecord, error) {
	path := "/builder-trades"
	if req != nil {
		path += encodeListQuery(req.Market, req.AssetID)
	}
	var trades []TradeRecord
	if err := c.doBuilder(ctx, http.MethodGet, path, nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

func encodeListQuery(market, assetID string) string {
	q := url.Values{}
	if market != "" {
		q.Set("market", market)
	}
	if assetID != "" {
		q.Set("asset_id", assetID)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
