package polyclob

import (
	"github.com/shopspring/decimal"
)

// Side represents the side of an order
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// OrderType represents the time-in-force of a submitted order
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // good till cancelled
	OrderTypeGTD OrderType = "GTD" // good till date
	OrderTypeFOK OrderType = "FOK" // fill or kill (market orders)
	OrderTypeFAK OrderType = "FAK" // fill and kill
)

// SignatureType represents the signature scheme used for orders
type SignatureType int

const (
	SignatureTypeEOA SignatureType = iota
	SignatureTypePolyProxy
	SignatureTypePolyGnosisSafe
)

// ApiCredentials are the L2 credentials derived from a wallet signature.
// Immutable once produced. Trading and builder credentials are separate
// instances and never mix in one signature computation.
type ApiCredentials struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// MarketParams are the per-token parameters consulted during order
// normalization. Treated as immutable once fetched.
type MarketParams struct {
	TickSize decimal.Decimal
	NegRisk  bool
}

type tickSizeResponse struct {
	MinimumTickSize decimal.Decimal `json:"minimum_tick_size"`
}

type negRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

type serverTimeResponse int64

// OrderJSON is the wire shape of a signed order accepted by POST /order.
type OrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// PostOrderRequest wraps a signed order with submission metadata.
// Owner is the API key of the submitting account, not the maker address.
type PostOrderRequest struct {
	Order     OrderJSON `json:"order"`
	Owner     string    `json:"owner"`
	OrderType OrderType `json:"orderType"`
}

// PostOrderResponse is the acceptance/rejection result for a submission.
type PostOrderResponse struct {
	Success      bool     `json:"success"`
	ErrorMsg     string   `json:"errorMsg"`
	OrderID      string   `json:"orderId"`
	OrderHashes  []string `json:"orderHashes"`
	Status       string   `json:"status"`
	TakingAmount string   `json:"takingAmount"`
	MakingAmount string   `json:"makingAmount"`
}

// CancelResponse reports which order ids were cancelled.
type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// OpenOrder is a resting order as reported by the exchange.
type OpenOrder struct {
	OrderID      string          `json:"id"`
	Status       string          `json:"status"`
	Market       string          `json:"market"`
	AssetID      string          `json:"asset_id"`
	Side         string          `json:"side"`
	Price        decimal.Decimal `json:"price"`
	OriginalSize decimal.Decimal `json:"original_size"`
	SizeMatched  decimal.Decimal `json:"size_matched"`
	Expiration   string          `json:"expiration"`
	OrderType    string          `json:"order_type"`
	CreatedAt    int64           `json:"created_at"`
}

// TradeRecord is an executed trade as reported by the exchange.
type TradeRecord struct {
	TradeID      string          `json:"id"`
	TakerOrderID string          `json:"taker_order_id"`
	Market       string          `json:"market"`
	AssetID      string          `json:"asset_id"`
	Side         string          `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Size         decimal.Decimal `json:"size"`
	Status       string          `json:"status"`
	MatchTime    string          `json:"match_time"`
}

// OrdersRequest filters the open-order listing. Zero values are omitted.
type OrdersRequest struct {
	Market  string
	AssetID string
}

// TradesRequest filters the trade listing. Zero values are omitted.
type TradesRequest struct {
	Market  string
	AssetID string
}

// BookLevel is one price level of an order book snapshot.
type BookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBook is a snapshot of the book for one token.
type OrderBook struct {
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Timestamp string      `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Hash      string      `json:"hash"`
}

type midpointResponse struct {
	Mid decimal.Decimal `json:"mid"`
}

type priceResponse struct {
	Price decimal.Decimal `json:"price"`
}

type apiKeysResponse struct {
	ApiKeys []string `json:"apiKeys"`
}

type closedOnlyResponse struct {
	ClosedOnly bool `json:"closed_only"`
}
