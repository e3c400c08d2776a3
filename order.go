package polyclob

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polyfi/polymarket-clob-sdk-go/chain"
)

// LimitOrderIntent expresses a limit order: explicit price and size, with
// an optional expiration. A zero Expiration means good-till-cancelled.
type LimitOrderIntent struct {
	TokenID    string
	Side       Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	Expiration time.Time
	Nonce      int64
	FeeRateBps int64
	Taker      string
}

// MarketOrderIntent expresses a market order as a notional amount: the
// collateral to spend on a buy, or the shares to sell on a sell. Price is
// the worst acceptable execution price used for amount conversion; when
// zero it is resolved from the book midpoint.
type MarketOrderIntent struct {
	TokenID    string
	Side       Side
	Amount     decimal.Decimal
	Price      decimal.Decimal
	Nonce      int64
	FeeRateBps int64
	Taker      string
}

// Order is a canonical, market-normalized order together with the
// negative-risk flag that selects its settlement exchange.
type Order struct {
	chain.Order
	NegRisk bool
}

// SignedOrder is a canonical order with its typed-data signature.
type SignedOrder struct {
	Order     Order
	Signature string
}

// LimitOrder builds a canonical limit order from the intent. The price is
// snapped to the market's tick grid with round-half-to-even and amounts
// are integer-scaled; market parameters come from the shared cache and
// may suspend on a network fetch for an unseen token.
func (c *Client) LimitOrder(ctx context.Context, intent LimitOrderIntent) (*Order, error) {
	if intent.TokenID == "" {
		return nil, &InvalidOrderError{Message: "token_id is required"}
	}
	if intent.Price.Sign() <= 0 {
		return nil, &InvalidOrderError{Message: fmt.Sprintf("price must be positive, got %s", intent.Price)}
	}
	if intent.Size.Sign() <= 0 {
		return nil, &InvalidOrderError{Message: fmt.Sprintf("size must be positive, got %s", intent.Size)}
	}
	if !intent.Expiration.IsZero() && intent.Expiration.Before(time.Now()) {
		return nil, &InvalidOrderError{Message: "expiration is in the past"}
	}

	params, err := c.markets.getOrFetch(ctx, intent.TokenID)
	if err != nil {
		return nil, err
	}

	price, err := snapToTick(intent.Price, params.TickSize)
	if err != nil {
		return nil, &InvalidOrderError{Message: err.Error()}
	}
	if err := validatePriceRange(price, params.TickSize); err != nil {
		return nil, err
	}

	size := intent.Size.RoundBank(sizeDecimals)
	if size.Sign() <= 0 {
		return nil, &InvalidOrderError{Message: fmt.Sprintf("size %s rounds to zero", intent.Size)}
	}

	ampDec, err := amountDecimals(params.TickSize)
	if err != nil {
		return nil, &InvalidOrderError{Message: err.Error()}
	}

	notional := price.Mul(size).RoundBank(ampDec)
	var makerAmount, takerAmount string
	if intent.Side == SideBuy {
		makerAmount = toRawUnits(notional)
		takerAmount = toRawUnits(size)
	} else {
		makerAmount = toRawUnits(size)
		takerAmount = toRawUnits(notional)
	}

	expiration := "0"
	if !intent.Expiration.IsZero() {
		expiration = strconv.FormatInt(intent.Expiration.Unix(), 10)
	}

	return c.assembleOrder(intent.TokenID, intent.Side, makerAmount, takerAmount,
		expiration, intent.Nonce, intent.FeeRateBps, intent.Taker, params.NegRisk)
}

// MarketOrder builds a canonical market order from the intent. Amounts
// are derived from the notional and the supplied worst-case price.
func (c *Client) MarketOrder(ctx context.Context, intent MarketOrderIntent) (*Order, error) {
	if intent.TokenID == "" {
		return nil, &InvalidOrderError{Message: "token_id is required"}
	}
	if intent.Amount.Sign() <= 0 {
		return nil, &InvalidOrderError{Message: fmt.Sprintf("amount must be positive, got %s", intent.Amount)}
	}
	if intent.Price.Sign() < 0 {
		return nil, &InvalidOrderError{Message: fmt.Sprintf("price must not be negative, got %s", intent.Price)}
	}

	params, err := c.markets.getOrFetch(ctx, intent.TokenID)
	if err != nil {
		return nil, err
	}

	worstPrice := intent.Price
	if worstPrice.Sign() == 0 {
		worstPrice, err = c.Midpoint(ctx, intent.TokenID)
		if err != nil {
			return nil, err
		}
		if worstPrice.Sign() <= 0 {
			return nil, &InvalidOrderError{Message: fmt.Sprintf("no usable midpoint for token %s", intent.TokenID)}
		}
	}

	price, err := snapToTick(worstPrice, params.TickSize)
	if err != nil {
		return nil, &InvalidOrderError{Message: err.Error()}
	}
	if err := validatePriceRange(price, params.TickSize); err != nil {
		return nil, err
	}

	ampDec, err := amountDecimals(params.TickSize)
	if err != nil {
		return nil, &InvalidOrderError{Message: err.Error()}
	}

	var makerAmount, takerAmount string
	if intent.Side == SideBuy {
		// Spending intent.Amount of collateral for shares at worst price.
		shares := intent.Amount.Div(price).RoundBank(sizeDecimals)
		if shares.Sign() <= 0 {
			return nil, &InvalidOrderError{Message: fmt.Sprintf("amount %s buys zero shares", intent.Amount)}
		}
		makerAmount = toRawUnits(intent.Amount.RoundBank(ampDec))
		takerAmount = toRawUnits(shares)
	} else {
		// Selling intent.Amount shares for collateral at worst price.
		shares := intent.Amount.RoundBank(sizeDecimals)
		if shares.Sign() <= 0 {
			return nil, &InvalidOrderError{Message: fmt.Sprintf("size %s rounds to zero", intent.Amount)}
		}
		makerAmount = toRawUnits(shares)
		takerAmount = toRawUnits(shares.Mul(price).RoundBank(ampDec))
	}

	return c.assembleOrder(intent.TokenID, intent.Side, makerAmount, takerAmount,
		"0", intent.Nonce, intent.FeeRateBps, intent.Taker, params.NegRisk)
}

func (c *Client) assembleOrder(tokenID string, side Side, makerAmount, takerAmount,
	expiration string, nonce, feeRateBps int64, taker string, negRisk bool) (*Order, error) {
	salt, err := chain.RandomSalt()
	if err != nil {
		return nil, err
	}
	if taker == "" {
		taker = ZeroAddress
	}

	return &Order{
		Order: chain.Order{
			Salt:          salt,
			Maker:         c.funder,
			Taker:         taker,
			TokenID:       tokenID,
			MakerAmount:   makerAmount,
			TakerAmount:   takerAmount,
			Expiration:    expiration,
			Nonce:         strconv.FormatInt(nonce, 10),
			FeeRateBps:    strconv.FormatInt(feeRateBps, 10),
			Side:          sideToChain(side),
			SignatureType: chain.SignatureType(c.signatureType),
		},
		NegRisk: negRisk,
	}, nil
}

// Sign produces the typed-data signature over a canonical order using the
// wallet capability. It reads no shared state besides the client's
// exchange configuration and never mutates the caches.
func (c *Client) Sign(ctx context.Context, signer chain.Signer, order *Order) (*SignedOrder, error) {
	o := order.Order
	if o.Maker == "" {
		o.Maker = signer.Address().Hex()
	}
	o.Signer = signer.Address().Hex()

	builder := chain.NewOrderBuilder(c.exchangeFor(order.NegRisk), int64(c.chainID))
	signed, err := builder.BuildSignedOrder(ctx, signer, &o)
	if err != nil {
		return nil, &SigningError{Message: "order signing failed", Cause: err}
	}

	return &SignedOrder{
		Order:     Order{Order: *signed.Order, NegRisk: order.NegRisk},
		Signature: signed.Signature,
	}, nil
}

func (s *SignedOrder) toJSON() (OrderJSON, error) {
	salt, err := strconv.ParseInt(s.Order.Salt, 10, 64)
	if err != nil {
		return OrderJSON{}, &InvalidOrderError{Message: fmt.Sprintf("invalid salt: %s", s.Order.Salt)}
	}

	side := "BUY"
	if s.Order.Side == chain.OrderSideSell {
		side = "SELL"
	}

	return OrderJSON{
		Salt:          salt,
		Maker:         s.Order.Maker,
		Signer:        s.Order.Signer,
		Taker:         s.Order.Taker,
		TokenID:       s.Order.TokenID,
		MakerAmount:   s.Order.MakerAmount,
		TakerAmount:   s.Order.TakerAmount,
		Side:          side,
		Expiration:    s.Order.Expiration,
		Nonce:         s.Order.Nonce,
		FeeRateBps:    s.Order.FeeRateBps,
		SignatureType: int(s.Order.SignatureType),
		Signature:     s.Signature,
	}, nil
}

func sideToChain(side Side) chain.OrderSide {
	if side == SideSell {
		return chain.OrderSideSell
	}
	return chain.OrderSideBuy
}
