package chain

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// maxSalt bounds generated salts to 63 bits so they survive JSON
// round-trips through numeric fields.
var maxSalt = new(big.Int).Lsh(big.NewInt(1), 63)

// OrderBuilder signs canonical orders against one exchange deployment
type OrderBuilder struct {
	domain *ExchangeDomain
}

// NewOrderBuilder creates a builder for the given exchange contract
func NewOrderBuilder(exchangeAddr common.Address, chainID int64) *OrderBuilder {
	return &OrderBuilder{
		domain: NewExchangeDomain(big.NewInt(chainID), exchangeAddr),
	}
}

// BuildSignedOrder validates the order, fills defaults and produces the
// EIP712 signature via the signer capability. The order value itself is
// not mutated beyond defaulting; signing reads no other state.
func (ob *OrderBuilder) BuildSignedOrder(ctx context.Context, signer Signer, order *Order) (*SignedOrder, error) {
	if err := ob.validate(order); err != nil {
		return nil, err
	}

	if order.Signer == "" {
		order.Signer = order.Maker
	}
	if order.Expiration == "" {
		order.Expiration = "0"
	}
	if order.Nonce == "" {
		order.Nonce = "0"
	}
	if order.FeeRateBps == "" {
		order.FeeRateBps = "0"
	}
	order.Maker = normalizeAddress(order.Maker)
	order.Signer = normalizeAddress(order.Signer)
	order.Taker = normalizeAddress(order.Taker)

	hash, err := OrderDigest(ob.domain, order)
	if err != nil {
		return nil, err
	}

	signature, err := signer.SignHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	return &SignedOrder{
		Order:     order,
		Signature: fmt.Sprintf("0x%x", signature),
	}, nil
}

func (ob *OrderBuilder) validate(order *Order) error {
	if order.Salt == "" {
		return fmt.Errorf("salt is required")
	}
	if order.Maker == "" {
		return fmt.Errorf("maker is required")
	}
	if order.TokenID == "" {
		return fmt.Errorf("tokenId is required")
	}
	if order.MakerAmount == "" {
		return fmt.Errorf("makerAmount is required")
	}
	if order.TakerAmount == "" {
		return fmt.Errorf("takerAmount is required")
	}
	if order.Side != OrderSideBuy && order.Side != OrderSideSell {
		return fmt.Errorf("invalid side")
	}
	return nil
}

// RandomSalt draws a fresh salt for replay uniqueness. Random rather than
// monotonic so independent client clones never need to coordinate.
func RandomSalt() (string, error) {
	n, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return n.String(), nil
}

func normalizeAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}
