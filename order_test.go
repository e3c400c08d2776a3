package polyclob

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyfi/polymarket-clob-sdk-go/chain"
)

func TestLimitOrderNormalizesPriceAndAmounts(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)

	order, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.5007"), // snaps to 0.50
		Size:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.Equal(t, "50000000", order.MakerAmount, "collateral offered: 0.50 * 100 in raw units")
	assert.Equal(t, "100000000", order.TakerAmount, "shares wanted in raw units")
	assert.Equal(t, chain.OrderSideBuy, order.Side)
	assert.Equal(t, "0", order.Expiration)
	assert.Equal(t, "0", order.Nonce)
	assert.Equal(t, "0", order.FeeRateBps)
	assert.Equal(t, ZeroAddress, order.Taker)
	assert.False(t, order.NegRisk)

	salt, err := strconv.ParseInt(order.Salt, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, salt, int64(0))
}

func TestLimitOrderSellSwapsAmounts(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)

	order, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideSell,
		Price:   decimal.RequireFromString("0.42"),
		Size:    decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	assert.Equal(t, "50000000", order.MakerAmount, "shares offered")
	assert.Equal(t, "21000000", order.TakerAmount, "collateral wanted: 0.42 * 50")
	assert.Equal(t, chain.OrderSideSell, order.Side)
}

func TestLimitOrderCarriesExpirationAndNegRisk(t *testing.T) {
	srv := newParamsServer(t, "0.001", true)
	client := newTestClient(t, srv.URL)

	expiration := time.Now().Add(time.Hour).Truncate(time.Second)
	order, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID:    testTokenID,
		Side:       SideBuy,
		Price:      decimal.RequireFromString("0.123"),
		Size:       decimal.NewFromInt(10),
		Expiration: expiration,
		Nonce:      7,
		FeeRateBps: 25,
	})
	require.NoError(t, err)

	assert.Equal(t, strconv.FormatInt(expiration.Unix(), 10), order.Expiration)
	assert.Equal(t, "7", order.Nonce)
	assert.Equal(t, "25", order.FeeRateBps)
	assert.True(t, order.NegRisk)
}

func TestLimitOrderRejectsOutOfRangePrice(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)

	var invalid *InvalidOrderError
	_, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.999"), // snaps to 1.00, above 0.99
		Size:    decimal.NewFromInt(10),
	})
	require.ErrorAs(t, err, &invalid)

	_, err = client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.001"), // snaps to 0.00, below one tick
		Size:    decimal.NewFromInt(10),
	})
	require.ErrorAs(t, err, &invalid)
}

func TestLimitOrderValidatesIntentBeforeNetwork(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)

	intents := []LimitOrderIntent{
		{Side: SideBuy, Price: decimal.RequireFromString("0.5"), Size: decimal.NewFromInt(10)},
		{TokenID: testTokenID, Side: SideBuy, Price: decimal.Zero, Size: decimal.NewFromInt(10)},
		{TokenID: testTokenID, Side: SideBuy, Price: decimal.RequireFromString("-0.5"), Size: decimal.NewFromInt(10)},
		{TokenID: testTokenID, Side: SideBuy, Price: decimal.RequireFromString("0.5"), Size: decimal.Zero},
		{TokenID: testTokenID, Side: SideBuy, Price: decimal.RequireFromString("0.5"),
			Size: decimal.NewFromInt(10), Expiration: time.Now().Add(-time.Minute)},
	}

	for i, intent := range intents {
		var invalid *InvalidOrderError
		_, err := client.LimitOrder(context.Background(), intent)
		require.ErrorAs(t, err, &invalid, "intent %d", i)
	}
	assert.Equal(t, int64(0), srv.tickHits.Load(), "rejected intents must not reach the network")
}

func TestOrdersRejectSizeRoundingToZero(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	var invalid *InvalidOrderError
	_, err := client.LimitOrder(ctx, LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.5"),
		Size:    decimal.RequireFromString("0.004"), // rounds to 0.00 shares
	})
	require.ErrorAs(t, err, &invalid)

	_, err = client.MarketOrder(ctx, MarketOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Amount:  decimal.RequireFromString("0.001"), // buys 0.00 shares at 0.99
		Price:   decimal.RequireFromString("0.99"),
	})
	require.ErrorAs(t, err, &invalid)

	_, err = client.MarketOrder(ctx, MarketOrderIntent{
		TokenID: testTokenID,
		Side:    SideSell,
		Amount:  decimal.RequireFromString("0.004"), // sells 0.00 shares
		Price:   decimal.RequireFromString("0.5"),
	})
	require.ErrorAs(t, err, &invalid)

	assert.Equal(t, int64(1), srv.tickHits.Load(),
		"market parameters were consulted before rejection")
}

func TestLimitOrderSaltsDiffer(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)

	intent := LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.5"),
		Size:    decimal.NewFromInt(100),
	}

	first, err := client.LimitOrder(context.Background(), intent)
	require.NoError(t, err)
	second, err := client.LimitOrder(context.Background(), intent)
	require.NoError(t, err)

	assert.NotEqual(t, first.Salt, second.Salt, "identical intents must produce distinct orders")
}

func TestMarketOrderBuyDerivesShares(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)

	order, err := client.MarketOrder(context.Background(), MarketOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Amount:  decimal.NewFromInt(100), // collateral to spend
		Price:   decimal.RequireFromString("0.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, "100000000", order.MakerAmount)
	assert.Equal(t, "200000000", order.TakerAmount, "100 collateral at 0.50 buys 200 shares")
}

func TestMarketOrderSellDerivesProceeds(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)

	order, err := client.MarketOrder(context.Background(), MarketOrderIntent{
		TokenID: testTokenID,
		Side:    SideSell,
		Amount:  decimal.NewFromInt(80), // shares to sell
		Price:   decimal.RequireFromString("0.25"),
	})
	require.NoError(t, err)

	assert.Equal(t, "80000000", order.MakerAmount)
	assert.Equal(t, "20000000", order.TakerAmount, "80 shares at 0.25 yield 20 collateral")
}

func TestMarketOrderResolvesPriceFromMidpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tick-size":
			w.Write([]byte(`{"minimum_tick_size": "0.01"}`))
		case "/neg-risk":
			w.Write([]byte(`{"neg_risk": false}`))
		case "/midpoint":
			w.Write([]byte(`{"mid": "0.50"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	order, err := client.MarketOrder(context.Background(), MarketOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Amount:  decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.Equal(t, "100000000", order.MakerAmount)
	assert.Equal(t, "200000000", order.TakerAmount, "midpoint 0.50 prices 200 shares")
}

func TestMarketOrderRejectsNegativePrice(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)

	var invalid *InvalidOrderError
	_, err := client.MarketOrder(context.Background(), MarketOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Amount:  decimal.NewFromInt(100),
		Price:   decimal.RequireFromString("-0.5"),
	})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, int64(0), srv.tickHits.Load())
}

func TestSignFillsMakerAndIsDeterministic(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)
	signer := testSigner(t)

	order, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.5"),
		Size:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.Empty(t, order.Maker, "no funder configured")

	signed, err := client.Sign(context.Background(), signer, order)
	require.NoError(t, err)
	assert.Equal(t, signer.Address().Hex(), signed.Order.Maker)
	assert.Equal(t, signer.Address().Hex(), signed.Order.Signer)

	again, err := client.Sign(context.Background(), signer, order)
	require.NoError(t, err)
	assert.Equal(t, signed.Signature, again.Signature, "signing is deterministic for a fixed order")
}

func TestSignatureRecoversSignerAddress(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)
	signer := testSigner(t)

	order, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.5"),
		Size:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	signed, err := client.Sign(context.Background(), signer, order)
	require.NoError(t, err)

	exchange := common.HexToAddress(DefaultContractAddresses[ChainIDAmoy].CTFExchange)
	domain := chain.NewExchangeDomain(big.NewInt(int64(ChainIDAmoy)), exchange)
	digest, err := chain.OrderDigest(domain, &signed.Order.Order)
	require.NoError(t, err)

	sig := common.FromHex(signed.Signature)
	require.Len(t, sig, 65)
	sig[64] -= 27

	pubKey, err := crypto.SigToPub(digest.Bytes(), sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pubKey))
}

func TestSignSelectsExchangeByNegRisk(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)
	signer := testSigner(t)

	order, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.5"),
		Size:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	standard, err := client.Sign(context.Background(), signer, order)
	require.NoError(t, err)

	order.NegRisk = true
	negRisk, err := client.Sign(context.Background(), signer, order)
	require.NoError(t, err)

	assert.NotEqual(t, standard.Signature, negRisk.Signature,
		"negative-risk orders settle through a different exchange contract")
}

func TestSignedOrderToJSON(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	client := newTestClient(t, srv.URL)
	signer := testSigner(t)

	order, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideSell,
		Price:   decimal.RequireFromString("0.5"),
		Size:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	signed, err := client.Sign(context.Background(), signer, order)
	require.NoError(t, err)

	wire, err := signed.toJSON()
	require.NoError(t, err)
	assert.Equal(t, "SELL", wire.Side)
	assert.Equal(t, testTokenID, wire.TokenID)
	assert.Equal(t, signed.Signature, wire.Signature)
	assert.Equal(t, int(chain.SignatureTypeEOA), wire.SignatureType)
	assert.Equal(t, strconv.FormatInt(wire.Salt, 10), signed.Order.Salt)
}

func TestSignWithFunderKeepsMaker(t *testing.T) {
	srv := newParamsServer(t, "0.01", false)
	funder := "0x1111111111111111111111111111111111111111"
	client, err := NewClient(srv.URL, ClientConfig{
		ChainID:       ChainIDAmoy,
		FunderAddress: funder,
		SignatureType: SignatureTypePolyProxy,
	})
	require.NoError(t, err)
	signer := testSigner(t)

	order, err := client.LimitOrder(context.Background(), LimitOrderIntent{
		TokenID: testTokenID,
		Side:    SideBuy,
		Price:   decimal.RequireFromString("0.5"),
		Size:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	signed, err := client.Sign(context.Background(), signer, order)
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(funder).Hex(), signed.Order.Maker,
		"a configured funder owns the order")
	assert.Equal(t, signer.Address().Hex(), signed.Order.Signer)
	assert.Equal(t, chain.SignatureTypePolyProxy, signed.Order.SignatureType)
}
