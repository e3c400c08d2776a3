// Example usage of the Polymarket CLOB SDK
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	polyclob "github.com/polyfi/polymarket-clob-sdk-go"
	"github.com/polyfi/polymarket-clob-sdk-go/chain"
)

func main() {
	// Load PRIVATE_KEY (and optionally FUNDER_ADDRESS) from .env
	_ = godotenv.Load()

	privateKey := os.Getenv("PRIVATE_KEY")
	if privateKey == "" {
		log.Fatal("PRIVATE_KEY is required")
	}

	signer, err := chain.NewLocalSigner(privateKey)
	if err != nil {
		log.Fatalf("Failed to create signer: %v", err)
	}

	config := polyclob.ClientConfig{
		ChainID:       polyclob.ChainIDPolygon,
		UseServerTime: true,
		FunderAddress: os.Getenv("FUNDER_ADDRESS"),
	}

	client, err := polyclob.NewClient("https://clob.polymarket.com", config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	tokenID := "15871154585880608648532107628464183779895785213830018178010423617714102767076"

	// Unauthenticated reads
	if err := client.Ok(ctx); err != nil {
		log.Fatalf("API not reachable: %v", err)
	}
	tickSize, err := client.TickSize(ctx, tokenID)
	if err != nil {
		log.Fatalf("Failed to get tick size: %v", err)
	}
	negRisk, err := client.NegRisk(ctx, tokenID)
	if err != nil {
		log.Fatalf("Failed to get neg risk flag: %v", err)
	}
	fmt.Printf("tick_size=%s neg_risk=%v\n", tickSize, negRisk)

	// L1 handshake: derive API credentials from a wallet signature
	creds, err := client.Authenticate(ctx, signer)
	if err != nil {
		log.Fatalf("Failed to authenticate: %v", err)
	}
	fmt.Printf("api_key=%s\n", creds.Key)

	keys, err := client.ApiKeys(ctx)
	if err != nil {
		log.Printf("Failed to list api keys: %v", err)
	} else {
		fmt.Printf("api_keys=%v\n", keys)
	}

	// Build, sign and submit a limit order
	order, err := client.LimitOrder(ctx, polyclob.LimitOrderIntent{
		TokenID: tokenID,
		Side:    polyclob.SideBuy,
		Price:   decimal.RequireFromString("0.5"),
		Size:    decimal.NewFromInt(100),
	})
	if err != nil {
		log.Fatalf("Failed to build order: %v", err)
	}

	signed, err := client.Sign(ctx, signer, order)
	if err != nil {
		log.Fatalf("Failed to sign order: %v", err)
	}

	resp, err := client.PostOrder(ctx, signed, polyclob.OrderTypeGTC)
	if err != nil {
		log.Printf("Failed to post order: %v", err)
	} else {
		fmt.Printf("order_id=%s status=%s\n", resp.OrderID, resp.Status)
	}

	// Builder flow: register, promote, query attributed trades
	builderCreds, err := client.CreateBuilderApiKey(ctx)
	if err != nil {
		log.Printf("Failed to create builder api key: %v", err)
		return
	}
	if err := client.PromoteToBuilder(builderCreds); err != nil {
		log.Fatalf("Failed to promote to builder: %v", err)
	}

	trades, err := client.BuilderTrades(ctx, &polyclob.TradesRequest{AssetID: tokenID})
	if err != nil {
		log.Printf("Failed to list builder trades: %v", err)
	} else {
		fmt.Printf("builder_trades=%d\n", len(trades))
	}
}
