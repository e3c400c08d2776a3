package polyclob

import (
	"time"

	"go.uber.org/zap"
)

// ChainID represents a blockchain chain ID
type ChainID int64

const (
	ChainIDPolygon ChainID = 137   // Polygon mainnet
	ChainIDAmoy    ChainID = 80002 // Polygon Amoy testnet
)

// SupportedChainIDs lists all supported chain IDs
var SupportedChainIDs = []ChainID{ChainIDPolygon, ChainIDAmoy}

// ContractAddresses holds exchange contract addresses for a chain
type ContractAddresses struct {
	CTFExchange     string
	NegRiskExchange string
}

// DefaultContractAddresses maps chain IDs to their exchange deployments.
// Neg-risk markets settle through a separate exchange contract.
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDPolygon: {
		CTFExchange:     "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
		NegRiskExchange: "0xC5d563A36AE78145C45a50134d48A1215220f80a",
	},
	ChainIDAmoy: {
		CTFExchange:     "0xdFE02Eb6733538f8Ea35D585af8DE5958AD99E40",
		NegRiskExchange: "0xC5d563A36AE78145C45a50134d48A1215220f80a",
	},
}

// ClientConfig holds configuration for creating a Client
type ClientConfig struct {
	// ChainID of the exchange deployment. Defaults to Polygon mainnet.
	ChainID ChainID

	// UseServerTime makes every signed request use the exchange's
	// reported clock instead of the local one. Decided once at
	// construction; it applies to all requests from the client and its
	// clones.
	UseServerTime bool

	// FunderAddress is the proxy wallet that holds funds, when it differs
	// from the signing address. Orders are placed with this address as
	// maker.
	FunderAddress string

	// SignatureType used for order signatures. Defaults to EOA.
	SignatureType SignatureType

	// HTTPTimeout applies to every request. Defaults to 30s.
	HTTPTimeout time.Duration

	// Logger for structured logging. Defaults to a no-op logger.
	Logger *zap.Logger
}

func (c *ClientConfig) withDefaults() ClientConfig {
	cfg := *c
	if cfg.ChainID == 0 {
		cfg.ChainID = ChainIDPolygon
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}
